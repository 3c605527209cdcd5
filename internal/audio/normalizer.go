package audio

import (
	"fmt"
	"math"
	"time"
)

// Signal is a canonical mono 16-bit PCM signal at a known sample rate.
// It is the unit of work for framing and streaming.
type Signal struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback duration derived from the sample count.
func (s *Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// NormalizerConfig contains signal conditioning parameters
type NormalizerConfig struct {
	TargetSampleRate int           // Canonical output rate (16000 Hz)
	FrameSize        int           // Samples per streaming frame; output is padded to a multiple
	MinDuration      time.Duration // Clips shorter than this are rejected
	MaxDuration      time.Duration // Clips longer than this are rejected
	MaxBytes         int           // Raw input size limit before any decoding
	PreEmphasis      float64       // First-order pre-emphasis coefficient (0.97)
	NoiseGate        float64       // Unit-scale magnitude below which samples are zeroed
	MinPower         float64       // Minimum mean squared power after conditioning
}

// Normalizer converts arbitrary raw audio input into a validated Signal.
// It is a pure transformation: no I/O, no retained state, safe to share
// across goroutines.
type Normalizer struct {
	config NormalizerConfig
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config NormalizerConfig) (*Normalizer, error) {
	if config.TargetSampleRate <= 0 {
		return nil, fmt.Errorf("target sample rate must be positive, got %d", config.TargetSampleRate)
	}

	if config.FrameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", config.FrameSize)
	}

	if config.MaxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be positive, got %d", config.MaxBytes)
	}

	if config.MinDuration <= 0 || config.MaxDuration <= config.MinDuration {
		return nil, fmt.Errorf("invalid duration bounds: min=%v, max=%v", config.MinDuration, config.MaxDuration)
	}

	if config.PreEmphasis < 0 || config.PreEmphasis >= 1 {
		return nil, fmt.Errorf("pre-emphasis coefficient must be in [0, 1), got %f", config.PreEmphasis)
	}

	return &Normalizer{config: config}, nil
}

// Normalize validates and conditions raw audio bytes into a canonical
// Signal. declaredRate is the sample rate assumed for headerless PCM
// input; it is ignored when the buffer carries a WAV header.
//
// The output signal is mono, 16-bit, at the target rate, pre-emphasized,
// peak-normalized, noise-gated, and padded to a whole number of frames.
func (n *Normalizer) Normalize(raw []byte, declaredRate int) (*Signal, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidAudio)
	}

	if len(raw) > n.config.MaxBytes {
		return nil, fmt.Errorf("%w: input size %d exceeds limit %d bytes", ErrTooLarge, len(raw), n.config.MaxBytes)
	}

	samples, nativeRate, channels, err := n.decode(raw, declaredRate)
	if err != nil {
		return nil, err
	}

	mono := downmix(samples, channels)
	if len(mono) == 0 {
		return nil, fmt.Errorf("%w: no samples after decoding", ErrInvalidAudio)
	}

	// Duration bounds are checked against the source signal so oversized
	// clips are rejected before the resampler touches them. Resampling
	// preserves duration, so the check holds for the output too.
	duration := time.Duration(float64(len(mono)) / float64(nativeRate) * float64(time.Second))
	if duration < n.config.MinDuration {
		return nil, &DurationError{Duration: duration, Min: n.config.MinDuration, Max: n.config.MaxDuration}
	}
	if duration > n.config.MaxDuration {
		return nil, &DurationError{Duration: duration, Min: n.config.MinDuration, Max: n.config.MaxDuration, TooLong: true}
	}

	signal := toUnitScale(mono)
	signal = resample(signal, nativeRate, n.config.TargetSampleRate)

	for _, v := range signal {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrCorruptAudio
		}
	}

	preEmphasize(signal, n.config.PreEmphasis)

	if err := peakNormalize(signal); err != nil {
		return nil, err
	}

	noiseGate(signal, n.config.NoiseGate)

	if meanPower(signal) < n.config.MinPower {
		return nil, fmt.Errorf("%w: mean power below %g, likely silence", ErrSignalTooWeak, n.config.MinPower)
	}

	out := quantize(signal)
	out = padToFrame(out, n.config.FrameSize)

	return &Signal{Samples: out, SampleRate: n.config.TargetSampleRate}, nil
}

// decode detects the container format by magic bytes and extracts
// interleaved samples with their native rate and channel count.
func (n *Normalizer) decode(raw []byte, declaredRate int) ([]int16, int, int, error) {
	if IsWAV(raw) {
		samples, rate, channels, err := DecodeWAV(raw)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
		}
		return samples, rate, channels, nil
	}

	if declaredRate <= 0 {
		return nil, 0, 0, fmt.Errorf("%w: headerless input requires a declared sample rate", ErrInvalidAudio)
	}

	// Headerless little-endian PCM-16. Drop a trailing odd byte to keep
	// 16-bit alignment rather than rejecting the whole clip.
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	if len(raw) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: input too short for a single sample", ErrInvalidAudio)
	}

	return BytesToSamples(raw), declaredRate, 1, nil
}

// downmix collapses interleaved multi-channel samples to mono by
// averaging the channels of each frame.
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}

// toUnitScale converts PCM-16 samples to floats in [-1, 1).
func toUnitScale(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}

// preEmphasize applies the first-order filter y[n] = x[n] - a*x[n-1]
// in place, boosting the high-frequency content relevant to speech.
func preEmphasize(signal []float64, a float64) {
	prev := 0.0
	for i, v := range signal {
		signal[i] = v - a*prev
		prev = v
	}
}

// peakNormalize scales the signal so its peak magnitude is 1.
func peakNormalize(signal []float64) error {
	var peak float64
	for _, v := range signal {
		if m := math.Abs(v); m > peak {
			peak = m
		}
	}

	if peak < 1e-9 {
		return fmt.Errorf("%w: peak amplitude is zero", ErrSignalTooWeak)
	}

	for i := range signal {
		signal[i] /= peak
	}
	return nil
}

// noiseGate zeroes samples whose magnitude falls below the threshold.
func noiseGate(signal []float64, threshold float64) {
	for i, v := range signal {
		if math.Abs(v) < threshold {
			signal[i] = 0
		}
	}
}

// meanPower returns the mean squared power of the signal.
func meanPower(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, v := range signal {
		sum += v * v
	}
	return sum / float64(len(signal))
}

// quantize converts a unit-scale signal back to PCM-16, clipping to the
// valid range.
func quantize(signal []float64) []int16 {
	out := make([]int16, len(signal))
	for i, v := range signal {
		scaled := v * 32767.0
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		out[i] = int16(scaled)
	}
	return out
}

// padToFrame extends the signal to a multiple of frameSize by repeating
// the final sample. Edge replication avoids the click a zero-fill step
// would introduce at the clip boundary.
func padToFrame(samples []int16, frameSize int) []int16 {
	remainder := len(samples) % frameSize
	if remainder == 0 {
		return samples
	}

	last := samples[len(samples)-1]
	padding := frameSize - remainder
	for i := 0; i < padding; i++ {
		samples = append(samples, last)
	}
	return samples
}
