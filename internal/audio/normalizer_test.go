package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func testConfig() NormalizerConfig {
	return NormalizerConfig{
		TargetSampleRate: 16000,
		FrameSize:        1280,
		MinDuration:      500 * time.Millisecond,
		MaxDuration:      60 * time.Second,
		MaxBytes:         10 * 1024 * 1024,
		PreEmphasis:      0.97,
		NoiseGate:        0.005,
		MinPower:         1e-6,
	}
}

func newTestNormalizer(t *testing.T, config NormalizerConfig) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(config)
	if err != nil {
		t.Fatalf("Failed to create normalizer: %v", err)
	}
	return n
}

// sineSamples generates a sine tone as PCM-16 samples
func sineSamples(freq float64, sampleRate int, duration time.Duration, amplitude float64) []int16 {
	count := int(float64(sampleRate) * duration.Seconds())
	samples := make([]int16, count)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		samples[i] = int16(v * 32767)
	}
	return samples
}

// stereoWAV builds a two-channel WAV file with the same tone on both channels
func stereoWAV(t *testing.T, mono []int16, sampleRate int) []byte {
	t.Helper()

	interleaved := make([]int16, 0, len(mono)*2)
	for _, s := range mono {
		interleaved = append(interleaved, s, s)
	}

	dataSize := uint32(len(interleaved) * 2)
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   2,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2 * 2,
		BlockAlign:    4,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		t.Fatalf("Failed to write WAV header: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, interleaved); err != nil {
		t.Fatalf("Failed to write WAV data: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeRawPCM(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	tone := sineSamples(440, 16000, time.Second, 0.5)
	signal, err := n.Normalize(SamplesToBytes(tone), 16000)
	if err != nil {
		t.Fatalf("Expected successful normalization, got: %v", err)
	}

	if signal.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", signal.SampleRate)
	}

	if len(signal.Samples)%1280 != 0 {
		t.Errorf("Expected sample count to be a multiple of 1280, got %d", len(signal.Samples))
	}

	// 16000 samples pad up to 16640 (13 frames)
	if len(signal.Samples) != 16640 {
		t.Errorf("Expected 16640 samples after padding, got %d", len(signal.Samples))
	}
}

func TestNormalizeWAVInput(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	tone := sineSamples(440, 8000, time.Second, 0.5)
	wav, err := EncodeWAV(tone, 8000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	// declaredRate must be ignored for WAV input
	signal, err := n.Normalize(wav, 44100)
	if err != nil {
		t.Fatalf("Expected successful normalization, got: %v", err)
	}

	if signal.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", signal.SampleRate)
	}

	// 1s at 8kHz resamples to ~16000 samples before padding
	gotDuration := signal.Duration()
	if gotDuration < time.Second || gotDuration > time.Second+100*time.Millisecond {
		t.Errorf("Expected duration near 1s, got %v", gotDuration)
	}
}

func TestNormalizeStereoDownmix(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	tone := sineSamples(440, 16000, time.Second, 0.5)
	wav := stereoWAV(t, tone, 16000)

	signal, err := n.Normalize(wav, 0)
	if err != nil {
		t.Fatalf("Expected successful normalization, got: %v", err)
	}

	// Two identical channels downmix to one channel of the same length
	if len(signal.Samples) != 16640 {
		t.Errorf("Expected 16640 samples after downmix and padding, got %d", len(signal.Samples))
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	_, err := n.Normalize(nil, 16000)
	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected ErrInvalidAudio for empty input, got: %v", err)
	}
}

func TestNormalizeRejectsOversized(t *testing.T) {
	config := testConfig()
	config.MaxBytes = 1024
	n := newTestNormalizer(t, config)

	_, err := n.Normalize(make([]byte, 2048), 16000)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge for oversized input, got: %v", err)
	}

	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected oversized input error to match ErrInvalidAudio, got: %v", err)
	}
}

func TestNormalizeRejectsShortClip(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	tone := sineSamples(440, 16000, 100*time.Millisecond, 0.5)
	_, err := n.Normalize(SamplesToBytes(tone), 16000)

	var durErr *DurationError
	if !errors.As(err, &durErr) {
		t.Fatalf("Expected DurationError for short clip, got: %v", err)
	}

	if durErr.TooLong {
		t.Error("Expected TooLong to be false for a short clip")
	}

	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected duration error to match ErrInvalidAudio, got: %v", err)
	}
}

func TestNormalizeRejectsLongClip(t *testing.T) {
	config := testConfig()
	config.MaxDuration = 2 * time.Second
	n := newTestNormalizer(t, config)

	tone := sineSamples(440, 16000, 3*time.Second, 0.5)
	_, err := n.Normalize(SamplesToBytes(tone), 16000)

	var durErr *DurationError
	if !errors.As(err, &durErr) {
		t.Fatalf("Expected DurationError for long clip, got: %v", err)
	}

	if !durErr.TooLong {
		t.Error("Expected TooLong to be true for a long clip")
	}
}

func TestNormalizeRejectsSilence(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	silence := make([]int16, 16000)
	_, err := n.Normalize(SamplesToBytes(silence), 16000)

	if !errors.Is(err, ErrSignalTooWeak) {
		t.Errorf("Expected ErrSignalTooWeak for silent input, got: %v", err)
	}

	if !errors.Is(err, ErrSignalQuality) {
		t.Errorf("Expected silence error to match ErrSignalQuality, got: %v", err)
	}
}

func TestNormalizeHeaderlessRequiresRate(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	tone := sineSamples(440, 16000, time.Second, 0.5)
	_, err := n.Normalize(SamplesToBytes(tone), 0)
	if !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("Expected ErrInvalidAudio for missing declared rate, got: %v", err)
	}
}

func TestNormalizeDropsTrailingOddByte(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	tone := sineSamples(440, 16000, time.Second, 0.5)
	raw := append(SamplesToBytes(tone), 0x7f)

	signal, err := n.Normalize(raw, 16000)
	if err != nil {
		t.Fatalf("Expected odd trailing byte to be dropped, got: %v", err)
	}

	if len(signal.Samples) != 16640 {
		t.Errorf("Expected 16640 samples, got %d", len(signal.Samples))
	}
}

func TestNormalizePeakScaling(t *testing.T) {
	n := newTestNormalizer(t, testConfig())

	// A quiet tone must be scaled up so its peak touches full scale
	tone := sineSamples(440, 16000, time.Second, 0.05)
	signal, err := n.Normalize(SamplesToBytes(tone), 16000)
	if err != nil {
		t.Fatalf("Expected successful normalization, got: %v", err)
	}

	var peak int16
	for _, s := range signal.Samples {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}

	if peak < 30000 {
		t.Errorf("Expected peak near full scale after normalization, got %d", peak)
	}
}

func TestNormalizerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NormalizerConfig)
	}{
		{"zero sample rate", func(c *NormalizerConfig) { c.TargetSampleRate = 0 }},
		{"zero frame size", func(c *NormalizerConfig) { c.FrameSize = 0 }},
		{"zero max bytes", func(c *NormalizerConfig) { c.MaxBytes = 0 }},
		{"inverted durations", func(c *NormalizerConfig) { c.MinDuration, c.MaxDuration = c.MaxDuration, c.MinDuration }},
		{"pre-emphasis at 1", func(c *NormalizerConfig) { c.PreEmphasis = 1.0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			tt.mutate(&config)
			if _, err := NewNormalizer(config); err == nil {
				t.Error("Expected config error but got none")
			}
		})
	}
}
