package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexzhu0/voicepipe/internal/audio"
	"github.com/alexzhu0/voicepipe/internal/metrics"
)

// User-facing fallback messages for recognition outcomes
const (
	MsgNotHeard     = "对不起，我没有听清楚。"
	MsgTimedOut     = "对不起，识别超时了。"
	MsgServiceError = "对不起，识别出错了。"
	MsgTooLarge     = "音频数据太大"
	MsgTooLong      = "对不起，音频长度超过60秒限制。"
)

// Config contains everything a Recognizer needs to turn raw audio into
// a transcript
type Config struct {
	Host      string
	Route     string
	Scheme    string
	AppID     string
	APIKey    string
	APISecret string

	Deadline       time.Duration
	PacingInterval time.Duration
	Business       BusinessParams

	Normalizer audio.NormalizerConfig
}

// Recognizer runs the full recognition pipeline: normalize, frame, sign
// a connection URL, and drive one streaming session per call. Each call
// signs a fresh URL, so a Recognizer can be reused across attempts.
type Recognizer struct {
	config     Config
	signer     *Signer
	normalizer *audio.Normalizer
	framer     *audio.Framer
	dialer     *websocket.Dialer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewRecognizer creates a recognizer. The metrics argument may be nil
// when metric collection is disabled.
func NewRecognizer(config Config, logger *slog.Logger, m *metrics.Metrics) (*Recognizer, error) {
	signer, err := NewSigner(SignerConfig{
		Host:      config.Host,
		Route:     config.Route,
		Scheme:    config.Scheme,
		APIKey:    config.APIKey,
		APISecret: config.APISecret,
	})
	if err != nil {
		return nil, err
	}

	normalizer, err := audio.NewNormalizer(config.Normalizer)
	if err != nil {
		return nil, fmt.Errorf("invalid normalizer config: %w", err)
	}

	framer, err := audio.NewFramer(config.Normalizer.FrameSize)
	if err != nil {
		return nil, fmt.Errorf("invalid framer config: %w", err)
	}

	if config.Business == (BusinessParams{}) {
		config.Business = DefaultBusinessParams()
	}

	return &Recognizer{
		config:     config,
		signer:     signer,
		normalizer: normalizer,
		framer:     framer,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
		metrics:    m,
	}, nil
}

// Recognize converts one audio clip into a transcript. The declared
// rate is used only for headerless PCM input; WAV input carries its
// own. An empty final transcript is reported as ErrNoSpeech.
func (r *Recognizer) Recognize(ctx context.Context, raw []byte, declaredRate int) (string, error) {
	normStart := time.Now()
	signal, err := r.normalizer.Normalize(raw, declaredRate)
	if r.metrics != nil {
		r.metrics.RecordNormalize(err == nil, time.Since(normStart).Seconds(), len(raw))
	}
	if err != nil {
		return "", fmt.Errorf("audio normalization failed: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordAudioDuration(signal.Duration().Seconds())
	}

	frames, err := r.framer.Frames(signal)
	if err != nil {
		return "", fmt.Errorf("audio framing failed: %w", err)
	}

	signedURL := r.signer.SignedURL(time.Now())

	r.logger.Debug("Dialing recognition service",
		"host", r.config.Host,
		"frames", len(frames))

	if r.metrics != nil {
		r.metrics.RecordRecognitionAttempt()
	}
	start := time.Now()

	conn, _, err := r.dialer.DialContext(ctx, signedURL, nil)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordRecognitionFailure("dial", time.Since(start).Seconds())
		}
		return "", fmt.Errorf("%w: dial failed: %v", ErrConnection, err)
	}

	session := NewSession(conn, SessionConfig{
		AppID:          r.config.AppID,
		Business:       r.config.Business,
		Deadline:       r.config.Deadline,
		PacingInterval: r.config.PacingInterval,
		Format:         fmt.Sprintf("audio/L16;rate=%d", signal.SampleRate),
	}, r.logger)

	transcript, err := session.Run(ctx, frames)
	elapsed := time.Since(start).Seconds()

	if r.metrics != nil {
		r.metrics.RecordFramesSent(len(frames))
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordRecognitionFailure(failureReason(err), elapsed)
		}
		return "", err
	}

	if transcript == "" {
		if r.metrics != nil {
			r.metrics.RecordRecognitionFailure("no_speech", elapsed)
		}
		return "", fmt.Errorf("%w: empty transcript", ErrNoSpeech)
	}

	if r.metrics != nil {
		r.metrics.RecordRecognitionSuccess(elapsed, len([]rune(transcript)))
	}
	return transcript, nil
}

func failureReason(err error) string {
	var protoErr *ProtocolError
	switch {
	case errors.Is(err, ErrDeadline):
		return "timeout"
	case errors.As(err, &protoErr):
		return "service"
	default:
		return "connection"
	}
}

// FallbackMessage maps a recognition error to the message spoken back
// to the user when no transcript is available
func FallbackMessage(err error) string {
	var protoErr *ProtocolError
	var durErr *audio.DurationError
	switch {
	case errors.As(err, &durErr) && durErr.TooLong:
		return MsgTooLong
	case errors.Is(err, audio.ErrTooLarge):
		return MsgTooLarge
	case errors.Is(err, audio.ErrSignalQuality),
		errors.Is(err, audio.ErrInvalidAudio),
		errors.Is(err, audio.ErrCorruptAudio),
		errors.Is(err, ErrNoSpeech):
		return MsgNotHeard
	case errors.Is(err, ErrDeadline):
		return MsgTimedOut
	case errors.As(err, &protoErr), errors.Is(err, ErrConnection), errors.Is(err, ErrAuthSigning):
		return MsgServiceError
	default:
		return MsgServiceError
	}
}
