package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice pipeline
type Metrics struct {
	// Audio normalization metrics
	NormalizeRequests  prometheus.Counter
	NormalizeFailures  prometheus.Counter
	NormalizeDuration  prometheus.Histogram
	AudioDuration      prometheus.Histogram
	AudioInputBytes    prometheus.Histogram

	// Recognition metrics
	RecognitionAttempts  prometheus.Counter
	RecognitionSuccesses prometheus.Counter
	RecognitionFailures  *prometheus.CounterVec
	RecognitionDuration  prometheus.Histogram
	FramesSent           prometheus.Counter
	TranscriptLength     prometheus.Histogram

	// Chat metrics
	ChatRequests  prometheus.Counter
	ChatSuccesses prometheus.Counter
	ChatFailures  prometheus.Counter
	ChatRetries   prometheus.Counter
	ChatDuration  prometheus.Histogram

	// Synthesis metrics
	SynthesisRequests prometheus.Counter
	SynthesisFailures prometheus.Counter
	SynthesisDuration prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Audio normalization metrics
		NormalizeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_normalize_requests_total",
			Help: "Total number of audio normalization requests",
		}),
		NormalizeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_normalize_failures_total",
			Help: "Total number of audio normalization failures",
		}),
		NormalizeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_normalize_duration_seconds",
			Help:    "Time spent normalizing audio",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		AudioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_audio_duration_seconds",
			Help:    "Duration of accepted audio clips",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		AudioInputBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_audio_input_bytes",
			Help:    "Size of submitted audio payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~8MB
		}),

		// Recognition metrics
		RecognitionAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_recognition_attempts_total",
			Help: "Total number of recognition sessions started",
		}),
		RecognitionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_recognition_successes_total",
			Help: "Total number of recognition sessions that produced a transcript",
		}),
		RecognitionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepipe_recognition_failures_total",
			Help: "Total number of failed recognition sessions",
		}, []string{"reason"}),
		RecognitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_recognition_duration_seconds",
			Help:    "Wall-clock duration of recognition sessions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_frames_sent_total",
			Help: "Total number of audio frames streamed to the recognition service",
		}),
		TranscriptLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_transcript_length_chars",
			Help:    "Length of recognized transcripts in characters",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to ~512 chars
		}),

		// Chat metrics
		ChatRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_chat_requests_total",
			Help: "Total number of chat completion requests sent",
		}),
		ChatSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_chat_successes_total",
			Help: "Total number of successful chat completion requests",
		}),
		ChatFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_chat_failures_total",
			Help: "Total number of failed chat completion requests",
		}),
		ChatRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_chat_retries_total",
			Help: "Total number of chat completion request retries",
		}),
		ChatDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_chat_duration_seconds",
			Help:    "Duration of chat completion requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Synthesis metrics
		SynthesisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_synthesis_requests_total",
			Help: "Total number of speech synthesis requests sent",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicepipe_synthesis_failures_total",
			Help: "Total number of failed speech synthesis requests",
		}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepipe_synthesis_duration_seconds",
			Help:    "Duration of speech synthesis requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
	}
}

// RecordNormalize records a normalization request and its outcome
func (m *Metrics) RecordNormalize(ok bool, durationSeconds float64, inputBytes int) {
	m.NormalizeRequests.Inc()
	m.NormalizeDuration.Observe(durationSeconds)
	m.AudioInputBytes.Observe(float64(inputBytes))
	if !ok {
		m.NormalizeFailures.Inc()
	}
}

// RecordAudioDuration records the duration of an accepted clip
func (m *Metrics) RecordAudioDuration(seconds float64) {
	m.AudioDuration.Observe(seconds)
}

// RecordRecognitionAttempt increments the recognition attempts counter
func (m *Metrics) RecordRecognitionAttempt() {
	m.RecognitionAttempts.Inc()
}

// RecordRecognitionSuccess records a successful recognition session
func (m *Metrics) RecordRecognitionSuccess(durationSeconds float64, transcriptLen int) {
	m.RecognitionSuccesses.Inc()
	m.RecognitionDuration.Observe(durationSeconds)
	m.TranscriptLength.Observe(float64(transcriptLen))
}

// RecordRecognitionFailure records a failed recognition session
func (m *Metrics) RecordRecognitionFailure(reason string, durationSeconds float64) {
	m.RecognitionFailures.WithLabelValues(reason).Inc()
	m.RecognitionDuration.Observe(durationSeconds)
}

// RecordFramesSent adds to the frames sent counter
func (m *Metrics) RecordFramesSent(count int) {
	m.FramesSent.Add(float64(count))
}

// RecordChatRequest increments the chat requests counter
func (m *Metrics) RecordChatRequest() {
	m.ChatRequests.Inc()
}

// RecordChatSuccess records a successful chat completion
func (m *Metrics) RecordChatSuccess(durationSeconds float64) {
	m.ChatSuccesses.Inc()
	m.ChatDuration.Observe(durationSeconds)
}

// RecordChatFailure records a failed chat completion
func (m *Metrics) RecordChatFailure(durationSeconds float64) {
	m.ChatFailures.Inc()
	m.ChatDuration.Observe(durationSeconds)
}

// RecordChatRetry increments the chat retry counter
func (m *Metrics) RecordChatRetry() {
	m.ChatRetries.Inc()
}

// RecordSynthesis records a synthesis request and its outcome
func (m *Metrics) RecordSynthesis(ok bool, durationSeconds float64) {
	m.SynthesisRequests.Inc()
	m.SynthesisDuration.Observe(durationSeconds)
	if !ok {
		m.SynthesisFailures.Inc()
	}
}
