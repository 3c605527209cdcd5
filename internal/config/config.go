package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Chat        ChatConfig        `yaml:"chat"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// AudioConfig contains audio normalization parameters
type AudioConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	FrameSize        int     `yaml:"frame_size"`         // samples
	MinDuration      float64 `yaml:"min_duration"`       // seconds
	MaxDuration      float64 `yaml:"max_duration"`       // seconds
	MaxBytes         int     `yaml:"max_bytes"`
	PreEmphasis      float64 `yaml:"pre_emphasis"`
	NoiseGate        float64 `yaml:"noise_gate"`
	MinPower         float64 `yaml:"min_power"`
}

// RecognitionConfig contains recognition service configuration. The
// AppID, APIKey, and APISecret fields may be left empty in the file and
// supplied through the XFYUN_APP_ID, XFYUN_API_KEY, and XFYUN_API_SECRET
// environment variables.
type RecognitionConfig struct {
	Host           string  `yaml:"host"`
	Route          string  `yaml:"route"`
	AppID          string  `yaml:"app_id"`
	APIKey         string  `yaml:"api_key"`
	APISecret      string  `yaml:"api_secret"`
	Deadline       int     `yaml:"deadline"`        // seconds
	PacingInterval float64 `yaml:"pacing_interval"` // seconds
	Language       string  `yaml:"language"`
	Accent         string  `yaml:"accent"`
}

// ChatConfig contains chat completion API configuration. APIKey may be
// supplied through the DEEPSEEK_API_KEY environment variable.
type ChatConfig struct {
	Enabled      bool    `yaml:"enabled"`
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	Timeout      int     `yaml:"timeout"` // seconds
	MaxRetries   int     `yaml:"max_retries"`
}

// SynthesisConfig contains speech synthesis API configuration. APIKey
// may be supplied through the TTS_API_KEY environment variable.
type SynthesisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Voice    string `yaml:"voice"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains the Prometheus exposition endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load reads and parses the configuration file, then applies the
// environment variable overrides for credentials
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv overrides credentials with environment variables so secrets
// never need to live in the config file
func (c *Config) applyEnv() {
	if v := os.Getenv("XFYUN_APP_ID"); v != "" {
		c.Recognition.AppID = v
	}
	if v := os.Getenv("XFYUN_API_KEY"); v != "" {
		c.Recognition.APIKey = v
	}
	if v := os.Getenv("XFYUN_API_SECRET"); v != "" {
		c.Recognition.APISecret = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		c.Chat.APIKey = v
	}
	if v := os.Getenv("TTS_API_KEY"); v != "" {
		c.Synthesis.APIKey = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate < 8000 {
		return fmt.Errorf("target_sample_rate must be at least 8000 Hz, got %d", a.TargetSampleRate)
	}

	if a.FrameSize < 1 {
		return fmt.Errorf("frame_size must be at least 1 sample, got %d", a.FrameSize)
	}

	if a.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", a.MinDuration)
	}

	if a.MaxDuration <= a.MinDuration {
		return fmt.Errorf("max_duration (%f) must be greater than min_duration (%f)",
			a.MaxDuration, a.MinDuration)
	}

	if a.MaxBytes < 1024 {
		return fmt.Errorf("max_bytes must be at least 1024, got %d", a.MaxBytes)
	}

	if a.PreEmphasis < 0 || a.PreEmphasis >= 1 {
		return fmt.Errorf("pre_emphasis must be between 0 and 1 (exclusive), got %f", a.PreEmphasis)
	}

	if a.NoiseGate < 0 || a.NoiseGate >= 1 {
		return fmt.Errorf("noise_gate must be between 0 and 1 (exclusive), got %f", a.NoiseGate)
	}

	if a.MinPower < 0 {
		return fmt.Errorf("min_power cannot be negative, got %f", a.MinPower)
	}

	return nil
}

// Validate validates recognition configuration
func (r *RecognitionConfig) Validate() error {
	if r.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if r.Route == "" {
		return fmt.Errorf("route cannot be empty")
	}

	if r.AppID == "" {
		return fmt.Errorf("app_id cannot be empty")
	}

	if r.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if r.APISecret == "" {
		return fmt.Errorf("api_secret cannot be empty")
	}

	if r.Deadline < 10 || r.Deadline > 30 {
		return fmt.Errorf("deadline must be between 10 and 30 seconds, got %d", r.Deadline)
	}

	if r.PacingInterval <= 0 {
		return fmt.Errorf("pacing_interval must be positive, got %f", r.PacingInterval)
	}

	return nil
}

// Validate validates chat configuration
func (ch *ChatConfig) Validate() error {
	if !ch.Enabled {
		return nil
	}

	if ch.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty when chat is enabled")
	}

	if ch.Model == "" {
		return fmt.Errorf("model cannot be empty when chat is enabled")
	}

	if ch.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", ch.Timeout)
	}

	if ch.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", ch.MaxRetries)
	}

	return nil
}

// Validate validates synthesis configuration
func (s *SynthesisConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty when synthesis is enabled")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}

	return nil
}

// GetMinDuration returns the minimum clip duration as a time.Duration
func (a *AudioConfig) GetMinDuration() time.Duration {
	return time.Duration(a.MinDuration * float64(time.Second))
}

// GetMaxDuration returns the maximum clip duration as a time.Duration
func (a *AudioConfig) GetMaxDuration() time.Duration {
	return time.Duration(a.MaxDuration * float64(time.Second))
}

// GetDeadlineDuration returns the session deadline as a time.Duration
func (r *RecognitionConfig) GetDeadlineDuration() time.Duration {
	return time.Duration(r.Deadline) * time.Second
}

// GetPacingIntervalDuration returns the frame pacing interval as a time.Duration
func (r *RecognitionConfig) GetPacingIntervalDuration() time.Duration {
	return time.Duration(r.PacingInterval * float64(time.Second))
}

// GetTimeoutDuration returns the chat request timeout as a time.Duration
func (ch *ChatConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(ch.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis request timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
