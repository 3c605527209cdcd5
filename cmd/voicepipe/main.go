package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexzhu0/voicepipe/internal/asr"
	"github.com/alexzhu0/voicepipe/internal/audio"
	"github.com/alexzhu0/voicepipe/internal/chat"
	"github.com/alexzhu0/voicepipe/internal/config"
	"github.com/alexzhu0/voicepipe/internal/metrics"
	"github.com/alexzhu0/voicepipe/internal/tts"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voicepipe"
	serviceVersion    = "1.0.0"
)

func main() {
	startTime := time.Now()

	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	inputPath := flag.String("in", "", "Path to audio input (WAV or raw 16-bit PCM)")
	inputRate := flag.Int("rate", 0, "Sample rate of headerless PCM input (ignored for WAV)")
	outputPath := flag.String("out", "", "Path to write synthesized reply audio (requires synthesis enabled)")
	flag.Parse()

	// Environment variables win over the file for credentials
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Missing required -in flag")
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("recognition_host", cfg.Recognition.Host),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Int("frame_size", cfg.Audio.FrameSize),
		slog.Int("deadline", cfg.Recognition.Deadline),
		slog.Bool("chat_enabled", cfg.Chat.Enabled),
		slog.Bool("synthesis_enabled", cfg.Synthesis.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics and exposition endpoint
	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.NewMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				logger.Error("Metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("Prometheus metrics initialized",
			slog.String("address", cfg.Metrics.Address))
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		logger.Error("Failed to read audio input", slog.String("error", err.Error()))
		os.Exit(1)
	}

	business := asr.DefaultBusinessParams()
	if cfg.Recognition.Language != "" {
		business.Language = cfg.Recognition.Language
	}
	if cfg.Recognition.Accent != "" {
		business.Accent = cfg.Recognition.Accent
	}

	recognizer, err := asr.NewRecognizer(asr.Config{
		Host:           cfg.Recognition.Host,
		Route:          cfg.Recognition.Route,
		AppID:          cfg.Recognition.AppID,
		APIKey:         cfg.Recognition.APIKey,
		APISecret:      cfg.Recognition.APISecret,
		Deadline:       cfg.Recognition.GetDeadlineDuration(),
		PacingInterval: cfg.Recognition.GetPacingIntervalDuration(),
		Business:       business,
		Normalizer: audio.NormalizerConfig{
			TargetSampleRate: cfg.Audio.TargetSampleRate,
			FrameSize:        cfg.Audio.FrameSize,
			MinDuration:      cfg.Audio.GetMinDuration(),
			MaxDuration:      cfg.Audio.GetMaxDuration(),
			MaxBytes:         cfg.Audio.MaxBytes,
			PreEmphasis:      cfg.Audio.PreEmphasis,
			NoiseGate:        cfg.Audio.NoiseGate,
			MinPower:         cfg.Audio.MinPower,
		},
	}, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create recognizer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	transcript, err := recognizer.Recognize(ctx, raw, *inputRate)
	if err != nil {
		logger.Error("Recognition failed", slog.String("error", err.Error()))
		fmt.Println(asr.FallbackMessage(err))
		os.Exit(1)
	}

	logger.Info("Recognition complete", slog.String("transcript", transcript))
	fmt.Println(transcript)

	reply := transcript
	if cfg.Chat.Enabled {
		chatClient, err := chat.NewClient(chat.Config{
			BaseURL:      cfg.Chat.BaseURL,
			APIKey:       cfg.Chat.APIKey,
			Model:        cfg.Chat.Model,
			SystemPrompt: cfg.Chat.SystemPrompt,
			Temperature:  cfg.Chat.Temperature,
			MaxTokens:    cfg.Chat.MaxTokens,
			Timeout:      cfg.Chat.GetTimeoutDuration(),
			MaxRetries:   cfg.Chat.MaxRetries,
		}, logger, appMetrics)
		if err != nil {
			logger.Error("Failed to create chat client", slog.String("error", err.Error()))
			os.Exit(1)
		}

		reply, err = chatClient.Reply(ctx, transcript)
		if err != nil {
			logger.Error("Chat completion failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("Reply generated", slog.String("reply", reply))
		fmt.Println(reply)
	}

	if cfg.Synthesis.Enabled {
		if *outputPath == "" {
			logger.Error("Synthesis is enabled but no -out path was given")
			os.Exit(1)
		}

		ttsClient, err := tts.NewClient(tts.Config{
			Endpoint: cfg.Synthesis.Endpoint,
			APIKey:   cfg.Synthesis.APIKey,
			Voice:    cfg.Synthesis.Voice,
			Timeout:  cfg.Synthesis.GetTimeoutDuration(),
		}, logger, appMetrics)
		if err != nil {
			logger.Error("Failed to create synthesis client", slog.String("error", err.Error()))
			os.Exit(1)
		}

		audioData, err := ttsClient.Synthesize(ctx, reply)
		if err != nil {
			logger.Error("Synthesis failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		if err := os.WriteFile(*outputPath, audioData, 0644); err != nil {
			logger.Error("Failed to write audio output", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("Reply audio written",
			slog.String("path", *outputPath),
			slog.Int("bytes", len(audioData)))
	}

	logger.Info("Service finished",
		slog.Duration("uptime", time.Since(startTime)))
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
