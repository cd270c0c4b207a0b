package main

import (
	"context"
	"log/slog"
	"time"

	"recap/internal/config"
	"recap/internal/daemon"
	"recap/internal/fetch"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/media/transcode"
	"recap/internal/media/validate"
	"recap/internal/notifications"
	"recap/internal/pipeline"
	"recap/internal/services/gemini"
	"recap/internal/services/llm"
	"recap/internal/services/whisperapi"
	"recap/internal/services/whispercpp"
	"recap/internal/summarize"
	"recap/internal/transcribe"
)

// buildDaemon assembles the processing stack from configuration. The returned
// cleanup closes resources the daemon does not own, currently the media cache
// ledger.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, func(), error) {
	registry := jobs.NewRegistry(cfg.Pipeline.CompletedRetention)

	ledger, err := fetch.OpenLedger(cfg.Paths.CacheDir)
	if err != nil {
		// A broken ledger only disables download reuse; fetches still work.
		logger.Warn("media cache ledger unavailable", logging.Error(err))
		ledger = nil
	}
	fetcher := fetch.New(fetch.Options{
		Downloader: cfg.Fetch.Downloader,
		CacheDir:   cfg.Paths.CacheDir,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
	}, ledger)
	fetcher.SetLogger(logger)
	if ledger != nil {
		sweepMediaCache(fetcher, ledger, logger)
	}

	transcoder := transcode.New(transcode.Options{
		FFmpegBinary: cfg.FFmpegBinary(),
		WorkDir:      cfg.Paths.WorkDir,
		Timeout:      time.Duration(cfg.Transcode.TimeoutSeconds) * time.Second,
		SpeechFilter: cfg.Transcode.SpeechFilter,
		GainDB:       cfg.Transcode.GainDB,
	})
	transcoder.SetLogger(logger)

	validator := validate.New(validationLimits(cfg), cfg.FFmpegBinary(), cfg.FFprobeBinary())
	validator.SetLogger(logger)

	chain := transcribe.NewChain(transcriptionEngines(cfg),
		transcribe.WithNormalizer(transcoder),
		transcribe.WithAttemptHook(pipeline.TranscribeProgress(registry)),
	)
	chain.SetLogger(logger)

	summarizer := buildSummarizer(cfg)
	summarizer.SetLogger(logger)

	notifier := notifications.NewService(cfg)

	orchestrator := pipeline.New(
		pipeline.Config{Workers: cfg.Pipeline.Workers},
		pipeline.Deps{
			Registry:    registry,
			Fetcher:     fetcher,
			Transcoder:  transcoder,
			Validator:   validator,
			Transcriber: chain,
			Summarizer:  summarizer,
			Notifier:    notifier,
		},
		logger,
	)

	d, err := daemon.New(cfg, daemon.Components{
		Registry:    registry,
		Pipeline:    orchestrator,
		Transcriber: chain,
		Summarizer:  summarizer,
		Notifier:    notifier,
	}, logger)
	if err != nil {
		if ledger != nil {
			_ = ledger.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if ledger != nil {
			_ = ledger.Close()
		}
	}
	return d, cleanup, nil
}

// sweepMediaCache reconciles the ledger with the cache directory at startup,
// dropping rows for files that were cleaned out-of-band.
func sweepMediaCache(fetcher *fetch.Fetcher, ledger *fetch.Ledger, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	removed, err := fetcher.Prune(ctx)
	if err != nil {
		logger.Warn("media cache sweep failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("media cache sweep removed stale entries", logging.Int("removed", removed))
	}
	if count, bytes, err := ledger.Stats(ctx); err == nil {
		logger.Info("media cache ready",
			logging.Int("entries", count),
			logging.Int64("bytes", bytes),
		)
	}
}

// transcriptionEngines returns the enabled engines in chain priority order:
// hosted Whisper, Gemini, then local whisper.cpp.
func transcriptionEngines(cfg *config.Config) []transcribe.Engine {
	var engines []transcribe.Engine
	if cfg.Transcription.WhisperAPI.Enabled {
		engines = append(engines, whisperapi.NewClient(whisperapi.Config{
			APIKey:         cfg.Transcription.WhisperAPI.APIKey,
			BaseURL:        cfg.Transcription.WhisperAPI.BaseURL,
			Model:          cfg.Transcription.WhisperAPI.Model,
			TimeoutSeconds: cfg.Transcription.WhisperAPI.TimeoutSeconds,
		}))
	}
	if cfg.Transcription.Gemini.Enabled {
		engines = append(engines, gemini.NewClient(gemini.Config{
			APIKeys:        cfg.Transcription.Gemini.APIKeys,
			Model:          cfg.Transcription.Gemini.Model,
			TimeoutSeconds: cfg.Transcription.Gemini.TimeoutSeconds,
		}))
	}
	if cfg.Transcription.WhisperCpp.Enabled {
		engines = append(engines, whispercpp.NewService(whispercpp.Config{
			Binary:         cfg.Transcription.WhisperCpp.Binary,
			ModelPath:      cfg.Transcription.WhisperCpp.ModelPath,
			TimeoutSeconds: cfg.Transcription.WhisperCpp.TimeoutSeconds,
		}))
	}
	return engines
}

// buildSummarizer wires the remote backend only when enabled; the local
// extractive path needs no external services.
func buildSummarizer(cfg *config.Config) *summarize.Summarizer {
	var opts []summarize.Option
	if cfg.Summarization.LLM.Enabled {
		conn := cfg.SummaryLLM()
		backend := llm.NewClient(llm.Config{
			APIKey:         conn.APIKey,
			BaseURL:        conn.BaseURL,
			Model:          conn.Model,
			Referer:        conn.Referer,
			Title:          conn.Title,
			TimeoutSeconds: conn.TimeoutSeconds,
		})
		opts = append(opts, summarize.WithLLM(backend))
	}
	return summarize.New(summarize.Config{
		MinInputWords: cfg.Summarization.MinInputWords,
		ChunkWords:    cfg.Summarization.Local.ChunkWords,
	}, opts...)
}

func validationLimits(cfg *config.Config) validate.Limits {
	v := cfg.Validation
	return validate.Limits{
		MinBytes:       v.MinBytes,
		MaxBytes:       v.MaxBytes,
		MinDuration:    time.Duration(v.MinDurationSeconds * float64(time.Second)),
		MaxDuration:    time.Duration(v.MaxDurationSeconds * float64(time.Second)),
		MaxChannels:    v.MaxChannels,
		MinSampleRate:  v.MinSampleRate,
		SilenceFloorDB: v.SilenceFloorDB,
		QuietFloorDB:   v.QuietFloorDB,
		GainRescueDB:   v.GainRescueDB,
		Extensions:     v.Extensions,
	}
}
