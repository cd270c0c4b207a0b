package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSummarization(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRuntime() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.workers":              c.Pipeline.Workers,
		"pipeline.completed_retention":  c.Pipeline.CompletedRetention,
		"transcode.timeout_seconds":     c.Transcode.TimeoutSeconds,
		"fetch.timeout_seconds":         c.Fetch.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateTranscode() error {
	if c.Transcode.GainDB < 0 || c.Transcode.GainDB > 24 {
		return errors.New("transcode.gain_db must be between 0 and 24")
	}
	return nil
}

func (c *Config) validateValidation() error {
	v := c.Validation
	if v.MinBytes <= 0 {
		return errors.New("validation.min_bytes must be positive")
	}
	if v.MaxBytes <= v.MinBytes {
		return errors.New("validation.max_bytes must be greater than validation.min_bytes")
	}
	if v.MinDurationSeconds <= 0 {
		return errors.New("validation.min_duration_seconds must be positive")
	}
	if v.MaxDurationSeconds <= v.MinDurationSeconds {
		return errors.New("validation.max_duration_seconds must be greater than validation.min_duration_seconds")
	}
	if v.MaxChannels <= 0 {
		return errors.New("validation.max_channels must be positive")
	}
	if v.MinSampleRate <= 0 {
		return errors.New("validation.min_sample_rate must be positive")
	}
	if v.SilenceFloorDB >= v.QuietFloorDB {
		return errors.New("validation.silence_floor_db must be below validation.quiet_floor_db")
	}
	if v.GainRescueDB <= 0 || v.GainRescueDB > 24 {
		return errors.New("validation.gain_rescue_db must be between 0 and 24")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if !t.WhisperAPI.Enabled && !t.Gemini.Enabled && !t.WhisperCpp.Enabled {
		return errors.New("at least one transcription engine must be enabled")
	}
	if t.WhisperAPI.Enabled {
		if strings.TrimSpace(t.WhisperAPI.APIKey) == "" {
			return errors.New("transcription.whisper_api.api_key must be set when transcription.whisper_api.enabled is true (or set WHISPER_API_KEY)")
		}
		if t.WhisperAPI.TimeoutSeconds <= 0 {
			return errors.New("transcription.whisper_api.timeout_seconds must be positive")
		}
	}
	if t.Gemini.Enabled {
		if len(t.Gemini.APIKeys) == 0 {
			return errors.New("transcription.gemini.api_keys must include at least one key when transcription.gemini.enabled is true (or set GEMINI_API_KEY)")
		}
		if t.Gemini.TimeoutSeconds <= 0 {
			return errors.New("transcription.gemini.timeout_seconds must be positive")
		}
	}
	if t.WhisperCpp.Enabled {
		if strings.TrimSpace(t.WhisperCpp.ModelPath) == "" {
			return errors.New("transcription.whisper_cpp.model_path must be set when transcription.whisper_cpp.enabled is true")
		}
		if t.WhisperCpp.TimeoutSeconds <= 0 {
			return errors.New("transcription.whisper_cpp.timeout_seconds must be positive")
		}
	}
	return nil
}

func (c *Config) validateSummarization() error {
	s := c.Summarization
	if s.MinInputWords <= 0 {
		return errors.New("summarization.min_input_words must be positive")
	}
	switch s.DefaultLength {
	case "short", "medium", "long":
	default:
		return fmt.Errorf("summarization.default_length must be one of short, medium, long (got %q)", s.DefaultLength)
	}
	switch s.DefaultFormat {
	case "paragraph", "bullets", "numbered", "key_points":
	default:
		return fmt.Errorf("summarization.default_format must be one of paragraph, bullets, numbered, key_points (got %q)", s.DefaultFormat)
	}
	if s.Local.ChunkWords <= 0 {
		return errors.New("summarization.local.chunk_words must be positive")
	}
	if s.LLM.Enabled {
		if strings.TrimSpace(s.LLM.APIKey) == "" {
			return errors.New("summarization.llm.api_key must be set when summarization.llm.enabled is true (or set OPENROUTER_API_KEY)")
		}
		if s.LLM.TimeoutSeconds <= 0 {
			return errors.New("summarization.llm.timeout_seconds must be positive")
		}
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.Enabled && c.Watch.SettleSeconds <= 0 {
		return errors.New("watch.settle_seconds must be positive when watch.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
