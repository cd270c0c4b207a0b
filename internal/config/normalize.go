package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeValidation()
	c.normalizeFetch()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeSummarization()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeValidation() {
	if len(c.Validation.Extensions) == 0 {
		c.Validation.Extensions = defaultExtensions()
		return
	}
	exts := make([]string, 0, len(c.Validation.Extensions))
	seen := make(map[string]struct{}, len(c.Validation.Extensions))
	for _, ext := range c.Validation.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultExtensions()
	}
	c.Validation.Extensions = exts
}

func (c *Config) normalizeFetch() {
	c.Fetch.Downloader = strings.TrimSpace(c.Fetch.Downloader)
	if c.Fetch.Downloader == "" {
		c.Fetch.Downloader = defaultDownloader
	}
}

func (c *Config) normalizeTranscription() error {
	whisper := &c.Transcription.WhisperAPI
	whisper.BaseURL = strings.TrimSpace(whisper.BaseURL)
	if whisper.BaseURL == "" {
		whisper.BaseURL = defaultWhisperAPIBaseURL
	}
	whisper.Model = strings.TrimSpace(whisper.Model)
	if whisper.Model == "" {
		whisper.Model = defaultWhisperAPIModel
	}
	whisper.APIKey = strings.TrimSpace(whisper.APIKey)
	if value, ok := lookupFirstEnv("WHISPER_API_KEY", "OPENAI_API_KEY"); ok {
		whisper.APIKey = value
	}

	gemini := &c.Transcription.Gemini
	gemini.Model = strings.TrimSpace(gemini.Model)
	if gemini.Model == "" {
		gemini.Model = defaultGeminiModel
	}
	keys := make([]string, 0, len(gemini.APIKeys)+1)
	seen := make(map[string]struct{}, len(gemini.APIKeys)+1)
	if value, ok := lookupFirstEnv("GEMINI_API_KEY"); ok {
		keys = append(keys, value)
		seen[value] = struct{}{}
	}
	for _, key := range gemini.APIKeys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		keys = append(keys, trimmed)
	}
	gemini.APIKeys = keys

	cpp := &c.Transcription.WhisperCpp
	cpp.Binary = strings.TrimSpace(cpp.Binary)
	if cpp.Binary == "" {
		cpp.Binary = defaultWhisperCppBinary
	}
	cpp.ModelPath = strings.TrimSpace(cpp.ModelPath)
	if cpp.ModelPath == "" {
		cpp.ModelPath = defaultWhisperModelPath
	}
	var err error
	if cpp.ModelPath, err = expandPath(cpp.ModelPath); err != nil {
		return fmt.Errorf("transcription.whisper_cpp.model_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSummarization() {
	c.Summarization.DefaultLength = strings.ToLower(strings.TrimSpace(c.Summarization.DefaultLength))
	if c.Summarization.DefaultLength == "" {
		c.Summarization.DefaultLength = defaultSummaryLength
	}
	c.Summarization.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Summarization.DefaultFormat))
	if c.Summarization.DefaultFormat == "" {
		c.Summarization.DefaultFormat = defaultSummaryFormat
	}

	llm := &c.Summarization.LLM
	llm.BaseURL = strings.TrimSpace(llm.BaseURL)
	if llm.BaseURL == "" {
		llm.BaseURL = defaultLLMBaseURL
	}
	llm.Model = strings.TrimSpace(llm.Model)
	if llm.Model == "" {
		llm.Model = defaultLLMModel
	}
	llm.Title = strings.TrimSpace(llm.Title)
	if llm.Title == "" {
		llm.Title = defaultLLMTitle
	}
	llm.Referer = strings.TrimSpace(llm.Referer)
	llm.APIKey = strings.TrimSpace(llm.APIKey)
	if value, ok := lookupFirstEnv("RECAP_LLM_API_KEY", "OPENROUTER_API_KEY"); ok {
		llm.APIKey = value
	}
}

func (c *Config) normalizeWatch() error {
	if strings.TrimSpace(c.Watch.Dir) == "" {
		c.Watch.Dir = defaultWatchDir
	}
	var err error
	if c.Watch.Dir, err = expandPath(c.Watch.Dir); err != nil {
		return fmt.Errorf("watch.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

// lookupFirstEnv returns the first non-empty value among the named environment
// variables. Environment values take precedence over file values so secrets
// can stay out of config files.
func lookupFirstEnv(names ...string) (string, bool) {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
