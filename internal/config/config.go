package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Pipeline contains configuration for the job orchestrator.
type Pipeline struct {
	Workers            int `toml:"workers"`
	CompletedRetention int `toml:"completed_retention"`
}

// Transcode contains configuration for canonical audio extraction.
type Transcode struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	SpeechFilter   bool    `toml:"speech_filter"`
	GainDB         float64 `toml:"gain_db"`
}

// Validation contains thresholds for the audio validity checks.
type Validation struct {
	MinBytes           int64    `toml:"min_bytes"`
	MaxBytes           int64    `toml:"max_bytes"`
	MinDurationSeconds float64  `toml:"min_duration_seconds"`
	MaxDurationSeconds float64  `toml:"max_duration_seconds"`
	MaxChannels        int      `toml:"max_channels"`
	MinSampleRate      int      `toml:"min_sample_rate"`
	SilenceFloorDB     float64  `toml:"silence_floor_db"`
	QuietFloorDB       float64  `toml:"quiet_floor_db"`
	GainRescueDB       float64  `toml:"gain_rescue_db"`
	Extensions         []string `toml:"extensions"`
}

// Fetch contains configuration for remote media retrieval.
type Fetch struct {
	Downloader     string `toml:"downloader"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WhisperAPI contains configuration for the hosted Whisper transcription engine.
type WhisperAPI struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains configuration for the Gemini transcription engine. Multiple
// API keys rotate when one is quota-exhausted.
type Gemini struct {
	Enabled        bool     `toml:"enabled"`
	APIKeys        []string `toml:"api_keys"`
	Model          string   `toml:"model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// WhisperCpp contains configuration for the local whisper.cpp engine.
type WhisperCpp struct {
	Enabled        bool   `toml:"enabled"`
	Binary         string `toml:"binary"`
	ModelPath      string `toml:"model_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription groups the engine configurations. The chain runs engines in a
// fixed priority order: hosted Whisper, Gemini, then whisper.cpp.
type Transcription struct {
	WhisperAPI WhisperAPI `toml:"whisper_api"`
	Gemini     Gemini     `toml:"gemini"`
	WhisperCpp WhisperCpp `toml:"whisper_cpp"`
}

// LLM contains chat-completions connection settings for summarization.
type LLM struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Local contains configuration for the extractive fallback summarizer.
type Local struct {
	ChunkWords int `toml:"chunk_words"`
}

// Summarization contains configuration for summary generation.
type Summarization struct {
	MinInputWords int    `toml:"min_input_words"`
	DefaultLength string `toml:"default_length"`
	DefaultFormat string `toml:"default_format"`
	LLM           LLM    `toml:"llm"`
	Local         Local  `toml:"local"`
}

// Watch contains configuration for drop-folder ingestion.
type Watch struct {
	Enabled       bool   `toml:"enabled"`
	Dir           string `toml:"dir"`
	SettleSeconds int    `toml:"settle_seconds"`
}

// API contains configuration for the HTTP API server. A non-empty token
// requires callers to present it as a bearer credential.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Failed         bool   `toml:"failed"`
}

// Config encapsulates all configuration values for Recap.
//
// Configuration sections by subsystem:
//   - Paths: work, cache, and log directories
//   - Logging: log format and level
//   - Pipeline: worker pool size and completed-job retention
//   - Transcode: canonical audio extraction timeout and speech filter
//   - Validation: audio validity thresholds
//   - Fetch: remote media download tool and timeout
//   - Transcription: per-engine settings (hosted Whisper, Gemini, whisper.cpp)
//   - Summarization: LLM connection plus local fallback settings
//   - Watch: drop-folder ingestion
//   - API: HTTP bind address
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Transcode     Transcode     `toml:"transcode"`
	Validation    Validation    `toml:"validation"`
	Fetch         Fetch         `toml:"fetch"`
	Transcription Transcription `toml:"transcription"`
	Summarization Summarization `toml:"summarization"`
	Watch         Watch         `toml:"watch"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/recap/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The watch directory is created on a best-effort basis so the daemon can run
// when it points at storage that is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Watch.Enabled && strings.TrimSpace(c.Watch.Dir) != "" {
		_ = os.MkdirAll(c.Watch.Dir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// DownloaderBinary returns the executable used to fetch remote media.
func (c *Config) DownloaderBinary() string {
	return c.Fetch.Downloader
}

// SocketPath returns the Unix socket the daemon listens on for CLI requests.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "recap.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "recap", "media")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/recap/media"
	}
	return filepath.Join(home, ".cache", "recap", "media")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains common LLM connection settings used across features.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// SummaryLLM returns the chat-completions settings for the summarizer backend.
func (c *Config) SummaryLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.Summarization.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.Summarization.LLM.BaseURL),
		Model:          strings.TrimSpace(c.Summarization.LLM.Model),
		Referer:        strings.TrimSpace(c.Summarization.LLM.Referer),
		Title:          strings.TrimSpace(c.Summarization.LLM.Title),
		TimeoutSeconds: c.Summarization.LLM.TimeoutSeconds,
	}
}
