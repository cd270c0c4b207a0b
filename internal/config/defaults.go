package config

const (
	defaultWorkDir            = "~/.local/share/recap/work"
	defaultLogDir             = "~/.local/share/recap/logs"
	defaultWatchDir           = "~/.local/share/recap/inbox"
	defaultWhisperModelPath   = "~/.local/share/recap/models/ggml-base.en.bin"
	defaultAPIBind            = "127.0.0.1:7590"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultWorkers            = 2
	defaultCompletedRetention = 20
	defaultTranscodeTimeout   = 300
	defaultMinAudioBytes      = 1024
	defaultMaxAudioBytes      = 2 << 30
	defaultMinDurationSecs    = 0.5
	defaultMaxDurationSecs    = 7200
	defaultMaxChannels        = 2
	defaultMinSampleRate      = 8000
	defaultSilenceFloorDB     = -90
	defaultQuietFloorDB       = -35
	defaultGainRescueDB       = 12
	defaultDownloader         = "yt-dlp"
	defaultFetchTimeout       = 600
	defaultWhisperAPIBaseURL  = "https://api.openai.com/v1"
	defaultWhisperAPIModel    = "whisper-1"
	defaultWhisperAPITimeout  = 300
	defaultGeminiModel        = "gemini-2.5-flash"
	defaultGeminiTimeout      = 300
	defaultWhisperCppBinary   = "whisper-cli"
	defaultWhisperCppTimeout  = 900
	defaultMinInputWords      = 50
	defaultSummaryLength      = "medium"
	defaultSummaryFormat      = "paragraph"
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMTitle           = "Recap Summarizer"
	defaultLLMTimeoutSeconds  = 60
	defaultChunkWords         = 4000
	defaultWatchSettleSecs    = 5
	defaultNotifyTimeout      = 10
)

func defaultExtensions() []string {
	return []string{
		".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg", ".opus", ".wma",
		".mp4", ".mkv", ".webm", ".mov", ".avi", ".m4v",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Pipeline: Pipeline{
			Workers:            defaultWorkers,
			CompletedRetention: defaultCompletedRetention,
		},
		Transcode: Transcode{
			TimeoutSeconds: defaultTranscodeTimeout,
		},
		Validation: Validation{
			MinBytes:           defaultMinAudioBytes,
			MaxBytes:           defaultMaxAudioBytes,
			MinDurationSeconds: defaultMinDurationSecs,
			MaxDurationSeconds: defaultMaxDurationSecs,
			MaxChannels:        defaultMaxChannels,
			MinSampleRate:      defaultMinSampleRate,
			SilenceFloorDB:     defaultSilenceFloorDB,
			QuietFloorDB:       defaultQuietFloorDB,
			GainRescueDB:       defaultGainRescueDB,
			Extensions:         defaultExtensions(),
		},
		Fetch: Fetch{
			Downloader:     defaultDownloader,
			TimeoutSeconds: defaultFetchTimeout,
		},
		Transcription: Transcription{
			WhisperAPI: WhisperAPI{
				BaseURL:        defaultWhisperAPIBaseURL,
				Model:          defaultWhisperAPIModel,
				TimeoutSeconds: defaultWhisperAPITimeout,
			},
			Gemini: Gemini{
				Model:          defaultGeminiModel,
				TimeoutSeconds: defaultGeminiTimeout,
			},
			WhisperCpp: WhisperCpp{
				Enabled:        true,
				Binary:         defaultWhisperCppBinary,
				ModelPath:      defaultWhisperModelPath,
				TimeoutSeconds: defaultWhisperCppTimeout,
			},
		},
		Summarization: Summarization{
			MinInputWords: defaultMinInputWords,
			DefaultLength: defaultSummaryLength,
			DefaultFormat: defaultSummaryFormat,
			LLM: LLM{
				BaseURL:        defaultLLMBaseURL,
				Model:          defaultLLMModel,
				Title:          defaultLLMTitle,
				TimeoutSeconds: defaultLLMTimeoutSeconds,
			},
			Local: Local{
				ChunkWords: defaultChunkWords,
			},
		},
		Watch: Watch{
			Dir:           defaultWatchDir,
			SettleSeconds: defaultWatchSettleSecs,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Failed:         true,
		},
	}
}
