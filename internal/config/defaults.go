package config

const (
	defaultUploadDir            = "~/.local/share/clipforge/uploads"
	defaultOutputDir            = "~/.local/share/clipforge/outputs"
	defaultLogDir               = "~/.local/share/clipforge/logs"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultWhisperBinary        = "whisper"
	defaultWhisperModel         = "small"
	defaultMuxTimeout           = 600
	defaultEncodeTimeout        = 1800
	defaultProbeTimeout         = 60
	defaultWhisperTimeout       = 1800
	defaultChunkDurationSeconds = 60
	defaultExportPreset         = "ultrafast"
	defaultExportCRF            = 23
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultTranslateBaseURL     = "https://translate.googleapis.com/translate_a/single"
	defaultSpeechBaseURL        = "https://translate.google.com/translate_tts"
	defaultRequestTimeout       = 60
	defaultMaxChunkChars        = 4500
	defaultWatermarkText        = "Created with ClipForge - Free Tier"
	defaultWatermarkOpacity     = 0.7
	defaultWatermarkSizePct     = 15
	defaultCueSeconds           = 3.0
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultUILanguage           = "it"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			WhisperBinary:  defaultWhisperBinary,
			WhisperModel:   defaultWhisperModel,
			MuxTimeout:     defaultMuxTimeout,
			EncodeTimeout:  defaultEncodeTimeout,
			ProbeTimeout:   defaultProbeTimeout,
			WhisperTimeout: defaultWhisperTimeout,
		},
		Export: Export{
			ChunkDurationSeconds: defaultChunkDurationSeconds,
			Preset:               defaultExportPreset,
			CRF:                  defaultExportCRF,
		},
		Providers: Providers{
			OpenAIBaseURL:    defaultOpenAIBaseURL,
			TranslateBaseURL: defaultTranslateBaseURL,
			SpeechBaseURL:    defaultSpeechBaseURL,
			RequestTimeout:   defaultRequestTimeout,
			MaxChunkChars:    defaultMaxChunkChars,
		},
		Watermark: Watermark{
			Text:        defaultWatermarkText,
			Opacity:     defaultWatermarkOpacity,
			SizePercent: defaultWatermarkSizePct,
		},
		Subtitles: Subtitles{
			CueSeconds: defaultCueSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		UILanguage: defaultUILanguage,
	}
}
