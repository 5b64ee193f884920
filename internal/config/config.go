package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for uploads, outputs, and logs.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Tools contains external binary configuration and per-invocation timeouts.
type Tools struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	WhisperBinary  string `toml:"whisper_binary"`
	WhisperModel   string `toml:"whisper_model"`
	MuxTimeout     int    `toml:"mux_timeout"`
	EncodeTimeout  int    `toml:"encode_timeout"`
	ProbeTimeout   int    `toml:"probe_timeout"`
	WhisperTimeout int    `toml:"whisper_timeout"`
}

// Export contains configuration for the chunked exporter.
type Export struct {
	ChunkDurationSeconds int    `toml:"chunk_duration_seconds"`
	Preset               string `toml:"preset"`
	CRF                  int    `toml:"crf"`
}

// Providers contains configuration for transcription, translation, and
// speech-synthesis providers.
type Providers struct {
	OpenAIAPIKey     string `toml:"openai_api_key"`
	OpenAIBaseURL    string `toml:"openai_base_url"`
	TranslateBaseURL string `toml:"translate_base_url"`
	SpeechBaseURL    string `toml:"speech_base_url"`
	RequestTimeout   int    `toml:"request_timeout"`
	MaxChunkChars    int    `toml:"max_chunk_chars"`
}

// Watermark contains configuration for the free-tier watermark layer.
type Watermark struct {
	Text        string  `toml:"text"`
	ImagePath   string  `toml:"image_path"`
	Opacity     float64 `toml:"opacity"`
	SizePercent float64 `toml:"size_percent"`
}

// Subtitles contains configuration for subtitle artifact generation.
type Subtitles struct {
	CueSeconds float64 `toml:"cue_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths      `toml:"paths"`
	Tools      `toml:"tools"`
	Export     Export    `toml:"export"`
	Providers  Providers `toml:"providers"`
	Watermark  Watermark `toml:"watermark"`
	Subtitles  Subtitles `toml:"subtitles"`
	Logging    Logging   `toml:"logging"`
	UILanguage string    `toml:"ui_language"`
}

// Timeout fields are stored as whole seconds in the file; these helpers
// expose them as durations. Zero or negative values disable the bound.

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// MuxWait bounds concat/mux invocations.
func (t Tools) MuxWait() time.Duration { return seconds(t.MuxTimeout) }

// EncodeWait bounds per-window encode invocations.
func (t Tools) EncodeWait() time.Duration { return seconds(t.EncodeTimeout) }

// ProbeWait bounds ffprobe invocations.
func (t Tools) ProbeWait() time.Duration { return seconds(t.ProbeTimeout) }

// WhisperWait bounds local transcription runs.
func (t Tools) WhisperWait() time.Duration { return seconds(t.WhisperTimeout) }

// RequestWait bounds provider HTTP requests.
func (p Providers) RequestWait() time.Duration { return seconds(p.RequestTimeout) }

// DefaultConfigPath returns the preferred config file location.
func DefaultConfigPath() string {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. Paths are expanded and the result validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = DefaultConfigPath()
	}
	trimmed = expandPath(trimmed)

	data, err := os.ReadFile(trimmed)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", trimmed, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", trimmed, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	path = expandPath(strings.TrimSpace(path))
	if path == "" {
		return errors.New("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UploadDir) == "" {
		return errors.New("config: upload_dir is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("config: output_dir is required")
	}
	if c.Export.ChunkDurationSeconds <= 0 {
		return fmt.Errorf("config: chunk_duration_seconds must be positive, got %d", c.Export.ChunkDurationSeconds)
	}
	if c.Export.CRF < 0 || c.Export.CRF > 51 {
		return fmt.Errorf("config: crf must be within [0,51], got %d", c.Export.CRF)
	}
	if c.Providers.MaxChunkChars <= 0 {
		return fmt.Errorf("config: max_chunk_chars must be positive, got %d", c.Providers.MaxChunkChars)
	}
	if c.Watermark.Opacity < 0 || c.Watermark.Opacity > 1 {
		return fmt.Errorf("config: watermark opacity must be within [0,1], got %v", c.Watermark.Opacity)
	}
	if c.Subtitles.CueSeconds <= 0 {
		return fmt.Errorf("config: cue_seconds must be positive, got %v", c.Subtitles.CueSeconds)
	}
	return nil
}

// EnsureDirectories creates the configured directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.UploadDir, c.OutputDir, c.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// TaskWorkDir returns the task-scoped output directory for a task identifier.
func (c *Config) TaskWorkDir(taskID string) string {
	return filepath.Join(c.OutputDir, taskID)
}

// SessionUploadDir returns the session-scoped upload directory.
func (c *Config) SessionUploadDir(sessionID string) string {
	return filepath.Join(c.UploadDir, sessionID)
}

func (c *Config) normalize() {
	c.UploadDir = expandPath(c.UploadDir)
	c.OutputDir = expandPath(c.OutputDir)
	c.LogDir = expandPath(c.LogDir)
	c.Watermark.ImagePath = expandPath(c.Watermark.ImagePath)
	if strings.TrimSpace(c.FFmpegBinary) == "" {
		c.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.FFprobeBinary) == "" {
		c.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.UILanguage) == "" {
		c.UILanguage = defaultUILanguage
	}
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
