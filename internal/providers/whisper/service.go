package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	langpkg "clipforge/internal/language"
	"clipforge/internal/services"
	"clipforge/internal/transcript"
)

// DefaultModel balances speed and accuracy for spoken video audio.
const DefaultModel = "small"

// Config holds the local whisper CLI settings.
type Config struct {
	// Binary is the whisper executable. Empty means "whisper" on PATH.
	Binary string
	// Model selects the checkpoint size.
	Model string
	// WorkDir receives the JSON output files.
	WorkDir string
	// Timeout bounds a single transcription run. Zero means no bound.
	Timeout time.Duration
}

// Service transcribes audio with a locally installed whisper CLI. It is the
// free tier's transcriber.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Name identifies the provider in logs and fallback errors.
func (s *Service) Name() string { return "whisper-local" }

// run executes a command under the configured timeout, using the custom
// runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w after %s", name, services.ErrTimeout, s.cfg.Timeout)
		}
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs whisper over the audio file and parses the JSON output it
// writes next to it. The language may be a code or "auto".
func (s *Service) Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error) {
	if audioPath == "" {
		return nil, fmt.Errorf("transcribe: audio path required")
	}
	outputDir := s.cfg.WorkDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(audioPath, outputDir, language)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("%w: whisper: %v", services.ErrProviderUnavailable, err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return segments, nil
}

// buildArgs constructs the whisper CLI arguments.
func (s *Service) buildArgs(audioPath, outputDir, language string) []string {
	args := []string{
		audioPath,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// whisperSegment mirrors one entry of the whisper JSON output.
type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperPayload struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
}

// LoadSegments reads a whisper JSON output file into transcript segments.
func LoadSegments(jsonPath string) ([]transcript.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}

	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	transcript.Reindex(segments)
	return segments, nil
}
