package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/composite"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/services"
)

// DurationTolerance is the acceptable drift between the expected and actual
// output duration, in seconds.
const DurationTolerance = 1.0

// Options configures an Exporter.
type Options struct {
	Runner ffmpeg.Runner
	// MuxRunner executes the final stitch, which may need a different
	// timeout than per-window encodes. Defaults to Runner.
	MuxRunner    ffmpeg.Runner
	FFmpegBinary string
	// Prober returns a file's duration in seconds, used for the output
	// duration guard.
	Prober func(ctx context.Context, path string) (float64, error)
	// ChunkSeconds is the maximum render window length.
	ChunkSeconds float64
	Preset       string
	CRF          int
	Logger       *slog.Logger
}

// Exporter renders a composite spec to the final video file. Long composites
// are rendered in bounded time windows and stitched, keeping peak memory and
// single-invocation runtime flat regardless of video length.
type Exporter struct {
	runner       ffmpeg.Runner
	muxRunner    ffmpeg.Runner
	ffmpegBinary string
	prober       func(ctx context.Context, path string) (float64, error)
	chunkSeconds float64
	encode       composite.EncodeOptions
	logger       *slog.Logger
}

// New creates an Exporter from options, filling defaults.
func New(opts Options) *Exporter {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.ChunkSeconds <= 0 {
		opts.ChunkSeconds = 60
	}
	if opts.Preset == "" {
		opts.Preset = "ultrafast"
	}
	if opts.CRF <= 0 {
		opts.CRF = 23
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.MuxRunner == nil {
		opts.MuxRunner = opts.Runner
	}
	return &Exporter{
		runner:       opts.Runner,
		muxRunner:    opts.MuxRunner,
		ffmpegBinary: opts.FFmpegBinary,
		prober:       opts.Prober,
		chunkSeconds: opts.ChunkSeconds,
		encode:       composite.EncodeOptions{Preset: opts.Preset, CRF: opts.CRF},
		logger:       opts.Logger,
	}
}

// Export renders the composite into outputPath, using workDir for
// intermediate chunk files. Chunk files are removed on success and failure
// alike; only the final output survives.
func (e *Exporter) Export(ctx context.Context, spec *composite.Spec, workDir, outputPath string) error {
	duration := spec.Duration()
	windows := composite.PlanWindows(duration, e.chunkSeconds)
	if len(windows) == 0 {
		return services.Wrap(services.ErrValidation, "export", "plan", "composite has no duration", nil)
	}

	if len(windows) == 1 {
		e.logger.Info("rendering in a single pass", logging.Float64("duration", duration))
		if err := e.renderWindow(ctx, spec, windows[0], outputPath); err != nil {
			return err
		}
		return e.verifyDuration(ctx, outputPath, duration)
	}

	e.logger.Info("rendering in chunks",
		logging.Float64("duration", duration),
		logging.Int("chunks", len(windows)))

	chunkDir := filepath.Join(workDir, "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "prepare", "create chunk dir", err)
	}
	defer os.RemoveAll(chunkDir)

	chunkPaths := make([]string, 0, len(windows))
	for i, window := range windows {
		chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.mp4", i))
		if err := e.renderWindow(ctx, spec, window, chunkPath); err != nil {
			return err
		}
		if err := verifyChunk(chunkPath); err != nil {
			return err
		}
		e.logger.Info("chunk rendered",
			logging.Int("chunk", i+1),
			logging.Int("total", len(windows)),
			logging.Float64("offset", window.Offset))
		chunkPaths = append(chunkPaths, chunkPath)
	}

	if err := e.concat(ctx, chunkPaths, outputPath); err != nil {
		return err
	}
	return e.verifyDuration(ctx, outputPath, duration)
}

// renderWindow encodes one time window of the composite.
func (e *Exporter) renderWindow(ctx context.Context, spec *composite.Spec, window composite.Window, outputPath string) error {
	args, err := composite.BuildWindowArgs(spec, window, e.encode, outputPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "export", "render", "build filter graph", err)
	}
	if _, err := e.runner.Run(ctx, e.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "render",
			fmt.Sprintf("render window at %.1fs", window.Offset), err)
	}
	return nil
}

// verifyChunk rejects missing or empty chunk files before they reach concat.
func verifyChunk(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "verify",
			fmt.Sprintf("chunk %s missing", filepath.Base(path)), err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "export", "verify",
			fmt.Sprintf("chunk %s is empty", filepath.Base(path)), nil)
	}
	return nil
}

// concat stitches chunk files with the concat demuxer. The output is
// re-encoded rather than stream-copied so chunk boundary timestamps cannot
// leak into the final file.
func (e *Exporter) concat(ctx context.Context, chunkPaths []string, outputPath string) error {
	listPath := outputPath + ".concat.txt"
	var list strings.Builder
	for _, path := range chunkPaths {
		fmt.Fprintf(&list, "file '%s'\n", path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "concat", "write concat list", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-preset", e.encode.Preset,
		"-crf", fmt.Sprintf("%d", e.encode.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outputPath,
	}
	if _, err := e.muxRunner.Run(ctx, e.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "concat", "stitch chunks", err)
	}
	return nil
}

// verifyDuration guards the final file against silent truncation.
func (e *Exporter) verifyDuration(ctx context.Context, outputPath string, expected float64) error {
	if e.prober == nil || expected <= 0 {
		return nil
	}
	actual, err := e.prober(ctx, outputPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "verify", "probe output duration", err)
	}
	if math.Abs(actual-expected) > DurationTolerance {
		return services.Wrap(services.ErrExternalTool, "export", "verify",
			fmt.Sprintf("output runs %.2fs, expected %.2fs", actual, expected), nil)
	}
	return nil
}
