package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clipforge/internal/audio"
	"clipforge/internal/composite"
	"clipforge/internal/config"
	"clipforge/internal/exporter"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/naming"
	"clipforge/internal/overlay"
	"clipforge/internal/progress"
	"clipforge/internal/providers"
	"clipforge/internal/providers/googlefree"
	"clipforge/internal/providers/openai"
	"clipforge/internal/providers/whisper"
	"clipforge/internal/services"
	"clipforge/internal/settings"
	"clipforge/internal/subtitle"
	"clipforge/internal/tier"
	"clipforge/internal/transcript"
)

// Request describes one video to process.
type Request struct {
	InputPath    string
	OriginalName string
	Tier         tier.Name
	Settings     settings.Processing
}

// Options wires an Orchestrator. Nil fields get production defaults; tests
// inject fakes.
type Options struct {
	Config *config.Config
	Store  progress.Store
	Logger *slog.Logger

	Runner    ffmpeg.Runner
	MuxRunner ffmpeg.Runner
	Prober    func(ctx context.Context, path string) (ffprobe.Result, error)

	FreeTranscriber providers.Transcriber
	PaidTranscriber providers.Transcriber
	FreeTranslator  providers.Translator
	PaidTranslator  providers.Translator
	FreeSynthesizer providers.Synthesizer
	PaidSynthesizer providers.Synthesizer

	// Synchronous forces Submit to run the task inline instead of spawning a
	// goroutine. Tests use it to avoid polling.
	Synchronous bool
}

// Orchestrator validates, admits, and drives processing tasks through the
// fixed stage order, recording pollable progress after every stage.
type Orchestrator struct {
	cfg    *config.Config
	store  progress.Store
	logger *slog.Logger
	opts   Options

	mu     sync.Mutex
	active map[tier.Name]int
}

// New creates an Orchestrator, filling unset options with the production
// implementations.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("pipeline: config required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline: progress store required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	cfg := opts.Config

	if opts.Runner == nil {
		opts.Runner = ffmpeg.NewCLI(cfg.Tools.EncodeWait())
		if opts.MuxRunner == nil {
			opts.MuxRunner = ffmpeg.NewCLI(cfg.Tools.MuxWait())
		}
	}
	if opts.MuxRunner == nil {
		opts.MuxRunner = opts.Runner
	}
	if opts.Prober == nil {
		prober := ffmpeg.NewCLI(cfg.Tools.ProbeWait())
		binary := cfg.Tools.FFprobeBinary
		opts.Prober = func(ctx context.Context, path string) (ffprobe.Result, error) {
			output, err := prober.Run(ctx, binary,
				"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
			if err != nil {
				return ffprobe.Result{}, err
			}
			return ffprobe.Parse(output)
		}
	}

	if opts.FreeTranscriber == nil {
		opts.FreeTranscriber = whisper.NewService(whisper.Config{
			Binary:  cfg.Tools.WhisperBinary,
			Model:   cfg.Tools.WhisperModel,
			Timeout: cfg.Tools.WhisperWait(),
		})
	}
	free := googlefree.NewClient(googlefree.Config{
		TranslateBaseURL: cfg.Providers.TranslateBaseURL,
		SpeechBaseURL:    cfg.Providers.SpeechBaseURL,
		Timeout:          cfg.Providers.RequestWait(),
	})
	if opts.FreeTranslator == nil {
		opts.FreeTranslator = free
	}
	if opts.FreeSynthesizer == nil {
		opts.FreeSynthesizer = free
	}

	paid := openai.NewClient(openai.Config{
		APIKey:  cfg.Providers.OpenAIAPIKey,
		BaseURL: cfg.Providers.OpenAIBaseURL,
		Timeout: cfg.Providers.RequestWait(),
	})
	if opts.PaidTranscriber == nil {
		opts.PaidTranscriber = paid
	}
	if opts.PaidTranslator == nil {
		opts.PaidTranslator = paid
	}
	if opts.PaidSynthesizer == nil {
		opts.PaidSynthesizer = paid
	}

	return &Orchestrator{
		cfg:    cfg,
		store:  opts.Store,
		logger: opts.Logger.With(logging.String(logging.FieldComponent, "pipeline")),
		opts:   opts,
		active: make(map[tier.Name]int),
	}, nil
}

// Submit validates the request, admits it against tier policy, records it as
// queued, and starts processing. It returns the task ID immediately; callers
// poll the progress store for completion.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	req.Settings.Normalize()
	if err := req.Settings.Validate(); err != nil {
		return "", err
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return "", fmt.Errorf("%w: input video %s", services.ErrNotFound, req.InputPath)
	}

	perm := tier.Lookup(req.Tier)
	if err := o.admit(req.Tier, perm); err != nil {
		return "", err
	}

	taskID := uuid.NewString()
	if err := o.store.Put(ctx, &progress.Record{
		TaskID:  taskID,
		Status:  progress.StatusQueued,
		Percent: 0,
		Message: "waiting to start",
	}); err != nil {
		o.release(req.Tier)
		return "", err
	}

	run := func() {
		defer o.release(req.Tier)
		o.process(context.WithoutCancel(ctx), taskID, req, perm)
	}
	if o.opts.Synchronous {
		run()
	} else {
		go run()
	}
	return taskID, nil
}

// Status returns the current progress record for a task, or nil if unknown.
func (o *Orchestrator) Status(ctx context.Context, taskID string) (*progress.Record, error) {
	return o.store.Get(ctx, taskID)
}

// admit enforces the tier's concurrent task limit.
func (o *Orchestrator) admit(name tier.Name, perm tier.Permissions) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if perm.ConcurrentUploadsLimit > 0 && o.active[name] >= perm.ConcurrentUploadsLimit {
		return fmt.Errorf("%w: tier allows %d concurrent task(s)",
			services.ErrPolicyViolation, perm.ConcurrentUploadsLimit)
	}
	o.active[name]++
	return nil
}

func (o *Orchestrator) release(name tier.Name) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[name] > 0 {
		o.active[name]--
	}
}

// tracker writes monotonic progress updates for one task.
type tracker struct {
	store   progress.Store
	taskID  string
	percent int
}

func (t *tracker) update(ctx context.Context, percent int, message string) {
	if percent < t.percent {
		percent = t.percent
	}
	t.percent = percent
	_ = t.store.Put(ctx, &progress.Record{
		TaskID:  t.taskID,
		Status:  progress.StatusProcessing,
		Percent: percent,
		Message: message,
	})
}

// process drives one task through the stage order. All failures end in a
// terminal failed record whose message names the failing stage.
func (o *Orchestrator) process(ctx context.Context, taskID string, req Request, perm tier.Permissions) {
	started := time.Now()
	ctx = services.WithTaskID(ctx, taskID)
	logger := o.logger.With(logging.String(logging.FieldTaskID, taskID))
	track := &tracker{store: o.store, taskID: taskID}

	fail := func(err error) {
		logger.Error("task failed", logging.Error(err))
		_ = o.store.Put(ctx, &progress.Record{
			TaskID:  taskID,
			Status:  progress.StatusFailed,
			Percent: track.percent,
			Message: services.Message(err),
		})
	}

	workDir := o.cfg.TaskWorkDir(taskID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		fail(services.Wrap(services.ErrExternalTool, "prepare", "workdir", "create task directory", err))
		return
	}

	// Exclusive ownership of the task directory. A second worker touching
	// the same task ID would corrupt chunk files mid-render.
	lock := flock.New(filepath.Join(workDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		fail(services.Wrap(services.ErrPolicyViolation, "prepare", "lock", "task directory already owned", err))
		return
	}
	defer func() { _ = lock.Unlock() }()

	result, err := o.run(ctx, taskID, req, perm, workDir, track, logger)
	if err != nil {
		fail(err)
		return
	}

	_ = o.store.Put(ctx, &progress.Record{
		TaskID:          taskID,
		Status:          progress.StatusCompleted,
		Percent:         100,
		Message:         "completed",
		OutputPath:      result.outputPath,
		TranscriptFiles: result.artifacts,
		Degraded:        result.degraded,
	})
	logger.Info("task completed",
		logging.String("output", result.outputPath),
		logging.Duration("elapsed", time.Since(started)))
}

// taskResult is what a successful run reports back to pollers.
type taskResult struct {
	outputPath string
	artifacts  []string
	degraded   bool
}

// run executes the stages and returns the final output path.
func (o *Orchestrator) run(ctx context.Context, taskID string, req Request, perm tier.Permissions, workDir string, track *tracker, logger *slog.Logger) (taskResult, error) {
	var result taskResult

	// Validate the input against tier policy.
	ctx = services.WithStage(ctx, "validate")
	probed, err := o.opts.Prober(ctx, req.InputPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "validate", "probe", "inspect input video", err)
	}
	duration := probed.DurationSeconds()
	if duration <= 0 {
		return result, services.Wrap(services.ErrValidation, "validate", "probe", "input has no duration", nil)
	}
	// When the streams disagree about length beyond the export tolerance, the
	// shorter one is authoritative so the output never trails off into
	// frozen frames or silence.
	if probed.HasAudio() {
		audioDuration := probed.AudioDurationSeconds()
		if audioDuration > 0 && math.Abs(duration-audioDuration) > exporter.DurationTolerance {
			logger.Warn("stream durations diverge, using the shorter",
				logging.Float64("video", duration),
				logging.Float64("audio", audioDuration))
			duration = math.Min(duration, audioDuration)
		}
	}
	width, height := probed.Dimensions()
	if err := perm.ValidateDuration(duration); err != nil {
		return result, err
	}
	if err := perm.ValidateQuality(height); err != nil {
		return result, err
	}
	if req.Settings.WantsAudioPipeline() && !probed.HasAudio() {
		return result, services.Wrap(services.ErrValidation, "validate", "probe", "translation requested but input has no audio track", nil)
	}
	track.update(ctx, 10, "input validated")

	// Build overlay layers.
	ctx = services.WithStage(ctx, "prepare")
	builder := overlay.NewBuilder(func(ctx context.Context, path string) (float64, error) {
		r, err := o.opts.Prober(ctx, path)
		if err != nil {
			return 0, err
		}
		return r.DurationSeconds(), nil
	}, logger)

	var layers []*overlay.Layer
	logoLayer, err := builder.Logo(req.Settings.Logo, height, workDir)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "prepare", "logo", "build logo layer", err)
	}
	if logoLayer != nil {
		layers = append(layers, logoLayer)
	}
	ctaLayer, err := builder.CTA(ctx, req.Settings.CTA, height, workDir)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "prepare", "cta", "build cta layer", err)
	}
	if ctaLayer != nil {
		layers = append(layers, ctaLayer)
	}
	if perm.WatermarkRequired {
		wm, err := builder.Watermark(o.cfg.Watermark.Text, o.cfg.Watermark.ImagePath,
			o.cfg.Watermark.Opacity, o.cfg.Watermark.SizePercent, height, workDir)
		if err != nil {
			return result, services.Wrap(services.ErrValidation, "prepare", "watermark", "build watermark layer", err)
		}
		layers = append(layers, wm)
	}
	track.update(ctx, 20, "assets prepared")

	// Audio leg: transcribe, translate, optionally synthesize.
	var speechPath string
	if req.Settings.WantsAudioPipeline() {
		leg, err := o.runAudio(ctx, req, workDir, track, logger)
		if err != nil {
			return result, err
		}
		speechPath = leg.speechPath
		result.artifacts = leg.artifacts
		result.degraded = leg.degraded
	}

	// Render and export.
	ctx = services.WithStage(ctx, "export")
	spec := &composite.Spec{
		BasePath:             req.InputPath,
		Width:                width,
		Height:               height,
		BaseDuration:         duration,
		Layers:               layers,
		ReplacementAudioPath: speechPath,
	}

	outputName := naming.FallbackName(req.OriginalName)
	if req.Settings.Output.SmartFilename {
		target := ""
		if req.Settings.Audio.TranslateEnabled {
			target = req.Settings.Audio.TargetLanguage
		}
		outputName = naming.SmartName(req.OriginalName, o.cfg.UILanguage, target)
	}
	outputPath := filepath.Join(workDir, outputName)

	exp := exporter.New(exporter.Options{
		Runner:       o.opts.Runner,
		MuxRunner:    o.opts.MuxRunner,
		FFmpegBinary: o.cfg.Tools.FFmpegBinary,
		Prober: func(ctx context.Context, path string) (float64, error) {
			r, err := o.opts.Prober(ctx, path)
			if err != nil {
				return 0, err
			}
			return r.DurationSeconds(), nil
		},
		ChunkSeconds: float64(o.cfg.Export.ChunkDurationSeconds),
		Preset:       o.cfg.Export.Preset,
		CRF:          o.cfg.Export.CRF,
		Logger:       logger,
	})
	if err := exp.Export(ctx, spec, workDir, outputPath); err != nil {
		return result, err
	}
	track.update(ctx, 75, "video rendered")

	// Keep-original artifact runs after the render so a failed export never
	// leaves partial artifacts behind.
	if req.Settings.Audio.KeepOriginal && probed.HasAudio() {
		ap := o.audioPipeline(perm, workDir, logger)
		originalPath := filepath.Join(workDir, "original_audio.mp3")
		if err := ap.ExtractOriginalAudio(ctx, req.InputPath, originalPath); err != nil {
			logger.Warn("keep-original extraction failed", logging.Error(err))
		} else {
			result.artifacts = append(result.artifacts, originalPath)
		}
	}
	track.update(ctx, 90, "output finalized")

	result.outputPath = outputPath
	return result, nil
}

// audioResult carries the audio leg's outputs back into the render.
type audioResult struct {
	speechPath string
	artifacts  []string
	degraded   bool
}

// runAudio runs the transcription, translation, and synthesis stages.
func (o *Orchestrator) runAudio(ctx context.Context, req Request, workDir string, track *tracker, logger *slog.Logger) (audioResult, error) {
	var result audioResult
	perm := tier.Lookup(req.Tier)
	ap := o.audioPipeline(perm, workDir, logger)

	ctx = services.WithStage(ctx, "transcription")
	audioPath := filepath.Join(workDir, "audio.wav")
	if err := ap.ExtractAudio(ctx, req.InputPath, audioPath); err != nil {
		return result, err
	}
	segments, err := ap.Transcribe(ctx, audioPath, req.Settings.Audio.SourceLanguage)
	if err != nil {
		return result, err
	}
	track.update(ctx, 30, "audio transcribed")

	if req.Settings.Output.SaveTranscript {
		if path := o.writeArtifact(workDir, "transcript.txt", transcript.FullText(segments), logger); path != "" {
			result.artifacts = append(result.artifacts, path)
		}
	}

	ctx = services.WithStage(ctx, "translation")
	translated, degraded, err := ap.TranslateSegments(ctx, segments,
		req.Settings.Audio.SourceLanguage, req.Settings.Audio.TargetLanguage)
	if err != nil {
		return result, services.Wrap(services.ErrProviderUnavailable, "translation", "translate", "translate transcript", err)
	}
	result.degraded = degraded
	track.update(ctx, 40, "text translated")

	translatedText := transcript.FullText(translated)
	if req.Settings.Output.SaveTranslation {
		if path := o.writeArtifact(workDir, "translation.txt", translatedText, logger); path != "" {
			result.artifacts = append(result.artifacts, path)
		}
	}
	if req.Settings.Output.SaveSubtitles {
		srtPath := filepath.Join(workDir, "subtitles.srt")
		if err := subtitle.WriteFile(srtPath, translated); err != nil {
			logger.Warn("subtitle artifact failed", logging.Error(err))
		} else {
			result.artifacts = append(result.artifacts, srtPath)
		}
	}
	track.update(ctx, 45, "subtitles written")

	// Synthesis only runs when the caller wants the dubbed track, either in
	// the output or saved alongside it. Subtitle-only translation keeps the
	// original soundtrack untouched.
	if !req.Settings.Audio.ReplaceAudio && !req.Settings.Output.SaveAudio {
		return result, nil
	}

	ctx = services.WithStage(ctx, "synthesis")
	speechPath, err := ap.Synthesize(ctx, translatedText,
		req.Settings.Audio.TargetLanguage, req.Settings.Audio.Voice, workDir)
	if err != nil {
		return result, err
	}
	track.update(ctx, 50, "speech synthesized")

	if req.Settings.Audio.ReplaceAudio {
		result.speechPath = speechPath
	}
	if req.Settings.Output.SaveAudio {
		result.artifacts = append(result.artifacts, speechPath)
	}
	return result, nil
}

// audioPipeline assembles the provider chains for the tier. Paid providers
// join the chain only when the tier unlocks them.
func (o *Orchestrator) audioPipeline(perm tier.Permissions, workDir string, logger *slog.Logger) *audio.Pipeline {
	transcribers := []providers.Transcriber{o.opts.FreeTranscriber}
	translators := []providers.Translator{o.opts.FreeTranslator}
	synthesizers := []providers.Synthesizer{o.opts.FreeSynthesizer}
	if perm.AllowsPaidProviders() {
		transcribers = append(transcribers, o.opts.PaidTranscriber)
		translators = append(translators, o.opts.PaidTranslator)
		synthesizers = append(synthesizers, o.opts.PaidSynthesizer)
	}

	return audio.New(audio.Options{
		Transcriber:   providers.NewTranscriberChain(logger, transcribers...),
		Translator:    providers.NewTranslatorChain(logger, translators...),
		Synthesizer:   providers.NewSynthesizerChain(logger, synthesizers...),
		Runner:        o.opts.Runner,
		FFmpegBinary:  o.cfg.Tools.FFmpegBinary,
		MaxChunkChars: o.cfg.Providers.MaxChunkChars,
		Logger:        logger,
	})
}

// writeArtifact returns the written path, or "" when the write failed.
func (o *Orchestrator) writeArtifact(workDir, name, content string, logger *slog.Logger) string {
	path := filepath.Join(workDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Warn("artifact write failed", logging.String("artifact", name), logging.Error(err))
		return ""
	}
	return path
}
