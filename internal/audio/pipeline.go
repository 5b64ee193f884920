package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/providers"
	"clipforge/internal/services"
	"clipforge/internal/textchunk"
	"clipforge/internal/transcript"
)

// DefaultMaxChunkChars is the largest text chunk sent to a provider in one
// request.
const DefaultMaxChunkChars = 4500

// Options configures a Pipeline.
type Options struct {
	Transcriber  providers.Transcriber
	Translator   providers.Translator
	Synthesizer  providers.Synthesizer
	Runner       ffmpeg.Runner
	FFmpegBinary string
	// MaxChunkChars bounds translation and synthesis request sizes.
	MaxChunkChars int
	Logger        *slog.Logger
}

// Pipeline runs the audio leg of processing: extract, transcribe, translate,
// synthesize. Steps are exposed individually so the orchestrator can record
// progress between them.
type Pipeline struct {
	transcriber   providers.Transcriber
	translator    providers.Translator
	synthesizer   providers.Synthesizer
	runner        ffmpeg.Runner
	ffmpegBinary  string
	maxChunkChars int
	logger        *slog.Logger
}

// New creates a Pipeline from options, filling defaults.
func New(opts Options) *Pipeline {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = DefaultMaxChunkChars
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Pipeline{
		transcriber:   opts.Transcriber,
		translator:    opts.Translator,
		synthesizer:   opts.Synthesizer,
		runner:        opts.Runner,
		ffmpegBinary:  opts.FFmpegBinary,
		maxChunkChars: opts.MaxChunkChars,
		logger:        opts.Logger,
	}
}

// ExtractAudio writes the source's audio track as mono 16kHz WAV, the format
// transcription providers expect.
func (p *Pipeline) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outputPath,
	}
	if _, err := p.runner.Run(ctx, p.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "extract", "extract audio track", err)
	}
	return nil
}

// ExtractOriginalAudio copies the source audio as MP3 for the keep-original
// artifact.
func (p *Pipeline) ExtractOriginalAudio(ctx context.Context, videoPath, outputPath string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}
	if _, err := p.runner.Run(ctx, p.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "extract original", "extract original audio", err)
	}
	return nil
}

// Transcribe converts extracted audio into timed segments. Failure aborts
// the task; there is nothing sensible to continue with.
func (p *Pipeline) Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error) {
	segments, err := p.transcriber.Transcribe(ctx, audioPath, language)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcription", "transcribe", "transcribe audio", err)
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcription", "transcribe", "no speech recognized", nil)
	}
	return segments, nil
}

// TranslateText translates the full text in provider-sized chunks. A failed
// chunk keeps its original text and marks the result degraded; chunk order is
// always preserved. Only context cancellation aborts.
func (p *Pipeline) TranslateText(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, bool, error) {
	chunks := textchunk.Split(text, p.maxChunkChars)
	if len(chunks) == 0 {
		return "", false, nil
	}

	degraded := false
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		translated, err := p.translator.Translate(ctx, chunk, sourceLanguage, targetLanguage)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			p.logger.Warn("translation chunk failed, keeping original text",
				logging.Int("chunk", i), logging.Error(err))
			out[i] = chunk
			degraded = true
			continue
		}
		out[i] = translated
	}
	return strings.Join(out, " "), degraded, nil
}

// TranslateSegments translates each transcript segment, preserving timings.
// Failed segments keep their original text and mark the result degraded.
func (p *Pipeline) TranslateSegments(ctx context.Context, segments []transcript.Segment, sourceLanguage, targetLanguage string) ([]transcript.Segment, bool, error) {
	degraded := false
	out := make([]transcript.Segment, len(segments))
	copy(out, segments)
	for i := range out {
		translated, err := p.translator.Translate(ctx, out[i].Text, sourceLanguage, targetLanguage)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			p.logger.Warn("segment translation failed, keeping original text",
				logging.Int("segment", out[i].Index), logging.Error(err))
			degraded = true
			continue
		}
		out[i].Text = translated
	}
	return out, degraded, nil
}

// Synthesize renders text as speech, chunking long text and concatenating
// the audio. Unlike translation, a failed chunk aborts: a gap in the speech
// track is worse than no speech track.
func (p *Pipeline) Synthesize(ctx context.Context, text, language, voice, workDir string) (string, error) {
	chunks := textchunk.Split(text, p.maxChunkChars)
	if len(chunks) == 0 {
		return "", services.Wrap(services.ErrValidation, "synthesis", "synthesize", "no text to synthesize", nil)
	}

	outputPath := filepath.Join(workDir, "speech.mp3")
	if len(chunks) == 1 {
		if err := p.synthesizer.Synthesize(ctx, chunks[0], language, voice, outputPath); err != nil {
			return "", services.Wrap(services.ErrProviderUnavailable, "synthesis", "synthesize", "synthesize speech", err)
		}
		return outputPath, nil
	}

	chunkPaths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		chunkPath := filepath.Join(workDir, fmt.Sprintf("speech_chunk_%03d.mp3", i))
		if err := p.synthesizer.Synthesize(ctx, chunk, language, voice, chunkPath); err != nil {
			return "", services.Wrap(services.ErrProviderUnavailable, "synthesis", "synthesize",
				fmt.Sprintf("synthesize speech chunk %d of %d", i+1, len(chunks)), err)
		}
		chunkPaths = append(chunkPaths, chunkPath)
	}

	if err := p.concatAudio(ctx, chunkPaths, outputPath); err != nil {
		return "", err
	}
	for _, path := range chunkPaths {
		_ = os.Remove(path)
	}
	return outputPath, nil
}

// concatAudio joins audio chunk files with the concat demuxer.
func (p *Pipeline) concatAudio(ctx context.Context, paths []string, outputPath string) error {
	listPath := outputPath + ".txt"
	var list strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&list, "file '%s'\n", path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesis", "concat", "write concat list", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
	if _, err := p.runner.Run(ctx, p.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesis", "concat", "concatenate speech chunks", err)
	}
	return nil
}
