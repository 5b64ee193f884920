package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/services"
	"clipforge/internal/transcript"
)

type flakyTranslator struct {
	failOn map[int]bool
	calls  int
}

func (f *flakyTranslator) Name() string { return "flaky" }

func (f *flakyTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.calls++
	if f.failOn[f.calls] {
		return "", errors.New("quota")
	}
	return "T:" + text, nil
}

type recordingSynthesizer struct {
	failOn int
	calls  int
}

func (r *recordingSynthesizer) Name() string { return "recording" }

func (r *recordingSynthesizer) Synthesize(_ context.Context, text, _, _, outputPath string) error {
	r.calls++
	if r.failOn > 0 && r.calls == r.failOn {
		return errors.New("tts down")
	}
	return os.WriteFile(outputPath, []byte(text), 0o644)
}

func noopRunner() ffmpeg.Runner {
	return ffmpeg.RunnerFunc(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		// Simulate ffmpeg writing its output file (the last argument).
		return nil, os.WriteFile(args[len(args)-1], []byte("media"), 0o644)
	})
}

func TestTranslateTextDegradesPerChunkPreservingOrder(t *testing.T) {
	p := New(Options{
		Translator:    &flakyTranslator{failOn: map[int]bool{2: true}},
		Runner:        noopRunner(),
		MaxChunkChars: 12,
	})

	out, degraded, err := p.TranslateText(context.Background(), "First one. Second one. Third one.", "en", "it")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded result")
	}
	// The failed middle chunk keeps its original text, in position.
	if out != "T:First one. Second one. T:Third one." {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateTextAllChunksSucceed(t *testing.T) {
	p := New(Options{Translator: &flakyTranslator{}, Runner: noopRunner(), MaxChunkChars: 4500})
	out, degraded, err := p.TranslateText(context.Background(), "Hello there.", "en", "es")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if degraded {
		t.Fatal("nothing failed, result must not be degraded")
	}
	if out != "T:Hello there." {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateSegmentsKeepsTimingsOnFailure(t *testing.T) {
	p := New(Options{Translator: &flakyTranslator{failOn: map[int]bool{1: true}}, Runner: noopRunner()})
	in := []transcript.Segment{
		{Index: 1, Start: 0, End: 2, Text: "Uno."},
		{Index: 2, Start: 2, End: 4, Text: "Due."},
	}
	out, degraded, err := p.TranslateSegments(context.Background(), in, "it", "en")
	if err != nil {
		t.Fatalf("translate segments: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded result")
	}
	if out[0].Text != "Uno." || out[1].Text != "T:Due." {
		t.Fatalf("texts = %q, %q", out[0].Text, out[1].Text)
	}
	if out[0].Start != 0 || out[1].End != 4 {
		t.Fatal("timings must be preserved")
	}
	if in[1].Text != "Due." {
		t.Fatal("input slice must not be mutated")
	}
}

func TestSynthesizeSingleChunk(t *testing.T) {
	dir := t.TempDir()
	p := New(Options{Synthesizer: &recordingSynthesizer{}, Runner: noopRunner(), MaxChunkChars: 4500})

	path, err := p.Synthesize(context.Background(), "Short text.", "en", "", dir)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Short text." {
		t.Fatalf("audio = %q", data)
	}
}

func TestSynthesizeChunkedConcatenatesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	var concatArgs []string
	runner := ffmpeg.RunnerFunc(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		concatArgs = args
		return nil, os.WriteFile(args[len(args)-1], []byte("joined"), 0o644)
	})
	p := New(Options{Synthesizer: &recordingSynthesizer{}, Runner: runner, MaxChunkChars: 15})

	path, err := p.Synthesize(context.Background(), "First one. Second one. Third one.", "en", "", dir)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if filepath.Base(path) != "speech.mp3" {
		t.Fatalf("output = %q", path)
	}
	joined := strings.Join(concatArgs, " ")
	if !strings.Contains(joined, "-f concat") {
		t.Fatalf("expected concat demuxer invocation: %s", joined)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "speech_chunk_") {
			t.Fatalf("chunk file %s not cleaned up", e.Name())
		}
	}
}

func TestSynthesizeChunkFailureAborts(t *testing.T) {
	dir := t.TempDir()
	p := New(Options{Synthesizer: &recordingSynthesizer{failOn: 2}, Runner: noopRunner(), MaxChunkChars: 15})

	_, err := p.Synthesize(context.Background(), "First one. Second one. Third one.", "en", "", dir)
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "chunk 2") {
		t.Fatalf("error should name the failed chunk: %v", err)
	}
}

func TestExtractAudioArgs(t *testing.T) {
	var got []string
	runner := ffmpeg.RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return nil, nil
	})
	p := New(Options{Runner: runner, FFmpegBinary: "ffmpeg"})

	if err := p.ExtractAudio(context.Background(), "in.mp4", "out.wav"); err != nil {
		t.Fatalf("extract: %v", err)
	}
	joined := strings.Join(got, " ")
	for _, want := range []string{"ffmpeg", "-vn", "-ar 16000", "-ac 1", "out.wav"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}

func TestTranscribeEmptyResultFails(t *testing.T) {
	p := New(Options{
		Transcriber: transcriberFunc(func(context.Context, string, string) ([]transcript.Segment, error) {
			return nil, nil
		}),
		Runner: noopRunner(),
	})
	_, err := p.Transcribe(context.Background(), "a.wav", "auto")
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}

type transcriberFunc func(ctx context.Context, audioPath, language string) ([]transcript.Segment, error)

func (f transcriberFunc) Name() string { return "func" }

func (f transcriberFunc) Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error) {
	return f(ctx, audioPath, language)
}
