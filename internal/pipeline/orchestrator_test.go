package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/progress"
	"clipforge/internal/services"
	"clipforge/internal/settings"
	"clipforge/internal/testsupport"
	"clipforge/internal/tier"
	"clipforge/internal/transcript"
)

func makeProbe(t *testing.T, duration float64, width, height int, hasAudio bool) func(context.Context, string) (ffprobe.Result, error) {
	t.Helper()
	audio := ""
	if hasAudio {
		audio = `,{"index": 1, "codec_type": "audio", "channels": 2}`
	}
	payload := fmt.Sprintf(`{
  "streams": [{"index": 0, "codec_type": "video", "width": %d, "height": %d}%s],
  "format": {"duration": "%g"}
}`, width, height, audio, duration)
	return func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Parse([]byte(payload))
	}
}

type argRecorder struct {
	calls [][]string
}

func (r *argRecorder) runner() ffmpeg.Runner {
	return ffmpeg.RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		r.calls = append(r.calls, append([]string{name}, args...))
		out := args[len(args)-1]
		if strings.Contains(out, ".") && !strings.HasPrefix(out, "-") {
			return nil, os.WriteFile(out, []byte("media"), 0o644)
		}
		return nil, nil
	})
}

func (r *argRecorder) joined() string {
	var parts []string
	for _, c := range r.calls {
		parts = append(parts, strings.Join(c, " "))
	}
	return strings.Join(parts, "\n")
}

type stubTranscriber struct{ err error }

func (s *stubTranscriber) Name() string { return "stub-transcriber" }

func (s *stubTranscriber) Transcribe(context.Context, string, string) ([]transcript.Segment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []transcript.Segment{
		{Index: 1, Start: 0, End: 2.5, Text: "Ciao a tutti."},
		{Index: 2, Start: 2.5, End: 5, Text: "Benvenuti."},
	}, nil
}

type stubTranslator struct{ err error }

func (s *stubTranslator) Name() string { return "stub-translator" }

func (s *stubTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "EN:" + text, nil
}

type stubSynthesizer struct{ err error }

func (s *stubSynthesizer) Name() string { return "stub-synthesizer" }

func (s *stubSynthesizer) Synthesize(_ context.Context, text, _, _, outputPath string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, []byte("speech:"+text), 0o644)
}

type harness struct {
	orch     *Orchestrator
	store    progress.Store
	recorder *argRecorder
	inputDir string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := progress.NewMemoryStore()
	recorder := &argRecorder{}

	opts.Config = cfg
	opts.Store = store
	opts.Synchronous = true
	if opts.Runner == nil {
		opts.Runner = recorder.runner()
	}
	if opts.Prober == nil {
		opts.Prober = makeProbe(t, 45, 1280, 720, true)
	}
	if opts.FreeTranscriber == nil {
		opts.FreeTranscriber = &stubTranscriber{}
	}
	if opts.FreeTranslator == nil {
		opts.FreeTranslator = &stubTranslator{}
	}
	if opts.FreeSynthesizer == nil {
		opts.FreeSynthesizer = &stubSynthesizer{}
	}
	if opts.PaidTranscriber == nil {
		opts.PaidTranscriber = &stubTranscriber{err: errors.New("paid disabled in test")}
	}
	if opts.PaidTranslator == nil {
		opts.PaidTranslator = &stubTranslator{err: errors.New("paid disabled in test")}
	}
	if opts.PaidSynthesizer == nil {
		opts.PaidSynthesizer = &stubSynthesizer{err: errors.New("paid disabled in test")}
	}

	orch, err := New(opts)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return &harness{orch: orch, store: store, recorder: recorder, inputDir: cfg.UploadDir}
}

func (h *harness) submit(t *testing.T, req Request) *progress.Record {
	t.Helper()
	taskID, err := h.orch.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	record, err := h.store.Get(context.Background(), taskID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record == nil {
		t.Fatal("no progress record after synchronous run")
	}
	return record
}

func basicRequest(t *testing.T, h *harness) Request {
	t.Helper()
	input := testsupport.WriteFile(t, h.inputDir, "video_3f9a2b1c-44de-4f10-9a2b-1c44de4f109a_vacanza.mp4", "video")
	return Request{
		InputPath:    input,
		OriginalName: filepath.Base(input),
		Tier:         tier.Free,
	}
}

func TestTranslationTaskCompletesWithArtifacts(t *testing.T) {
	h := newHarness(t, Options{})
	req := basicRequest(t, h)
	req.Settings = settings.Processing{
		Audio: settings.AudioSettings{
			TranslateEnabled: true,
			TargetLanguage:   "en",
			ReplaceAudio:     true,
		},
		Output: settings.OutputSettings{
			SaveTranscript:  true,
			SaveTranslation: true,
			SaveSubtitles:   true,
			SmartFilename:   true,
		},
	}

	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	if record.Percent != 100 {
		t.Fatalf("percent = %d", record.Percent)
	}
	if record.Degraded {
		t.Fatal("nothing degraded in this run")
	}
	if filepath.Base(record.OutputPath) != "vacanza_tradotto_in_inglese.mp4" {
		t.Fatalf("output name = %q", filepath.Base(record.OutputPath))
	}

	workDir := filepath.Dir(record.OutputPath)
	for _, artifact := range []string{"transcript.txt", "translation.txt", "subtitles.srt"} {
		if _, err := os.Stat(filepath.Join(workDir, artifact)); err != nil {
			t.Errorf("artifact %s missing: %v", artifact, err)
		}
	}

	// Pollers see the artifact paths on the terminal record.
	if len(record.TranscriptFiles) != 3 {
		t.Fatalf("transcript files = %v", record.TranscriptFiles)
	}
	for i, name := range []string{"transcript.txt", "translation.txt", "subtitles.srt"} {
		if filepath.Base(record.TranscriptFiles[i]) != name {
			t.Errorf("transcript file %d = %q, want %s", i, record.TranscriptFiles[i], name)
		}
	}

	translation, err := os.ReadFile(filepath.Join(workDir, "translation.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(translation), "EN:Ciao a tutti.") {
		t.Fatalf("translation = %q", translation)
	}

	// Replacement audio feeds the final render.
	if !strings.Contains(h.recorder.joined(), "speech.mp3") {
		t.Fatal("synthesized speech not wired into the render")
	}
}

func TestFreeTierAlwaysWatermarked(t *testing.T) {
	h := newHarness(t, Options{})
	req := basicRequest(t, h)
	// No overlays, no translation: the watermark must still appear.
	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	if !strings.Contains(h.recorder.joined(), "drawtext=text=") {
		t.Fatal("free tier output missing watermark layer")
	}
}

func TestProTierNotWatermarked(t *testing.T) {
	h := newHarness(t, Options{})
	req := basicRequest(t, h)
	req.Tier = tier.Pro

	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	if strings.Contains(h.recorder.joined(), "drawtext=text=") {
		t.Fatal("pro tier output must not carry a watermark")
	}
}

func TestOverlongVideoRejectedByTierPolicy(t *testing.T) {
	h := newHarness(t, Options{Prober: makeProbe(t, 400, 1280, 720, true)})
	record := h.submit(t, basicRequest(t, h))
	if record.Status != progress.StatusFailed {
		t.Fatalf("status = %s", record.Status)
	}
	if !strings.Contains(record.Message, "tier limit") {
		t.Fatalf("message = %q", record.Message)
	}
}

func TestFailedTranscriptionNamesStage(t *testing.T) {
	h := newHarness(t, Options{
		FreeTranscriber: &stubTranscriber{err: errors.New("model download failed")},
	})
	req := basicRequest(t, h)
	req.Settings.Audio = settings.AudioSettings{TranslateEnabled: true, TargetLanguage: "en"}

	record := h.submit(t, req)
	if record.Status != progress.StatusFailed {
		t.Fatalf("status = %s", record.Status)
	}
	if !strings.Contains(record.Message, "transcription") {
		t.Fatalf("failure message must name the stage: %q", record.Message)
	}
}

func TestTranslationFailureDegradesButCompletes(t *testing.T) {
	h := newHarness(t, Options{
		FreeTranslator: &stubTranslator{err: errors.New("quota exhausted")},
	})
	req := basicRequest(t, h)
	req.Settings.Audio = settings.AudioSettings{TranslateEnabled: true, TargetLanguage: "en"}

	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	if !record.Degraded {
		t.Fatal("failed translation must mark the result degraded")
	}
}

func TestSynthesisFailureAbortsTask(t *testing.T) {
	h := newHarness(t, Options{
		FreeSynthesizer: &stubSynthesizer{err: errors.New("tts down")},
	})
	req := basicRequest(t, h)
	req.Settings.Audio = settings.AudioSettings{TranslateEnabled: true, TargetLanguage: "en", ReplaceAudio: true}

	record := h.submit(t, req)
	if record.Status != progress.StatusFailed {
		t.Fatalf("synthesis failure must be fatal, got %s", record.Status)
	}
	if !strings.Contains(record.Message, "synthesis") {
		t.Fatalf("failure message must name the stage: %q", record.Message)
	}
}

func TestSubtitleOnlyTranslationKeepsOriginalAudio(t *testing.T) {
	h := newHarness(t, Options{
		// A broken synthesizer proves the stage never runs.
		FreeSynthesizer: &stubSynthesizer{err: errors.New("tts down")},
	})
	req := basicRequest(t, h)
	req.Settings.Audio = settings.AudioSettings{TranslateEnabled: true, TargetLanguage: "en"}
	req.Settings.Output.SaveSubtitles = true

	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	if strings.Contains(h.recorder.joined(), "speech.mp3") {
		t.Fatal("subtitle-only translation must not touch the soundtrack")
	}
	if len(record.TranscriptFiles) != 1 || filepath.Base(record.TranscriptFiles[0]) != "subtitles.srt" {
		t.Fatalf("transcript files = %v", record.TranscriptFiles)
	}
}

func TestSaveAudioReportsSpeechArtifact(t *testing.T) {
	h := newHarness(t, Options{})
	req := basicRequest(t, h)
	req.Settings.Audio = settings.AudioSettings{TranslateEnabled: true, TargetLanguage: "en"}
	req.Settings.Output.SaveAudio = true

	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	found := false
	for _, file := range record.TranscriptFiles {
		if filepath.Base(file) == "speech.mp3" {
			found = true
			if _, err := os.Stat(file); err != nil {
				t.Fatalf("speech artifact missing: %v", err)
			}
		}
	}
	if !found {
		t.Fatalf("speech artifact not reported: %v", record.TranscriptFiles)
	}
	// Without ReplaceAudio the render keeps the original track.
	if strings.Contains(h.recorder.joined(), "-map 1:a") {
		t.Fatal("saved speech must not replace the output soundtrack")
	}
}

func TestShorterStreamBoundsExport(t *testing.T) {
	divergent := `{
  "streams": [{"index": 0, "codec_type": "video", "width": 1280, "height": 720},
              {"index": 1, "codec_type": "audio", "channels": 2, "duration": "30"}],
  "format": {"duration": "100"}
}`
	rendered := `{
  "streams": [{"index": 0, "codec_type": "video", "width": 1280, "height": 720}],
  "format": {"duration": "30"}
}`
	var inputPath string
	h := newHarness(t, Options{
		Prober: func(_ context.Context, path string) (ffprobe.Result, error) {
			if path == inputPath {
				return ffprobe.Parse([]byte(divergent))
			}
			return ffprobe.Parse([]byte(rendered))
		},
	})
	req := basicRequest(t, h)
	inputPath = req.InputPath

	record := h.submit(t, req)
	if record.Status != progress.StatusCompleted {
		t.Fatalf("status = %s (%s)", record.Status, record.Message)
	}
	// The 30s audio stream bounds the export: one pass, no chunking.
	if len(h.recorder.calls) != 1 {
		t.Fatalf("expected a single render invocation, got %d:\n%s", len(h.recorder.calls), h.recorder.joined())
	}
	joined := h.recorder.joined()
	if !strings.Contains(joined, "-t 30.000") {
		t.Fatalf("render not bounded to the shorter stream: %s", joined)
	}
	if strings.Contains(joined, "60.000") {
		t.Fatalf("render used the longer video duration: %s", joined)
	}
}

func TestSubmitRejectsMissingInput(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.orch.Submit(context.Background(), Request{
		InputPath:    filepath.Join(h.inputDir, "absent.mp4"),
		OriginalName: "absent.mp4",
		Tier:         tier.Free,
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitRejectsInvalidSettings(t *testing.T) {
	h := newHarness(t, Options{})
	req := basicRequest(t, h)
	req.Settings.Audio = settings.AudioSettings{TranslateEnabled: true, TargetLanguage: "klingon"}

	_, err := h.orch.Submit(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentLimitEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := progress.NewMemoryStore()
	recorder := &argRecorder{}
	gate := make(chan struct{})
	probe := makeProbe(t, 45, 1280, 720, true)

	orch, err := New(Options{
		Config: cfg,
		Store:  store,
		Runner: recorder.runner(),
		Prober: func(ctx context.Context, path string) (ffprobe.Result, error) {
			<-gate
			return probe(ctx, path)
		},
		FreeTranscriber: &stubTranscriber{},
		FreeTranslator:  &stubTranslator{},
		FreeSynthesizer: &stubSynthesizer{},
		PaidTranscriber: &stubTranscriber{},
		PaidTranslator:  &stubTranslator{},
		PaidSynthesizer: &stubSynthesizer{},
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	input := testsupport.WriteFile(t, cfg.UploadDir, "clip.mp4", "video")
	req := Request{InputPath: input, OriginalName: "clip.mp4", Tier: tier.Free}

	first, err := orch.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Free tier allows a single concurrent task.
	if _, err := orch.Submit(context.Background(), req); !errors.Is(err, services.ErrPolicyViolation) {
		t.Fatalf("expected policy violation, got %v", err)
	}

	close(gate)
	waitForTerminal(t, store, first)

	// The slot is released just after the terminal record lands; poll briefly.
	var resubmitErr error
	for i := 0; i < 100; i++ {
		if _, resubmitErr = orch.Submit(context.Background(), req); resubmitErr == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if resubmitErr != nil {
		t.Fatalf("slot must free up after completion: %v", resubmitErr)
	}
}

func waitForTerminal(t *testing.T, store progress.Store, taskID string) {
	t.Helper()
	for i := 0; i < 500; i++ {
		record, err := store.Get(context.Background(), taskID)
		if err == nil && record != nil && record.Status.Terminal() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
}
