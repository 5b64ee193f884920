package providers

import (
	"context"

	"clipforge/internal/transcript"
)

// Transcriber converts an audio file into timed transcript segments.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error)
}

// Translator translates text between languages. Implementations receive text
// already chunked to their size limits.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

// Synthesizer renders text as speech audio written to outputPath.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, language, voice, outputPath string) error
}
