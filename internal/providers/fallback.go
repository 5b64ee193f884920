package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/transcript"
)

// TranscriberChain tries each transcriber in order until one succeeds. The
// order encodes policy: free providers first, paid fallbacks last.
type TranscriberChain struct {
	providers []Transcriber
	logger    *slog.Logger
}

// NewTranscriberChain builds a chain. An empty provider list is permitted
// and always fails with ErrProviderUnavailable.
func NewTranscriberChain(logger *slog.Logger, providers ...Transcriber) *TranscriberChain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TranscriberChain{providers: providers, logger: logger}
}

func (c *TranscriberChain) Name() string { return chainName(len(c.providers)) }

func (c *TranscriberChain) Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error) {
	var errs []string
	for _, p := range c.providers {
		segments, err := p.Transcribe(ctx, audioPath, language)
		if err == nil {
			return segments, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Warn("transcription provider failed, trying next",
			logging.String("provider", p.Name()), logging.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
	}
	return nil, fmt.Errorf("%w: all transcribers failed: %s", services.ErrProviderUnavailable, strings.Join(errs, "; "))
}

// TranslatorChain tries each translator in order until one succeeds.
type TranslatorChain struct {
	providers []Translator
	logger    *slog.Logger
}

func NewTranslatorChain(logger *slog.Logger, providers ...Translator) *TranslatorChain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TranslatorChain{providers: providers, logger: logger}
}

func (c *TranslatorChain) Name() string { return chainName(len(c.providers)) }

func (c *TranslatorChain) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	var errs []string
	for _, p := range c.providers {
		out, err := p.Translate(ctx, text, sourceLanguage, targetLanguage)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		c.logger.Warn("translation provider failed, trying next",
			logging.String("provider", p.Name()), logging.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
	}
	return "", fmt.Errorf("%w: all translators failed: %s", services.ErrProviderUnavailable, strings.Join(errs, "; "))
}

// SynthesizerChain tries each synthesizer in order until one succeeds.
type SynthesizerChain struct {
	providers []Synthesizer
	logger    *slog.Logger
}

func NewSynthesizerChain(logger *slog.Logger, providers ...Synthesizer) *SynthesizerChain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SynthesizerChain{providers: providers, logger: logger}
}

func (c *SynthesizerChain) Name() string { return chainName(len(c.providers)) }

func (c *SynthesizerChain) Synthesize(ctx context.Context, text, language, voice, outputPath string) error {
	var errs []string
	for _, p := range c.providers {
		err := p.Synthesize(ctx, text, language, voice, outputPath)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		c.logger.Warn("speech provider failed, trying next",
			logging.String("provider", p.Name()), logging.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
	}
	return fmt.Errorf("%w: all synthesizers failed: %s", services.ErrProviderUnavailable, strings.Join(errs, "; "))
}

func chainName(n int) string {
	return fmt.Sprintf("fallback-chain(%d)", n)
}
