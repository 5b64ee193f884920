package settings

import (
	"fmt"
	"strings"

	"clipforge/internal/language"
	"clipforge/internal/services"
)

// Anchor names a corner or center position for an overlay element.
type Anchor string

const (
	AnchorTopLeft     Anchor = "top_left"
	AnchorTopRight    Anchor = "top_right"
	AnchorBottomLeft  Anchor = "bottom_left"
	AnchorBottomRight Anchor = "bottom_right"
	AnchorCenter      Anchor = "center"
)

// ValidAnchor reports whether the anchor names a supported position.
func ValidAnchor(a Anchor) bool {
	switch a {
	case AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight, AnchorCenter:
		return true
	}
	return false
}

// LogoSettings configures a static image overlay shown for the whole video.
type LogoSettings struct {
	Path        string  `json:"path,omitempty" toml:"path,omitempty"`
	Position    Anchor  `json:"position,omitempty" toml:"position,omitempty"`
	SizePercent float64 `json:"size_percent,omitempty" toml:"size_percent,omitempty"`
}

// CTASettings configures a timed call-to-action overlay. EndTime zero means
// the overlay runs to (and may extend past) the end of the base video.
type CTASettings struct {
	Path        string  `json:"path,omitempty" toml:"path,omitempty"`
	Position    Anchor  `json:"position,omitempty" toml:"position,omitempty"`
	SizePercent float64 `json:"size_percent,omitempty" toml:"size_percent,omitempty"`
	StartTime   float64 `json:"start_time,omitempty" toml:"start_time,omitempty"`
	EndTime     float64 `json:"end_time,omitempty" toml:"end_time,omitempty"`
	ChromaColor string  `json:"chroma_color,omitempty" toml:"chroma_color,omitempty"`
}

// AudioSettings configures the transcription/translation/synthesis pass.
// ReplaceAudio false means subtitle-only translation: the transcript is
// translated but the original soundtrack stays in the output.
type AudioSettings struct {
	TranslateEnabled bool   `json:"translate_enabled" toml:"translate_enabled"`
	SourceLanguage   string `json:"source_language,omitempty" toml:"source_language,omitempty"`
	TargetLanguage   string `json:"target_language,omitempty" toml:"target_language,omitempty"`
	Voice            string `json:"voice,omitempty" toml:"voice,omitempty"`
	ReplaceAudio     bool   `json:"replace_audio" toml:"replace_audio"`
	KeepOriginal     bool   `json:"keep_original" toml:"keep_original"`
}

// OutputSettings toggles which intermediate artifacts are kept alongside the
// final video.
type OutputSettings struct {
	SaveTranscript  bool `json:"save_transcript" toml:"save_transcript"`
	SaveTranslation bool `json:"save_translation" toml:"save_translation"`
	SaveAudio       bool `json:"save_audio" toml:"save_audio"`
	SaveSubtitles   bool `json:"save_subtitles" toml:"save_subtitles"`
	SmartFilename   bool `json:"smart_filename" toml:"smart_filename"`
}

// Processing is the complete per-task request: which overlays to composite
// and whether to run the audio pipeline.
type Processing struct {
	Logo   *LogoSettings  `json:"logo,omitempty" toml:"logo,omitempty"`
	CTA    *CTASettings   `json:"cta,omitempty" toml:"cta,omitempty"`
	Audio  AudioSettings  `json:"audio" toml:"audio"`
	Output OutputSettings `json:"output" toml:"output"`
}

// Default values matching what the upload form pre-fills.
const (
	DefaultLogoPosition    = AnchorTopRight
	DefaultLogoSizePercent = 10.0
	DefaultCTAPosition     = AnchorBottomRight
	DefaultCTASizePercent  = 20.0
)

// Normalize fills missing overlay positions and sizes with defaults and
// lowercases language codes. It mutates the receiver.
func (p *Processing) Normalize() {
	if p.Logo != nil {
		if p.Logo.Position == "" {
			p.Logo.Position = DefaultLogoPosition
		}
		if p.Logo.SizePercent <= 0 {
			p.Logo.SizePercent = DefaultLogoSizePercent
		}
	}
	if p.CTA != nil {
		if p.CTA.Position == "" {
			p.CTA.Position = DefaultCTAPosition
		}
		if p.CTA.SizePercent <= 0 {
			p.CTA.SizePercent = DefaultCTASizePercent
		}
		p.CTA.ChromaColor = strings.TrimSpace(p.CTA.ChromaColor)
	}
	p.Audio.SourceLanguage = strings.ToLower(strings.TrimSpace(p.Audio.SourceLanguage))
	p.Audio.TargetLanguage = strings.ToLower(strings.TrimSpace(p.Audio.TargetLanguage))
	if p.Audio.SourceLanguage == "" {
		p.Audio.SourceLanguage = language.Auto
	}
}

// Validate checks structural correctness of the request. Tier limits are
// enforced separately.
func (p *Processing) Validate() error {
	if p.Logo != nil {
		if !ValidAnchor(p.Logo.Position) {
			return fmt.Errorf("%w: logo position %q not recognized", services.ErrValidation, p.Logo.Position)
		}
		if p.Logo.SizePercent <= 0 || p.Logo.SizePercent > 100 {
			return fmt.Errorf("%w: logo size %.1f%% out of range", services.ErrValidation, p.Logo.SizePercent)
		}
	}
	if p.CTA != nil {
		if !ValidAnchor(p.CTA.Position) {
			return fmt.Errorf("%w: cta position %q not recognized", services.ErrValidation, p.CTA.Position)
		}
		if p.CTA.SizePercent <= 0 || p.CTA.SizePercent > 100 {
			return fmt.Errorf("%w: cta size %.1f%% out of range", services.ErrValidation, p.CTA.SizePercent)
		}
		if p.CTA.StartTime < 0 {
			return fmt.Errorf("%w: cta start time must not be negative", services.ErrValidation)
		}
		if p.CTA.EndTime != 0 && p.CTA.EndTime <= p.CTA.StartTime {
			return fmt.Errorf("%w: cta end time %.2f must follow start time %.2f", services.ErrValidation, p.CTA.EndTime, p.CTA.StartTime)
		}
	}
	if p.Audio.TranslateEnabled {
		if p.Audio.TargetLanguage == "" {
			return fmt.Errorf("%w: translation requires a target language", services.ErrValidation)
		}
		if !language.Supported(p.Audio.TargetLanguage) {
			return fmt.Errorf("%w: target language %q not supported", services.ErrValidation, p.Audio.TargetLanguage)
		}
		if p.Audio.SourceLanguage != language.Auto && !language.Supported(p.Audio.SourceLanguage) {
			return fmt.Errorf("%w: source language %q not supported", services.ErrValidation, p.Audio.SourceLanguage)
		}
	}
	return nil
}

// WantsAudioPipeline reports whether the request needs the
// transcribe/translate/synthesize pass at all.
func (p *Processing) WantsAudioPipeline() bool {
	return p.Audio.TranslateEnabled
}

// WantsOverlays reports whether any compositing layer was requested.
func (p *Processing) WantsOverlays() bool {
	return p.Logo != nil || p.CTA != nil
}
