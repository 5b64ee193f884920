package settings

import (
	"errors"
	"testing"

	"clipforge/internal/services"
)

func TestNormalizeFillsOverlayDefaults(t *testing.T) {
	p := Processing{
		Logo: &LogoSettings{Path: "logo.png"},
		CTA:  &CTASettings{Path: "cta.mp4"},
	}
	p.Normalize()

	if p.Logo.Position != AnchorTopRight {
		t.Fatalf("logo position = %q", p.Logo.Position)
	}
	if p.Logo.SizePercent != 10.0 {
		t.Fatalf("logo size = %v", p.Logo.SizePercent)
	}
	if p.CTA.Position != AnchorBottomRight {
		t.Fatalf("cta position = %q", p.CTA.Position)
	}
	if p.CTA.SizePercent != 20.0 {
		t.Fatalf("cta size = %v", p.CTA.SizePercent)
	}
	if p.Audio.SourceLanguage != "auto" {
		t.Fatalf("source language = %q", p.Audio.SourceLanguage)
	}
}

func TestValidateRejectsBadAnchor(t *testing.T) {
	p := Processing{Logo: &LogoSettings{Path: "logo.png", Position: "middle", SizePercent: 10}}
	err := p.Validate()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsInvertedCTAWindow(t *testing.T) {
	p := Processing{CTA: &CTASettings{Path: "cta.mp4", Position: AnchorCenter, SizePercent: 20, StartTime: 30, EndTime: 10}}
	if err := p.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateOpenEndedCTAAllowed(t *testing.T) {
	p := Processing{CTA: &CTASettings{Path: "cta.mp4", StartTime: 30}}
	p.Normalize()
	if err := p.Validate(); err != nil {
		t.Fatalf("open-ended cta should validate: %v", err)
	}
}

func TestValidateTranslationLanguages(t *testing.T) {
	p := Processing{Audio: AudioSettings{TranslateEnabled: true}}
	p.Normalize()
	if err := p.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing target language should fail, got %v", err)
	}

	p.Audio.TargetLanguage = "xx"
	if err := p.Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown target language should fail, got %v", err)
	}

	p.Audio.TargetLanguage = "es"
	if err := p.Validate(); err != nil {
		t.Fatalf("valid translation request failed: %v", err)
	}
}
