package tier

import (
	"errors"
	"testing"

	"clipforge/internal/services"
)

func TestFreeTierDurationLimit(t *testing.T) {
	p := Lookup(Free)
	if err := p.ValidateDuration(299); err != nil {
		t.Fatalf("299s should pass: %v", err)
	}
	err := p.ValidateDuration(301)
	if !errors.Is(err, services.ErrPolicyViolation) {
		t.Fatalf("expected policy violation, got %v", err)
	}
}

func TestProTierUnlimitedDuration(t *testing.T) {
	p := Lookup(Pro)
	if err := p.ValidateDuration(7200); err != nil {
		t.Fatalf("pro tier should be unlimited: %v", err)
	}
}

func TestFreeTierRequiresWatermark(t *testing.T) {
	if !Lookup(Free).WatermarkRequired {
		t.Fatal("free tier must require a watermark")
	}
	if Lookup(Pro).WatermarkRequired {
		t.Fatal("pro tier must not require a watermark")
	}
}

func TestUnknownTierFallsBackToFree(t *testing.T) {
	p := Lookup("platinum")
	if !p.WatermarkRequired {
		t.Fatal("unknown tier must inherit free permissions")
	}
	if p.AllowsPaidProviders() {
		t.Fatal("unknown tier must not unlock paid providers")
	}
}

func TestQualityLimit(t *testing.T) {
	if err := Lookup(Free).ValidateQuality(1080); !errors.Is(err, services.ErrPolicyViolation) {
		t.Fatalf("1080p on free tier should be rejected, got %v", err)
	}
	if err := Lookup(Pro).ValidateQuality(1080); err != nil {
		t.Fatalf("1080p on pro tier should pass: %v", err)
	}
}
