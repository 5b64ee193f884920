package overlay

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"clipforge/internal/settings"
)

func writeTestImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("write test image: %v", err)
	}
	return path
}

func TestLogoScaledToPercentOfBaseHeight(t *testing.T) {
	dir := t.TempDir()
	asset := writeTestImage(t, dir, "logo.png", 400, 200)
	builder := NewBuilder(nil, nil)

	layer, err := builder.Logo(&settings.LogoSettings{
		Path:        asset,
		Position:    settings.AnchorTopRight,
		SizePercent: 10,
	}, 1080, dir)
	if err != nil {
		t.Fatalf("build logo: %v", err)
	}
	if layer == nil {
		t.Fatal("expected a layer")
	}

	img, err := imaging.Open(layer.AssetPath)
	if err != nil {
		t.Fatalf("open scaled asset: %v", err)
	}
	if got := img.Bounds().Dy(); got != 108 {
		t.Fatalf("scaled height = %d, want 108", got)
	}
	// Aspect ratio preserved.
	if got := img.Bounds().Dx(); got != 216 {
		t.Fatalf("scaled width = %d, want 216", got)
	}
}

func TestLogoMissingAssetSkipsLayer(t *testing.T) {
	builder := NewBuilder(nil, nil)
	layer, err := builder.Logo(&settings.LogoSettings{
		Path:        filepath.Join(t.TempDir(), "absent.png"),
		Position:    settings.AnchorTopRight,
		SizePercent: 10,
	}, 1080, t.TempDir())
	if err != nil {
		t.Fatalf("missing asset must not be an error: %v", err)
	}
	if layer != nil {
		t.Fatal("expected nil layer for missing asset")
	}
}

func TestCTAVideoOpenEndedExtends(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "cta.mp4")
	if err := os.WriteFile(asset, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	probe := func(_ context.Context, _ string) (float64, error) { return 25, nil }
	builder := NewBuilder(probe, nil)

	layer, err := builder.CTA(context.Background(), &settings.CTASettings{
		Path:      asset,
		Position:  settings.AnchorBottomRight,
		StartTime: 40,
	}, 1080, dir)
	if err != nil {
		t.Fatalf("build cta: %v", err)
	}
	if layer.Kind != KindVideo {
		t.Fatalf("kind = %q", layer.Kind)
	}
	if !layer.Extends {
		t.Fatal("open-ended video cta must be allowed to extend the composite")
	}
	if got := layer.EffectiveEnd(50); got != 65 {
		t.Fatalf("effective end = %v, want 65", got)
	}
}

func TestCTAExplicitEndDoesNotExtend(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "cta.mp4")
	if err := os.WriteFile(asset, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	probe := func(_ context.Context, _ string) (float64, error) { return 25, nil }
	builder := NewBuilder(probe, nil)

	layer, err := builder.CTA(context.Background(), &settings.CTASettings{
		Path:      asset,
		Position:  settings.AnchorBottomRight,
		StartTime: 10,
		EndTime:   20,
	}, 1080, dir)
	if err != nil {
		t.Fatalf("build cta: %v", err)
	}
	if layer.Extends {
		t.Fatal("explicit end time must not extend the composite")
	}
	if got := layer.EffectiveEnd(50); got != 20 {
		t.Fatalf("effective end = %v, want 20", got)
	}
}

func TestCTABadChromaFallsBackToOpaque(t *testing.T) {
	dir := t.TempDir()
	asset := writeTestImage(t, dir, "cta.png", 100, 100)
	builder := NewBuilder(nil, nil)

	layer, err := builder.CTA(context.Background(), &settings.CTASettings{
		Path:        asset,
		Position:    settings.AnchorCenter,
		SizePercent: 20,
		ChromaColor: "not-a-color",
	}, 720, dir)
	if err != nil {
		t.Fatalf("build cta: %v", err)
	}
	if layer.Chroma != nil {
		t.Fatal("bad chroma color must render opaque")
	}
}

func TestWatermarkTextFallback(t *testing.T) {
	builder := NewBuilder(nil, nil)
	layer, err := builder.Watermark("", "", 0, 0, 1080, t.TempDir())
	if err != nil {
		t.Fatalf("build watermark: %v", err)
	}
	if layer.Kind != KindText {
		t.Fatalf("kind = %q", layer.Kind)
	}
	if layer.Text == "" {
		t.Fatal("expected default watermark text")
	}
	if layer.Opacity != 0.7 {
		t.Fatalf("opacity = %v", layer.Opacity)
	}
	if layer.Position != settings.AnchorBottomRight {
		t.Fatalf("position = %q", layer.Position)
	}
}

func TestWatermarkImage(t *testing.T) {
	dir := t.TempDir()
	asset := writeTestImage(t, dir, "brand.png", 300, 100)
	builder := NewBuilder(nil, nil)

	layer, err := builder.Watermark("ignored", asset, 0.7, 15, 1000, dir)
	if err != nil {
		t.Fatalf("build watermark: %v", err)
	}
	if layer.Kind != KindImage {
		t.Fatalf("kind = %q", layer.Kind)
	}
	img, err := imaging.Open(layer.AssetPath)
	if err != nil {
		t.Fatalf("open scaled asset: %v", err)
	}
	if got := img.Bounds().Dy(); got != 150 {
		t.Fatalf("scaled height = %d, want 150", got)
	}
}
