package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"clipforge/internal/logging"
	"clipforge/internal/settings"
)

// Kind distinguishes how a layer is sourced and filtered.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindText  Kind = "text"
)

// Layer is one element composited over the base video.
type Layer struct {
	Name        string
	Kind        Kind
	AssetPath   string
	Text        string
	Position    settings.Anchor
	SizePercent float64
	Opacity     float64
	StartTime   float64
	// EndTime zero means open-ended: the layer runs to its natural end.
	EndTime float64
	// AssetDuration is probed for video assets and zero otherwise.
	AssetDuration float64
	// Extends allows the layer to push the composite past the base video's
	// end (the base holds its last frame underneath).
	Extends bool
	Chroma  *ChromaKey
}

// EffectiveEnd returns when the layer disappears, given the base duration.
func (l *Layer) EffectiveEnd(baseDuration float64) float64 {
	if l.EndTime > 0 {
		return l.EndTime
	}
	if l.Kind == KindVideo && l.AssetDuration > 0 {
		return l.StartTime + l.AssetDuration
	}
	return baseDuration
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

// Builder turns overlay settings into renderable layers, pre-scaling image
// assets and probing video asset durations.
type Builder struct {
	probeDuration func(ctx context.Context, path string) (float64, error)
	logger        *slog.Logger
}

// NewBuilder constructs a Builder. probeDuration is consulted for video CTA
// assets; it may be nil when only image layers are expected.
func NewBuilder(probeDuration func(ctx context.Context, path string) (float64, error), logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{probeDuration: probeDuration, logger: logger}
}

// Logo builds the static logo layer. A nil or missing-asset request yields a
// nil layer rather than an error so compositing can proceed without it.
func (b *Builder) Logo(s *settings.LogoSettings, baseHeight int, workDir string) (*Layer, error) {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.Path); err != nil {
		b.logger.Warn("logo asset missing, skipping layer", logging.String("path", s.Path))
		return nil, nil
	}

	scaled, err := b.prepareImage(s.Path, baseHeight, s.SizePercent, workDir, "logo")
	if err != nil {
		return nil, err
	}
	return &Layer{
		Name:        "logo",
		Kind:        KindImage,
		AssetPath:   scaled,
		Position:    s.Position,
		SizePercent: s.SizePercent,
		Opacity:     1.0,
	}, nil
}

// CTA builds the timed call-to-action layer. Video assets have their
// duration probed so an open-ended CTA can extend the composite.
func (b *Builder) CTA(ctx context.Context, s *settings.CTASettings, baseHeight int, workDir string) (*Layer, error) {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.Path); err != nil {
		b.logger.Warn("cta asset missing, skipping layer", logging.String("path", s.Path))
		return nil, nil
	}

	layer := &Layer{
		Name:        "cta",
		Kind:        KindImage,
		AssetPath:   s.Path,
		Position:    s.Position,
		SizePercent: s.SizePercent,
		Opacity:     1.0,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Chroma:      b.parseChroma(s.ChromaColor),
	}

	if videoExtensions[strings.ToLower(filepath.Ext(s.Path))] {
		layer.Kind = KindVideo
		if b.probeDuration != nil {
			duration, err := b.probeDuration(ctx, s.Path)
			if err != nil {
				return nil, fmt.Errorf("probe cta asset: %w", err)
			}
			layer.AssetDuration = duration
		}
		if s.EndTime == 0 {
			layer.Extends = true
		}
	} else {
		scaled, err := b.prepareImage(s.Path, baseHeight, s.SizePercent, workDir, "cta")
		if err != nil {
			return nil, err
		}
		layer.AssetPath = scaled
	}
	return layer, nil
}

// Watermark builds the tier watermark layer: an image at 15% of the base
// height when configured, a text banner otherwise. Always bottom right.
func (b *Builder) Watermark(text, imagePath string, opacity, sizePercent float64, baseHeight int, workDir string) (*Layer, error) {
	if opacity <= 0 || opacity > 1 {
		opacity = 0.7
	}
	if sizePercent <= 0 {
		sizePercent = 15
	}

	if strings.TrimSpace(imagePath) != "" {
		if _, err := os.Stat(imagePath); err == nil {
			scaled, err := b.prepareImage(imagePath, baseHeight, sizePercent, workDir, "watermark")
			if err != nil {
				return nil, err
			}
			return &Layer{
				Name:        "watermark",
				Kind:        KindImage,
				AssetPath:   scaled,
				Position:    settings.AnchorBottomRight,
				SizePercent: sizePercent,
				Opacity:     opacity,
			}, nil
		}
		b.logger.Warn("watermark image missing, falling back to text", logging.String("path", imagePath))
	}

	if strings.TrimSpace(text) == "" {
		text = "Created with ClipForge"
	}
	return &Layer{
		Name:     "watermark",
		Kind:     KindText,
		Text:     text,
		Position: settings.AnchorBottomRight,
		Opacity:  opacity,
	}, nil
}

// prepareImage decodes the asset, scales it to sizePercent of the base
// height preserving aspect ratio, and writes the result into workDir.
func (b *Builder) prepareImage(path string, baseHeight int, sizePercent float64, workDir, name string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("decode %s asset: %w", name, err)
	}

	targetHeight := int(float64(baseHeight)*sizePercent/100 + 0.5)
	if targetHeight < 1 {
		targetHeight = 1
	}
	if img.Bounds().Dy() != targetHeight {
		img = imaging.Resize(img, 0, targetHeight, imaging.Lanczos)
	}

	out := filepath.Join(workDir, name+"_scaled.png")
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("save scaled %s asset: %w", name, err)
	}
	return out, nil
}

func (b *Builder) parseChroma(hex string) *ChromaKey {
	if strings.TrimSpace(hex) == "" {
		return nil
	}
	key, err := ParseChromaKey(hex)
	if err != nil {
		b.logger.Warn("chroma color unusable, rendering overlay opaque",
			logging.String("color", hex), logging.Error(err))
		return nil
	}
	return key
}
