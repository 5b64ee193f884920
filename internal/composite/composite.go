package composite

import (
	"math"

	"clipforge/internal/overlay"
)

// Spec declares everything needed to render the composited output: the base
// video, the overlay layers, and an optional replacement audio track.
type Spec struct {
	BasePath     string
	Width        int
	Height       int
	BaseDuration float64
	Layers       []*overlay.Layer
	// ReplacementAudioPath, when set, replaces the base audio track.
	ReplacementAudioPath string
}

// Duration returns the composite length: the base duration, extended when an
// extending layer outlives it.
func (s *Spec) Duration() float64 {
	duration := s.BaseDuration
	for _, layer := range s.Layers {
		if layer == nil || !layer.Extends {
			continue
		}
		if end := layer.EffectiveEnd(s.BaseDuration); end > duration {
			duration = end
		}
	}
	return duration
}

// Window is a half-open time span [Offset, Offset+Length) of the composite.
type Window struct {
	Offset float64
	Length float64
}

// End returns the exclusive end of the window.
func (w Window) End() float64 {
	return w.Offset + w.Length
}

// PlanWindows slices a duration into contiguous windows of at most
// chunkSeconds each. The windows cover [0, duration) exactly.
func PlanWindows(duration, chunkSeconds float64) []Window {
	if duration <= 0 {
		return nil
	}
	if chunkSeconds <= 0 || duration <= chunkSeconds {
		return []Window{{Offset: 0, Length: duration}}
	}

	count := int(math.Ceil(duration / chunkSeconds))
	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		offset := float64(i) * chunkSeconds
		length := math.Min(chunkSeconds, duration-offset)
		windows = append(windows, Window{Offset: offset, Length: length})
	}
	return windows
}
