package overlay

import (
	"fmt"
	"strconv"
	"strings"
)

// chromaDistance is the per-channel color distance treated as "same color"
// when keying, out of a 0-255 channel range.
const chromaDistance = 30.0

// ChromaKey describes the color made transparent on a CTA overlay.
type ChromaKey struct {
	R, G, B uint8
	// Similarity is the keying tolerance on a 0..1 scale.
	Similarity float64
}

// Hex renders the key color as 0xRRGGBB for filter arguments.
func (k *ChromaKey) Hex() string {
	return fmt.Sprintf("0x%02X%02X%02X", k.R, k.G, k.B)
}

// ParseChromaKey parses a "#RRGGBB" or "RRGGBB" color. Short forms and
// malformed values are errors; the caller falls back to opaque rendering.
func ParseChromaKey(hex string) (*ChromaKey, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("chroma color %q must be 6 hex digits", hex)
	}
	value, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("chroma color %q: %w", hex, err)
	}
	return &ChromaKey{
		R:          uint8(value >> 16),
		G:          uint8(value >> 8),
		B:          uint8(value),
		Similarity: chromaDistance / 255.0,
	}, nil
}
