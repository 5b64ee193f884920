package overlay

import (
	"math"
	"testing"
)

func TestParseChromaKey(t *testing.T) {
	key, err := ParseChromaKey("#00FF00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if key.R != 0 || key.G != 255 || key.B != 0 {
		t.Fatalf("rgb = %d,%d,%d", key.R, key.G, key.B)
	}
	if key.Hex() != "0x00FF00" {
		t.Fatalf("hex = %q", key.Hex())
	}
	if math.Abs(key.Similarity-30.0/255.0) > 1e-9 {
		t.Fatalf("similarity = %v", key.Similarity)
	}
}

func TestParseChromaKeyWithoutHash(t *testing.T) {
	key, err := ParseChromaKey("1a2B3c")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if key.R != 0x1A || key.G != 0x2B || key.B != 0x3C {
		t.Fatalf("rgb = %x,%x,%x", key.R, key.G, key.B)
	}
}

func TestParseChromaKeyRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "#fff", "#gggggg", "#12345", "red"} {
		if _, err := ParseChromaKey(bad); err == nil {
			t.Errorf("ParseChromaKey(%q) should fail", bad)
		}
	}
}
