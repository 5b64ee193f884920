package transcript

import "strings"

// Segment is one timed span of recognized speech. Times are seconds from the
// start of the source audio.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FullText joins segment texts in index order with single spaces.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Reindex rewrites Index fields to their position, starting at 1.
func Reindex(segments []Segment) {
	for i := range segments {
		segments[i].Index = i + 1
	}
}
