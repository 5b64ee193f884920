package subtitle

import (
	"fmt"
	"os"
	"strings"

	"clipforge/internal/textchunk"
	"clipforge/internal/transcript"
)

// FormatTimestamp renders seconds as the SRT timestamp HH:MM:SS,mmm.
// Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3_600_000
	millis %= 3_600_000
	m := millis / 60_000
	millis %= 60_000
	s := millis / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Render produces the SRT document for the segments: 1-based cue numbers,
// a timing line, the text, and a blank separator. Rendering the same
// segments always yields identical bytes.
func Render(segments []transcript.Segment) string {
	var b strings.Builder
	cue := 0
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cue++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), text)
	}
	return b.String()
}

// WriteFile renders the segments and writes them to path.
func WriteFile(path string, segments []transcript.Segment) error {
	if err := os.WriteFile(path, []byte(Render(segments)), 0o644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}

// SegmentsFromText builds uniform cues from plain text when no timed
// transcript exists: one sentence per cue, each cueSeconds long,
// back to back from zero.
func SegmentsFromText(text string, cueSeconds float64) []transcript.Segment {
	if cueSeconds <= 0 {
		cueSeconds = 3
	}
	sentences := textchunk.Sentences(text)
	segments := make([]transcript.Segment, 0, len(sentences))
	for i, sentence := range sentences {
		start := float64(i) * cueSeconds
		segments = append(segments, transcript.Segment{
			Index: i + 1,
			Start: start,
			End:   start + cueSeconds,
			Text:  sentence,
		})
	}
	return segments
}
