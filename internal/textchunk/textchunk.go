package textchunk

import "strings"

// Sentences splits text on sentence terminators, keeping the terminator with
// its sentence. Whitespace-only fragments are dropped.
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return sentences
}

// Split divides text into chunks no longer than maxChars, breaking on
// sentence boundaries where possible. A single sentence longer than maxChars
// is hard-split so no chunk ever exceeds the limit. Chunk order follows text
// order.
func Split(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, sentence := range Sentences(text) {
		if len(sentence) > maxChars {
			flush()
			for _, piece := range hardSplit(sentence, maxChars) {
				chunks = append(chunks, piece)
			}
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(sentence) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()
	return chunks
}

// hardSplit cuts a string into maxChars-sized pieces on rune boundaries.
func hardSplit(s string, maxChars int) []string {
	var pieces []string
	runes := []rune(s)
	start := 0
	for start < len(runes) {
		end := start
		size := 0
		for end < len(runes) {
			rl := len(string(runes[end]))
			if size+rl > maxChars {
				break
			}
			size += rl
			end++
		}
		if end == start {
			end++ // rune wider than the limit, emit it alone
		}
		pieces = append(pieces, string(runes[start:end]))
		start = end
	}
	return pieces
}
