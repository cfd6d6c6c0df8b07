package chunk

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/bookgeo/internal/model"
)

// Split cuts text into ordered chunks of at most maxChars bytes each,
// preferring to cut at paragraph breaks, then sentence ends, then plain
// whitespace. Splitting is lossless: chunk offsets are byte positions into
// text and the chunk texts concatenate back to it exactly. A chunk exceeds
// maxChars only when a single token without any whitespace is longer than
// the limit; such chunks carry the Oversized flag and are still extracted.
func Split(text string, maxChars int) ([]model.TextChunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("chunk max_chars must be positive, got %d: %w", maxChars, model.ErrInvalidConfig)
	}

	var chunks []model.TextChunk
	pos := 0
	for pos < len(text) {
		end, oversized := cutPoint(text, pos, maxChars)
		chunks = append(chunks, model.TextChunk{
			Text:        text[pos:end],
			Index:       len(chunks),
			StartOffset: pos,
			EndOffset:   end,
			Oversized:   oversized,
		})
		pos = end
	}
	return chunks, nil
}

// cutPoint decides where the chunk starting at pos ends.
func cutPoint(text string, pos, maxChars int) (end int, oversized bool) {
	if len(text)-pos <= maxChars {
		return len(text), false
	}

	limit := pos + maxChars
	// Never cut inside a UTF-8 sequence.
	for limit > pos && !utf8.RuneStart(text[limit]) {
		limit--
	}
	window := text[pos:limit]

	// Structural boundaries only count near the end of the window, so
	// chunks stay close to the limit instead of stopping at the first
	// paragraph of a long window. Any whitespace beats breaking a word.
	tail := len(window) - len(window)/4

	if i := strings.LastIndex(window, "\n\n"); i >= 0 && i+2 >= tail {
		return pos + i + 2, false
	}
	if i := lastSentenceEnd(window); i >= tail {
		return pos + i, false
	}
	if i := strings.LastIndexFunc(window, unicode.IsSpace); i >= 0 {
		_, size := utf8.DecodeRuneInString(window[i:])
		return pos + i + size, false
	}

	// A single unbreakable token longer than the limit: take it whole.
	end = limit
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if unicode.IsSpace(r) && end > pos {
			break
		}
		end += size
	}
	return end, true
}

// lastSentenceEnd returns the cut position after the last sentence end in
// window ('.', '!' or '?' followed by whitespace), or -1 when there is none.
// The cut lands after the whitespace byte so the next chunk starts with the
// next sentence.
func lastSentenceEnd(window string) int {
	for i := len(window) - 1; i > 0; i-- {
		switch window[i] {
		case ' ', '\n', '\t', '\r':
		default:
			continue
		}
		switch window[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return -1
}
