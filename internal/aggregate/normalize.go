package aggregate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize reduces a surface form to the key that merges mentions of the
// same place: Unicode NFC, lowercase, runs of whitespace collapsed to one
// space, and punctuation stripped from both edges. Interior punctuation
// stays ("king's landing"), and a trailing period survives when it closes a
// dotted abbreviation ("washington d.c.", "st.").
func Normalize(surface string) string {
	s := norm.NFC.String(surface)
	s = strings.ToLower(s)
	s = collapseWhitespace(s)
	s = trimLeadingPunct(s)
	s = trimTrailingPunct(s)
	return strings.TrimSpace(s)
}

// Usable reports whether a normalized name is worth keeping as a candidate.
// Empty strings, single characters and pure numbers are extraction noise,
// not place names.
func Usable(normalized string) bool {
	if normalized == "" || utf8.RuneCountInString(normalized) < 2 {
		return false
	}
	numeric := true
	for _, r := range normalized {
		if !unicode.IsDigit(r) && r != ' ' {
			numeric = false
			break
		}
	}
	return !numeric
}

func collapseWhitespace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func trimLeadingPunct(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func trimTrailingPunct(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			break
		}
		if r == '.' && abbreviationPeriod(s) {
			break
		}
		s = s[:len(s)-size]
	}
	return s
}

// abbreviationPeriod reports whether the trailing period of s belongs to a
// dotted abbreviation: the final token either has an interior period
// ("d.c.") or is at most three letters long ("st.", "mt.").
func abbreviationPeriod(s string) bool {
	body := s[:len(s)-1]
	if i := strings.LastIndexByte(body, ' '); i >= 0 {
		body = body[i+1:]
	}
	if body == "" {
		return false
	}
	if strings.Contains(body, ".") {
		return true
	}
	if utf8.RuneCountInString(body) > 3 {
		return false
	}
	for _, r := range body {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
