// Package lang validates and detects the source language of a book. The
// pipeline only understands languages its extraction prompt and geocoding
// calls were built for, so anything outside the supported set fails the run
// up front instead of producing garbage downstream.
package lang

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/bookgeo/internal/model"
)

// detectSample caps how much text detection looks at. Stopword frequencies
// stabilize long before this in any real book.
const detectSample = 10000

// minStopwordDensity is the floor below which a stopword score does not
// count as a match. Real prose in a supported language sits far above it;
// it mostly filters out neighbor languages that share a few function words.
const minStopwordDensity = 0.05

var supported = map[string]bool{
	"en": true,
	"es": true,
}

// stopwords maps each supported language to a set of short, high-frequency
// words distinctive for it. Tokens shared with the other supported language
// or with close neighbors (French "de", "se", "en", "un", "que", "on") are
// deliberately absent.
var stopwords = map[string]map[string]bool{
	"en": toSet("the", "and", "of", "to", "in", "is", "was", "that", "it",
		"with", "as", "for", "his", "her", "at", "by", "from", "this",
		"but", "not", "are", "were", "which", "they", "have", "had", "been"),
	"es": toSet("el", "los", "las", "del", "y", "una", "por", "con",
		"para", "su", "al", "lo", "como", "más", "pero", "sus", "ya",
		"cuando", "muy", "sin", "sobre", "también", "este", "esta",
		"había", "hasta", "desde"),
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Supported returns the supported language codes in stable order.
func Supported() []string {
	codes := make([]string, 0, len(supported))
	for code := range supported {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Validate checks that code names a supported language.
func Validate(code string) error {
	if !supported[code] {
		return fmt.Errorf("language %q is not supported (supported: %s): %w",
			code, strings.Join(Supported(), ", "), model.ErrInvalidConfig)
	}
	return nil
}

// Detect guesses the language of text by counting distinctive stopwords.
// The winner must clear the density floor and strictly beat the runner-up;
// anything weaker returns an error wrapping ErrInvalidConfig.
func Detect(text string) (string, error) {
	if len(text) > detectSample {
		sample := text[:detectSample]
		// Do not end the sample mid-word or mid-rune.
		if i := strings.LastIndexFunc(sample, unicode.IsSpace); i > 0 {
			sample = sample[:i]
		}
		text = sample
	}

	words := strings.FieldsFunc(strings.ToLower(text), notLetter)
	scores := make(map[string]int, len(stopwords))
	for _, word := range words {
		for code, set := range stopwords {
			if set[word] {
				scores[code]++
			}
		}
	}

	best, bestScore, runnerUp := "", 0, 0
	for _, code := range Supported() {
		switch score := scores[code]; {
		case score > bestScore:
			best, bestScore, runnerUp = code, score, bestScore
		case score > runnerUp:
			runnerUp = score
		}
	}
	if bestScore == 0 || bestScore == runnerUp ||
		float64(bestScore) < minStopwordDensity*float64(len(words)) {
		return "", fmt.Errorf("unable to detect a supported language (supported: %s): %w",
			strings.Join(Supported(), ", "), model.ErrInvalidConfig)
	}
	return best, nil
}

// Resolve returns the language to run with: the provided override when set
// (after validation), otherwise the detected language of the text.
func Resolve(text, provided string) (string, error) {
	if provided != "" {
		if err := Validate(provided); err != nil {
			return "", err
		}
		return provided, nil
	}
	return Detect(text)
}

func notLetter(r rune) bool {
	return !unicode.IsLetter(r)
}
