// Package extract turns chunk text into raw place mentions using an LLM
// backend. Backends only report which names appear where; everything
// downstream (merging, geocoding, classification) is deterministic, so all
// model nondeterminism is contained in this package.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/bookgeo/internal/model"
)

// Extractor is one extraction backend.
type Extractor interface {
	// Name identifies the backend in reports and logs.
	Name() string

	// Extract reports the place-name mentions found in one chunk. Mention
	// offsets are local to the chunk. Extraction failures are per-chunk:
	// the pipeline records them and keeps going.
	Extract(ctx context.Context, chunk model.TextChunk, language string) ([]model.RawMention, error)
}

// maxResponseTokens bounds the completion length for every backend. Thirty
// name+sentence pairs fit comfortably.
const maxResponseTokens = 1500

const defaultTimeout = 60 * time.Second

const defaultMaxPerChunk = 30

// item is the JSON shape backends ask the model to return, one per mention.
type item struct {
	Name     string `json:"name"`
	Sentence string `json:"sentence"`
}

const promptTemplate = `You extract place names from book text written in %s.

Return ONLY a JSON array, no prose before or after it. Each element must be
an object with exactly these keys:
- "name": the place name exactly as it appears in the text
- "sentence": the sentence containing it, copied verbatim

Count cities, towns, villages, countries, regions, islands, rivers,
mountains, streets, buildings, landmarks and invented locations. Do not
count people, organizations, nationalities or languages. Report every
occurrence of a name, one element per occurrence, at most %d elements.
Return [] when the text names no places.`

func buildPrompt(language string, maxItems int) string {
	return fmt.Sprintf(promptTemplate, languageName(language), maxItems)
}

func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "es":
		return "Spanish"
	default:
		return code
	}
}

var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseItems pulls the JSON array out of a model completion. Models wrap
// answers in code fences or chat filler despite instructions, so this is
// forgiving: fences are stripped, then the outermost [...] is tried. A
// completion with no parseable array yields no items rather than an error.
func parseItems(content string) []item {
	content = strings.TrimSpace(content)
	if m := fenceRE.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	var items []item
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		return items
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &items); err == nil {
			return items
		}
	}
	return nil
}

func capItems(items []item, max int) []item {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

// locateMentions maps reported names back to byte offsets in the chunk.
// Matching is case-insensitive. Repeated names advance a per-name cursor so
// each report lands on the next occurrence; the reported sentence, when it
// occurs verbatim, narrows the search first. Names that do not occur in the
// chunk at all were invented by the model and are dropped.
func locateMentions(chunk model.TextChunk, items []item) []model.RawMention {
	lower := strings.ToLower(chunk.Text)
	cursor := make(map[string]int)

	var mentions []model.RawMention
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)

		pos := -1
		if from := cursor[key]; from < len(lower) {
			if i := strings.Index(lower[from:], key); i >= 0 {
				pos = from + i
			}
		}
		if pos < 0 {
			if sentence := strings.ToLower(strings.TrimSpace(it.Sentence)); sentence != "" {
				if si := strings.Index(lower, sentence); si >= 0 {
					if ni := strings.Index(lower[si:si+len(sentence)], key); ni >= 0 {
						pos = si + ni
					}
				}
			}
		}
		if pos < 0 {
			pos = strings.Index(lower, key)
		}
		if pos < 0 {
			continue
		}

		cursor[key] = pos + len(key)
		mentions = append(mentions, model.RawMention{
			SurfaceText: name,
			ChunkIndex:  chunk.Index,
			LocalOffset: pos,
		})
	}
	return mentions
}
