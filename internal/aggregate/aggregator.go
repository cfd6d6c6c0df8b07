// Package aggregate merges the raw mentions reported per chunk into unique
// place candidates keyed by normalized name. Merging is a pure reduction:
// feeding the same chunks and mentions in any order yields the same
// candidate list.
package aggregate

import (
	"sort"

	"github.com/ppiankov/bookgeo/internal/model"
)

// Aggregator accumulates mentions across chunks. It is not safe for
// concurrent use; the pipeline feeds it from a single goroutine after the
// extraction fan-out joins.
type Aggregator struct {
	language string
	entries  map[string]*entry
}

type entry struct {
	variants map[string]bool
	offsets  []int
}

// New returns an empty aggregator for one run. language is stamped onto
// every candidate so downstream lookups know which language produced them.
func New(language string) *Aggregator {
	return &Aggregator{
		language: language,
		entries:  make(map[string]*entry),
	}
}

// Add merges the mentions reported for one chunk. Mention offsets local to
// the chunk become absolute document offsets here; mentions that normalize
// to noise (empty, single character, pure number) are dropped.
func (a *Aggregator) Add(chunk model.TextChunk, mentions []model.RawMention) {
	for _, m := range mentions {
		name := Normalize(m.SurfaceText)
		if !Usable(name) {
			continue
		}
		e, ok := a.entries[name]
		if !ok {
			e = &entry{variants: make(map[string]bool)}
			a.entries[name] = e
		}
		e.variants[m.SurfaceText] = true
		e.offsets = append(e.offsets, chunk.StartOffset+m.LocalOffset)
	}
}

// Candidates returns the merged candidates ordered by first mention. Offsets
// are strictly increasing per candidate: duplicates reported for the same
// position collapse, so MentionCount always equals len(MentionOffsets). The
// aggregator state is left untouched; calling Candidates twice gives equal
// results.
func (a *Aggregator) Candidates() []model.PlaceCandidate {
	candidates := make([]model.PlaceCandidate, 0, len(a.entries))
	for name, e := range a.entries {
		offsets := make([]int, len(e.offsets))
		copy(offsets, e.offsets)
		sort.Ints(offsets)
		offsets = dedupSorted(offsets)

		variants := make([]string, 0, len(e.variants))
		for v := range e.variants {
			variants = append(variants, v)
		}
		sort.Strings(variants)

		candidates = append(candidates, model.PlaceCandidate{
			NormalizedName:  name,
			SurfaceVariants: variants,
			MentionCount:    len(offsets),
			MentionOffsets:  offsets,
			Language:        a.language,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FirstOffset() != candidates[j].FirstOffset() {
			return candidates[i].FirstOffset() < candidates[j].FirstOffset()
		}
		return candidates[i].NormalizedName < candidates[j].NormalizedName
	})
	return candidates
}

func dedupSorted(offsets []int) []int {
	out := offsets[:0]
	for i, v := range offsets {
		if i == 0 || v != offsets[i-1] {
			out = append(out, v)
		}
	}
	return out
}
