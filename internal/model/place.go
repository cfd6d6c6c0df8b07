package model

// PlaceCandidate is one unique place name, merged from every raw mention
// that shares the same normalized form. Candidates are immutable once
// aggregation finishes: geocode evidence and confidence live on the
// PlaceRecord, never back on the candidate.
type PlaceCandidate struct {
	NormalizedName  string   `json:"normalized_name"`
	SurfaceVariants []string `json:"surface_variants"` // distinct raw forms, sorted
	MentionCount    int      `json:"mention_count"`
	MentionOffsets  []int    `json:"mention_offsets"` // absolute byte offsets, strictly increasing
	Language        string   `json:"language"`
}

// FirstOffset returns the document position of the earliest mention.
func (c PlaceCandidate) FirstOffset() int {
	if len(c.MentionOffsets) == 0 {
		return 0
	}
	return c.MentionOffsets[0]
}

// Classification is the final bucket a candidate lands in.
type Classification string

const (
	ClassReal                  Classification = "REAL"
	ClassFictionalOrUnresolved Classification = "FICTIONAL_OR_UNRESOLVED"
)

// PlaceRecord is the final output for one candidate: the candidate itself
// plus the geocode evidence, the confidence score and the human-readable
// reason behind the classification.
type PlaceRecord struct {
	Candidate      PlaceCandidate `json:"candidate"`
	Geocode        *GeocodeResult `json:"geocode,omitempty"` // nil when the lookup produced no location
	Confidence     float64        `json:"confidence"`
	Classification Classification `json:"classification"`
	Reason         string         `json:"reason"`
}
