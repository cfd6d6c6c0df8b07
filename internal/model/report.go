package model

import "time"

// ChunkFailure records one chunk whose extraction call failed. The run keeps
// going over the remaining chunks unless every chunk fails.
type ChunkFailure struct {
	ChunkIndex int    `json:"chunk_index"`
	Error      string `json:"error"`
}

// Report is the complete result of one pipeline run over a single book.
// Real and Fictional preserve first-mention order, so the most prominent
// places of the text come first in both partitions.
type Report struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source"`
	Language  string        `json:"language"`
	Extractor string        `json:"extractor"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	ChunkCount          int            `json:"chunk_count"`
	OversizedChunks     int            `json:"oversized_chunks,omitempty"`
	FailedChunks        []ChunkFailure `json:"failed_chunks,omitempty"`
	MentionCount        int            `json:"mention_count"`
	CandidateCount      int            `json:"candidate_count"`
	TruncatedCandidates int            `json:"truncated_candidates,omitempty"`

	// Degraded counts candidates classified on a geocoding service error
	// instead of a real answer. Non-zero means the split between real and
	// fictional is weaker than usual for this run.
	Degraded int `json:"degraded,omitempty"`

	// Flagged lists real places the optional review step marked as
	// geographic outliers for the book. Advisory only; flagged records stay
	// in Real.
	Flagged []string `json:"flagged,omitempty"`

	Real      []PlaceRecord `json:"real"`
	Fictional []PlaceRecord `json:"fictional"`
}
