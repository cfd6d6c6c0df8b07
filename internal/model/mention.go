package model

// RawMention is a single place-name occurrence reported by an extraction
// backend for one chunk. LocalOffset is a byte position relative to the
// chunk text; the aggregator converts it to an absolute document position
// using the chunk's StartOffset.
type RawMention struct {
	SurfaceText string `json:"surface_text"`
	ChunkIndex  int    `json:"chunk_index"`
	LocalOffset int    `json:"local_offset"`
}
