package model

// TextChunk is one bounded segment of the source document. Offsets are byte
// positions in the original text: EndOffset-StartOffset equals len(Text), and
// concatenating all chunks in index order reproduces the document exactly.
type TextChunk struct {
	Text        string `json:"text"`
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`

	// Oversized marks a chunk that had to exceed the configured limit
	// because it consists of a single unbreakable token.
	Oversized bool `json:"oversized,omitempty"`
}

// Len returns the chunk length in bytes.
func (c TextChunk) Len() int {
	return len(c.Text)
}
