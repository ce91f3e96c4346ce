// Package chunk splits documents into LLM-sized windows at natural boundaries.
//
// Offsets are byte offsets into the document. Every split is a lossless
// partition: concatenating the chunk texts in order reproduces the document.
package chunk

// BoundaryType describes why a chunk ended where it did.
type BoundaryType string

const (
	BoundaryParagraph BoundaryType = "paragraph"
	BoundarySpeaker   BoundaryType = "speaker"
	BoundaryTimestamp BoundaryType = "timestamp"
	BoundarySentence  BoundaryType = "sentence"
	BoundaryLine      BoundaryType = "line"
	BoundaryEnd       BoundaryType = "end"
	BoundaryHard      BoundaryType = "hard"
)

// Chunk is one contiguous slice of a document.
type Chunk struct {
	Text     string       `json:"text"`
	Start    int          `json:"start_offset"`
	End      int          `json:"end_offset"`
	Boundary BoundaryType `json:"boundary_type"`
}

// Len returns the chunk length in bytes.
func (c Chunk) Len() int {
	return len(c.Text)
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
