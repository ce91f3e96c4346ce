package ops

import (
	"context"

	"github.com/hpungsan/scribe/internal/chunk"
)

// SplitInput contains parameters for the Split operation.
type SplitInput struct {
	Source
	ChunkSize      int  // default: config chunk_size
	BoundaryWindow int  // default: config boundary_window
	OverlapSize    int  // default: config overlap_size
	IncludeText    bool // include chunk text in the output
	IncludeOverlap bool // include each chunk's overlap window
}

// SplitChunk describes one chunk of a split.
type SplitChunk struct {
	Index    int                `json:"index"`
	Start    int                `json:"start_offset"`
	End      int                `json:"end_offset"`
	Size     int                `json:"size"`
	Boundary chunk.BoundaryType `json:"boundary_type"`
	Text     string             `json:"text,omitempty"`
	Overlap  *chunk.Window      `json:"overlap,omitempty"`
}

// SplitOutput contains the result of the Split operation.
type SplitOutput struct {
	Document  string        `json:"document,omitempty"`
	Length    int           `json:"length"`
	ChunkSize int           `json:"chunk_size"`
	Chunks    []SplitChunk  `json:"chunks"`
	Stats     chunk.Summary `json:"stats"`
}

// Split partitions a document into boundary-aware chunks without transforming them.
func Split(ctx context.Context, env *Env, input SplitInput) (*SplitOutput, error) {
	name, text, err := input.resolve(ctx, env)
	if err != nil {
		return nil, err
	}
	cfg := env.cfg()
	size := pick(input.ChunkSize, cfg.ChunkSize)

	chunks, err := chunk.Split(text, chunk.Options{
		TargetSize:   size,
		WindowRadius: pick(input.BoundaryWindow, cfg.BoundaryWindow),
		Logger:       env.log(),
	})
	if err != nil {
		return nil, err
	}

	overlap := pick(input.OverlapSize, cfg.OverlapSize)
	out := make([]SplitChunk, len(chunks))
	for i, c := range chunks {
		out[i] = SplitChunk{
			Index:    i,
			Start:    c.Start,
			End:      c.End,
			Size:     c.Len(),
			Boundary: c.Boundary,
		}
		if input.IncludeText {
			out[i].Text = c.Text
		}
		if input.IncludeOverlap {
			w := chunk.Overlap(chunks, i, overlap)
			out[i].Overlap = &w
		}
	}

	return &SplitOutput{
		Document:  name,
		Length:    len(text),
		ChunkSize: size,
		Chunks:    out,
		Stats:     chunk.Stats(chunks),
	}, nil
}
