package chunk

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/logging"
)

// Options configures Split.
type Options struct {
	// TargetSize is the preferred chunk length in bytes. Must be >= 1.
	TargetSize int
	// WindowRadius is how far either side of each target cut Scan may look.
	WindowRadius int
	// Logger receives one debug entry per emitted chunk. Nil disables telemetry.
	Logger *logging.Logger
}

// Split partitions doc into ordered, gap-free, non-overlapping chunks.
// An empty document yields an empty slice. The final chunk always has
// boundary type "end".
func Split(doc string, opts Options) ([]Chunk, error) {
	if opts.TargetSize < 1 {
		return nil, errors.NewInvalidRequest("chunk size must be at least 1")
	}
	radius := max(opts.WindowRadius, 0)
	log := logging.OrNop(opts.Logger)

	var chunks []Chunk
	emit := func(start, end int, typ BoundaryType) {
		c := Chunk{Text: doc[start:end], Start: start, End: end, Boundary: typ}
		chunks = append(chunks, c)
		log.Debug("chunk emitted",
			zap.Int("index", len(chunks)-1),
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("size", end-start),
			zap.String("boundary", string(typ)),
		)
	}

	cursor := 0
	for cursor < len(doc) {
		if cursor+opts.TargetSize >= len(doc) {
			emit(cursor, len(doc), BoundaryEnd)
			break
		}

		// Scanning the remainder keeps every candidate at or after the cursor.
		cut, typ := 0, BoundaryHard
		if b, ok := Scan(doc[cursor:], opts.TargetSize, radius); ok && b.Offset > 0 {
			cut, typ = cursor+b.Offset, b.Type
		} else {
			cut = hardCut(doc, cursor, cursor+opts.TargetSize)
		}

		if cut <= cursor {
			return nil, errors.NewChunkingInvariant("empty chunk detected", map[string]any{
				"index":  len(chunks),
				"offset": cursor,
			})
		}
		emit(cursor, cut, typ)
		cursor = cut
	}

	if err := Verify(doc, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// hardCut returns a cut at or before target that does not split a UTF-8
// sequence. If backing up would reach the cursor it moves forward instead.
func hardCut(doc string, cursor, target int) int {
	if target >= len(doc) {
		return len(doc)
	}
	cut := target
	for cut > cursor && !utf8.RuneStart(doc[cut]) {
		cut--
	}
	if cut > cursor {
		return cut
	}
	cut = target
	for cut < len(doc) && !utf8.RuneStart(doc[cut]) {
		cut++
	}
	return cut
}

// Verify checks that chunks form a lossless partition of doc.
func Verify(doc string, chunks []Chunk) error {
	if len(doc) == 0 {
		if len(chunks) != 0 {
			return errors.NewChunkingInvariant("empty document produced chunks", map[string]any{"count": len(chunks)})
		}
		return nil
	}
	if len(chunks) == 0 {
		return errors.NewChunkingInvariant("non-empty document produced no chunks", nil)
	}

	expect := 0
	total := 0
	for i, c := range chunks {
		details := map[string]any{"index": i, "start": c.Start, "end": c.End}
		switch {
		case c.End <= c.Start:
			return errors.NewChunkingInvariant("zero-length chunk", details)
		case c.Start != expect:
			return errors.NewChunkingInvariant(fmt.Sprintf("chunk starts at %d, want %d", c.Start, expect), details)
		case c.End > len(doc):
			return errors.NewChunkingInvariant("chunk extends past document end", details)
		case c.Text != doc[c.Start:c.End]:
			return errors.NewChunkingInvariant("chunk text does not match document slice", details)
		}
		expect = c.End
		total += len(c.Text)
	}

	if expect != len(doc) || total != len(doc) {
		return errors.NewChunkingInvariant("chunks do not cover the document", map[string]any{
			"covered":  total,
			"expected": len(doc),
		})
	}
	return nil
}
