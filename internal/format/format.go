// Package format runs an LLM transform over each chunk of an oversized
// document and stitches the results back together.
package format

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/scribe/internal/chunk"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/logging"
)

// ChunkDivider joins transformed chunks when a document had more than one.
const ChunkDivider = "\n\n---\n\n"

// MaxConcurrency caps parallel transforms.
const MaxConcurrency = 16

// TransformOptions are passed through to the transformer for every chunk.
type TransformOptions struct {
	Model       string
	Temperature *float32
	MaxTokens   int
}

// Transformer rewrites a filled prompt. Implementations must honor ctx.
type Transformer interface {
	Transform(ctx context.Context, prompt string, opts TransformOptions) (string, error)
}

// TransformerFunc adapts a function to Transformer.
type TransformerFunc func(ctx context.Context, prompt string, opts TransformOptions) (string, error)

// Transform calls f.
func (f TransformerFunc) Transform(ctx context.Context, prompt string, opts TransformOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// Options configures Run.
type Options struct {
	Template     Template
	ChunkSize    int
	WindowRadius int
	OverlapSize  int
	// Concurrency bounds in-flight transforms. Values below 1 mean sequential.
	Concurrency int
	Transform   TransformOptions
	Logger      *logging.Logger
}

// ChunkResult is the outcome for one chunk: Output when Err is nil,
// otherwise the failure with the original chunk text kept in Chunk.
type ChunkResult struct {
	Index  int
	Chunk  chunk.Chunk
	Output string
	Err    error
}

// OK reports whether the chunk transformed successfully.
func (r ChunkResult) OK() bool {
	return r.Err == nil
}

// Render returns the transformed text, or an error placeholder that
// preserves the original chunk text.
func (r ChunkResult) Render(total int) string {
	if r.OK() {
		return r.Output
	}
	cause := r.Err.Error()
	if sErr, ok := errors.As(r.Err); ok {
		cause = sErr.Message
	}
	return fmt.Sprintf("[FORMAT ERROR in chunk %d/%d: %s]\n%s", r.Index+1, total, cause, r.Chunk.Text)
}

// Result is a formatted document.
type Result struct {
	Text   string
	Chunks []ChunkResult
	// Failed holds the 0-based indices of chunks that failed to transform.
	Failed  []int
	Warning string
}

// Run splits doc, transforms every chunk with its overlap context and joins
// the results in chunk order. A failing chunk never aborts the others; it is
// replaced by a placeholder and listed in Result.Failed. Only cancellation
// of ctx aborts the run.
func Run(ctx context.Context, doc string, tr Transformer, opts Options) (*Result, error) {
	if tr == nil {
		return nil, errors.NewTransformUnconfigured()
	}
	tmpl := opts.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	log := logging.OrNop(opts.Logger)

	chunks, err := chunk.Split(doc, chunk.Options{
		TargetSize:   opts.ChunkSize,
		WindowRadius: opts.WindowRadius,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	total := len(chunks)
	results := make([]ChunkResult, total)

	g := new(errgroup.Group)
	g.SetLimit(min(max(opts.Concurrency, 1), MaxConcurrency))

	for i, c := range chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			w := chunk.Overlap(chunks, i, opts.OverlapSize)
			prompt := tmpl.Fill(Vars{
				Content:       c.Text,
				ChunkNumber:   i + 1,
				TotalChunks:   total,
				OverlapBefore: w.Before,
				OverlapAfter:  w.After,
			})

			out, err := tr.Transform(ctx, prompt, opts.Transform)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("chunk transform failed",
					zap.Int("chunk", i+1),
					zap.Int("total", total),
					zap.Error(err),
				)
				results[i] = ChunkResult{Index: i, Chunk: c, Err: errors.NewTransformFailed(i, err)}
				return nil
			}
			results[i] = ChunkResult{Index: i, Chunk: c, Output: out}
			return nil
		})
	}

	if err := g.Wait(); err != nil || ctx.Err() != nil {
		return nil, errors.NewCancelled("format")
	}

	return combine(results), nil
}

func combine(results []ChunkResult) *Result {
	res := &Result{Chunks: results}
	total := len(results)

	parts := make([]string, total)
	for i, r := range results {
		parts[i] = r.Render(total)
		if !r.OK() {
			res.Failed = append(res.Failed, i)
		}
	}

	if total == 1 {
		res.Text = parts[0]
	} else {
		res.Text = strings.Join(parts, ChunkDivider)
	}

	if len(res.Failed) > 0 {
		nums := make([]string, len(res.Failed))
		for i, idx := range res.Failed {
			nums[i] = fmt.Sprintf("%d", idx+1)
		}
		res.Warning = fmt.Sprintf("%d of %d chunks failed to format (chunks %s); original text kept in place",
			len(res.Failed), total, strings.Join(nums, ", "))
	}
	return res
}
