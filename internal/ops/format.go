package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/format"
	"github.com/hpungsan/scribe/internal/retrieval"
)

// FormatInput contains parameters for the Format operation.
type FormatInput struct {
	Source
	Template    string // default: format.DefaultTemplate
	ChunkSize   int    // default: config chunk_size
	Concurrency int    // default: config format_concurrency
	Model       string // default: config llm.model

	// Save writes the result to SaveAs, or to "<source>.formatted.md" when SaveAs is empty.
	Save   bool
	SaveAs string
	Mode   docs.SaveMode // default: error
	// Index adds the saved document to the passage index.
	Index bool
}

// FormatOutput contains the result of the Format operation.
type FormatOutput struct {
	Document string `json:"document,omitempty"`
	Text     string `json:"text"`
	Chars    int    `json:"chars"`
	Chunks   int    `json:"chunks"`
	// Failed lists 0-based indices of chunks that kept their original text.
	Failed   []int                  `json:"failed,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Saved    string                 `json:"saved,omitempty"`
	Indexed  *retrieval.IndexResult `json:"indexed,omitempty"`
}

// Format transforms a document chunk by chunk with the LLM and joins the results.
// Chunk failures become placeholders and warnings; the output is always complete.
func Format(ctx context.Context, env *Env, input FormatInput) (*FormatOutput, error) {
	name, text, err := input.resolve(ctx, env)
	if err != nil {
		return nil, err
	}

	saveAs := input.SaveAs
	if input.Save && saveAs == "" {
		if name == "" {
			return nil, errors.NewInvalidRequest("save_as is required when formatting inline text")
		}
		saveAs = docs.FormattedName(name)
	}
	if saveAs != "" {
		if err := docs.ValidateName(saveAs); err != nil {
			return nil, err
		}
		if !docs.IsMarkdown(saveAs) {
			return nil, errors.NewInvalidRequest("formatted output must be saved as markdown (.md)")
		}
	}

	cfg := env.cfg()
	var tr format.Transformer
	if env.LLM != nil {
		tr = env.LLM
	}

	res, err := format.Run(ctx, text, tr, format.Options{
		Template:     format.Template(input.Template),
		ChunkSize:    pick(input.ChunkSize, cfg.ChunkSize),
		WindowRadius: cfg.BoundaryWindow,
		OverlapSize:  cfg.OverlapSize,
		Concurrency:  pick(input.Concurrency, cfg.Concurrency()),
		Transform:    format.TransformOptions{Model: input.Model},
		Logger:       env.log(),
	})
	if err != nil {
		return nil, err
	}

	out := &FormatOutput{
		Document: name,
		Text:     res.Text,
		Chars:    len(res.Text),
		Chunks:   len(res.Chunks),
		Failed:   res.Failed,
	}
	if res.Warning != "" {
		out.Warnings = append(out.Warnings, res.Warning)
	}

	if saveAs == "" {
		return out, nil
	}

	if err := env.Docs.Save(ctx, saveAs, res.Text, input.Mode); err != nil {
		return nil, err
	}
	out.Saved = saveAs
	env.log().Info("formatted document saved",
		zap.String("source", name),
		zap.String("saved", saveAs),
		zap.Int("chunks", out.Chunks),
		zap.Int("failed", len(out.Failed)),
	)

	if input.Index {
		if env.Index == nil {
			out.Warnings = append(out.Warnings, "passage index unavailable; saved document was not indexed")
			return out, nil
		}
		idx, err := env.Index.IndexDocument(ctx, saveAs, res.Text, indexOptions(env, false))
		if err != nil {
			out.Warnings = append(out.Warnings, "indexing failed: "+errorMessage(err))
			return out, nil
		}
		out.Indexed = idx
	}
	return out, nil
}

func indexOptions(env *Env, force bool) retrieval.IndexOptions {
	cfg := env.cfg()
	return retrieval.IndexOptions{
		PassageSize:  cfg.PassageSize,
		WindowRadius: min(cfg.BoundaryWindow, cfg.PassageSize/2),
		Force:        force,
	}
}

// errorMessage returns the user-facing message of err.
func errorMessage(err error) string {
	if sErr, ok := errors.As(err); ok {
		return sErr.Message
	}
	return err.Error()
}
