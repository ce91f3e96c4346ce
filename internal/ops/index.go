package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/scribe/internal/assemble"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/retrieval"
)

// IndexInput contains parameters for the Index operation.
type IndexInput struct {
	Documents []string // documents to index
	All       bool     // index every stored document instead
	Force     bool     // reindex even when content is unchanged
}

// IndexOutput contains the result of the Index operation.
type IndexOutput struct {
	Results []retrieval.IndexResult `json:"results"`
	Indexed int                     `json:"indexed"`
	Skipped int                     `json:"skipped"`
}

// Index cuts documents into passages and stores them in the passage index.
// All-or-nothing on validation; each document is committed independently.
func Index(ctx context.Context, env *Env, input IndexInput) (*IndexOutput, error) {
	if env.Index == nil {
		return nil, errors.NewRetrievalUnavailable(nil)
	}
	if input.All == (len(input.Documents) > 0) {
		return nil, errors.NewInvalidRequest("specify either documents or all")
	}
	if len(input.Documents) > MaxIndexItems {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("too many documents: %d (max %d)", len(input.Documents), MaxIndexItems))
	}

	names := input.Documents
	if input.All {
		infos, err := env.Docs.List(ctx)
		if err != nil {
			return nil, err
		}
		names = make([]string, len(infos))
		for i, info := range infos {
			names[i] = info.Name
		}
	}

	out := &IndexOutput{Results: []retrieval.IndexResult{}}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("index")
		}
		text, err := env.Docs.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		res, err := env.Index.IndexDocument(ctx, name, text, indexOptions(env, input.Force))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out.Results = append(out.Results, *res)
		if res.Unchanged {
			out.Skipped++
		} else {
			out.Indexed++
		}
	}
	return out, nil
}

// UnindexInput contains parameters for the Unindex operation.
type UnindexInput struct {
	Document string
}

// UnindexOutput contains the result of the Unindex operation.
type UnindexOutput struct {
	Document string `json:"document"`
	Removed  bool   `json:"removed"`
}

// Unindex removes a document's passages from the index. The document file is untouched.
func Unindex(ctx context.Context, env *Env, input UnindexInput) (*UnindexOutput, error) {
	if env.Index == nil {
		return nil, errors.NewRetrievalUnavailable(nil)
	}
	name := strings.TrimSpace(input.Document)
	if name == "" {
		return nil, errors.NewInvalidRequest("document is required")
	}
	removed, err := env.Index.RemoveDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	return &UnindexOutput{Document: name, Removed: removed}, nil
}

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query string
	TopK  int // default: config retrieval_top_k, max: retrieval.MaxTopK
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Query    string             `json:"query"`
	Passages []assemble.Passage `json:"passages"`
}

// Search ranks indexed passages against a query. Unlike Assemble, a missing
// index is an error here.
func Search(ctx context.Context, env *Env, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if env.Index == nil {
		return nil, errors.NewRetrievalUnavailable(nil)
	}
	passages, err := env.Index.Search(ctx, query, pick(input.TopK, env.cfg().RetrievalTopK))
	if err != nil {
		return nil, err
	}
	if passages == nil {
		passages = []assemble.Passage{}
	}
	return &SearchOutput{Query: query, Passages: passages}, nil
}
