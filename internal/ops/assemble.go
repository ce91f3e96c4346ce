package ops

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/assemble"
	"github.com/hpungsan/scribe/internal/errors"
)

// AssembleInput contains parameters for the Assemble operation.
type AssembleInput struct {
	// Items selects documents. An item without topics means the whole document.
	Items []assemble.Item
	// Query optionally retrieves ranked passages placed before the documents.
	Query string
	TopK  int // default: config retrieval_top_k
}

// AssembleOutput contains the result of the Assemble operation.
type AssembleOutput struct {
	Text     string           `json:"text"`
	Chars    int              `json:"chars"`
	Tokens   int              `json:"tokens_estimate"`
	Blocks   []assemble.Block `json:"blocks"`
	Passages int              `json:"passages"`
	// Stale lists documents whose topic selection matched nothing and were included whole.
	Stale    []string `json:"stale,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Assemble builds prompt context from retrieved passages and selected documents.
// Retrieval problems never fail the operation; they are reported as warnings.
func Assemble(ctx context.Context, env *Env, input AssembleInput) (*AssembleOutput, error) {
	query := strings.TrimSpace(input.Query)
	if len(input.Items) == 0 && query == "" {
		return nil, errors.NewInvalidRequest("items or query is required")
	}
	if len(input.Items) > MaxAssembleItems {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("too many items: %d (max %d)", len(input.Items), MaxAssembleItems))
	}
	for i, it := range input.Items {
		if strings.TrimSpace(it.Document) == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d]: document is required", i))
		}
	}
	if env.Docs == nil && len(input.Items) > 0 {
		return nil, errors.NewInternal(errNoStore)
	}

	var warnings []string
	var passages []assemble.Passage
	if query != "" {
		var warn string
		passages, warn = retrieve(ctx, env, query, input.TopK)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("assemble")
		}
	}

	res, err := assemble.New(env.Docs, env.log()).Assemble(ctx, assemble.FromItems(input.Items), passages)
	if err != nil {
		return nil, err
	}
	for _, name := range res.Stale {
		warnings = append(warnings, fmt.Sprintf("%s: selected topics not found; included whole document", name))
	}

	return &AssembleOutput{
		Text:     res.Text,
		Chars:    len(res.Text),
		Tokens:   assemble.EstimateTokens(res.Text),
		Blocks:   res.Blocks,
		Passages: len(passages),
		Stale:    res.Stale,
		Warnings: warnings,
	}, nil
}

// retrieve runs a search and converts any failure into a warning with no passages.
func retrieve(ctx context.Context, env *Env, query string, topK int) ([]assemble.Passage, string) {
	if env.Index == nil {
		return nil, "retrieval unavailable: no passage index"
	}
	passages, err := env.Index.Search(ctx, query, pick(topK, env.cfg().RetrievalTopK))
	if err != nil {
		env.log().Warn("retrieval failed, continuing without passages",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil, "retrieval failed: " + errorMessage(err)
	}
	return passages, ""
}
