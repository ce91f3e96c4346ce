// Package ops implements the operations shared by the CLI and the MCP server.
package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/scribe/internal/config"
	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/format"
	"github.com/hpungsan/scribe/internal/logging"
	"github.com/hpungsan/scribe/internal/retrieval"
)

// Limits
const (
	MaxAssembleItems = 50
	MaxIndexItems    = 100
	MaxInlineBytes   = docs.MaxDocumentBytes
)

// LLM is the language model collaborator: per-chunk transforms and single completions.
type LLM interface {
	format.Transformer
	Complete(ctx context.Context, prompt string) (string, error)
}

// Env carries the collaborators operations run against. Index and LLM may be
// nil: retrieval then degrades to "no passages" and formatting reports
// TRANSFORM_UNCONFIGURED.
type Env struct {
	Config *config.Config
	Docs   *docs.Store
	Index  *retrieval.Index
	LLM    LLM
	Logger *logging.Logger
}

func (e *Env) log() *logging.Logger {
	return logging.OrNop(e.Logger)
}

func (e *Env) cfg() *config.Config {
	if e.Config == nil {
		return config.DefaultConfig()
	}
	return e.Config
}

// Source names the text an operation works on: a stored document or inline text.
type Source struct {
	Document string `json:"document,omitempty"`
	Text     string `json:"text,omitempty"`
}

// resolve returns the source's display name and text. Exactly one of
// Document and Text must be set.
func (s Source) resolve(ctx context.Context, env *Env) (string, string, error) {
	hasDoc := strings.TrimSpace(s.Document) != ""
	hasText := s.Text != ""

	switch {
	case hasDoc && hasText:
		return "", "", errors.NewInvalidRequest("specify either document or text, not both")
	case !hasDoc && !hasText:
		return "", "", errors.NewInvalidRequest("document or text is required")
	case hasText:
		if len(s.Text) > MaxInlineBytes {
			return "", "", errors.NewInvalidRequest("text is too large")
		}
		return "", s.Text, nil
	}

	if env.Docs == nil {
		return "", "", errors.NewInternal(errNoStore)
	}
	text, err := env.Docs.Load(ctx, s.Document)
	if err != nil {
		return "", "", err
	}
	return s.Document, text, nil
}

var errNoStore = stderrors.New("document store not configured")

// pick returns v when positive, otherwise def.
func pick(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
