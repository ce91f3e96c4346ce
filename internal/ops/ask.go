package ops

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/errors"
)

// MaxQuestionLength bounds Ask questions.
const MaxQuestionLength = 4000

// AskInput contains parameters for the Ask operation.
type AskInput struct {
	Question string
	AssembleInput
	// NoRetrieval skips passage search. Otherwise Query defaults to the question.
	NoRetrieval bool
}

// AskOutput contains the result of the Ask operation.
type AskOutput struct {
	Answer        string   `json:"answer"`
	ContextChars  int      `json:"context_chars"`
	ContextTokens int      `json:"context_tokens_estimate"`
	Passages      int      `json:"passages"`
	Stale         []string `json:"stale,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

const askPrompt = `Answer the question using only the context below. If the context does not
contain the answer, say so.

Context:
%s

Question: %s`

// Ask assembles context for a question and sends both to the LLM in one call.
func Ask(ctx context.Context, env *Env, input AskInput) (*AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, errors.NewInvalidRequest("question is required")
	}
	if len(question) > MaxQuestionLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("question exceeds maximum length of %d bytes", MaxQuestionLength))
	}
	if env.LLM == nil {
		return nil, errors.NewTransformUnconfigured()
	}

	in := input.AssembleInput
	if input.NoRetrieval {
		in.Query = ""
	} else if strings.TrimSpace(in.Query) == "" {
		in.Query = question
	}
	if len(in.Items) == 0 && in.Query == "" {
		return nil, errors.NewInvalidRequest("items are required when retrieval is disabled")
	}

	asm, err := Assemble(ctx, env, in)
	if err != nil {
		return nil, err
	}

	answer, err := env.LLM.Complete(ctx, fmt.Sprintf(askPrompt, asm.Text, question))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("ask")
		}
		env.log().Warn("ask failed", zap.Error(err))
		return nil, errors.NewTransformFailed(0, err)
	}

	return &AskOutput{
		Answer:        strings.TrimSpace(answer),
		ContextChars:  asm.Chars,
		ContextTokens: asm.Tokens,
		Passages:      asm.Passages,
		Stale:         asm.Stale,
		Warnings:      asm.Warnings,
	}, nil
}
