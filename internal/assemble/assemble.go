// Package assemble builds the final prompt context from retrieved passages
// and selected documents or topics.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/logging"
	"github.com/hpungsan/scribe/internal/topic"
)

// Separators used when rendering.
const (
	PassageSeparator = "\n\n---\n\n"
	FileSeparator    = "\n\n"
	SectionDivider   = "\n\n========\n\n"
)

// Passage is a ranked snippet supplied by a retriever. Topic is empty when unknown.
type Passage struct {
	Content   string  `json:"content"`
	Source    string  `json:"source"`
	Topic     string  `json:"topic,omitempty"`
	Relevance float64 `json:"relevance"`
}

// Loader fetches a document by name. It returns a NOT_FOUND error when the
// name does not resolve.
type Loader interface {
	Load(ctx context.Context, name string) (string, error)
}

// Retriever returns up to topK passages relevant to query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Passage, error)
}

// BlockKind distinguishes rendered blocks.
type BlockKind string

const (
	BlockPassage BlockKind = "passage"
	BlockFile    BlockKind = "file"
)

// Block is one rendered piece of the assembled context.
type Block struct {
	Kind     BlockKind `json:"kind"`
	Document string    `json:"document"`
	Topics   []string  `json:"topics,omitempty"` // titles rendered for a topic subset
	Text     string    `json:"text"`
}

// Result is an assembled context.
type Result struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
	// Stale lists documents whose topic subset matched nothing and fell back to the whole file.
	Stale []string `json:"stale,omitempty"`
}

// Assembler renders selections against a document loader.
type Assembler struct {
	loader Loader
	log    *logging.Logger
}

// New creates an Assembler. A nil logger discards output.
func New(loader Loader, log *logging.Logger) *Assembler {
	return &Assembler{loader: loader, log: logging.OrNop(log)}
}

// Assemble renders passages (in the order given) followed by the selected
// documents (in selection order). Output is deterministic for fixed inputs
// and is never truncated.
func (a *Assembler) Assemble(ctx context.Context, sel Selection, passages []Passage) (*Result, error) {
	res := &Result{}

	var ragParts []string
	for i, p := range passages {
		text := renderPassage(i, p)
		ragParts = append(ragParts, text)
		res.Blocks = append(res.Blocks, Block{Kind: BlockPassage, Document: p.Source, Text: text})
	}

	var fileParts []string
	for _, e := range sel.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("assemble")
		}

		content, err := a.loader.Load(ctx, e.Document)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Document, err)
		}

		block := Block{Kind: BlockFile, Document: e.Document}
		if e.Scope.Kind() == TopicSubset {
			matched := topic.Filter(topic.Segment(content), e.Scope.IDs())
			if len(matched) > 0 {
				block.Topics = topic.Titles(matched)
				block.Text = renderTopics(e.Document, matched)
			} else {
				a.log.Warn("stale topic selection, using whole document",
					zap.String("document", e.Document),
					zap.Strings("topic_ids", e.Scope.IDs()),
				)
				res.Stale = append(res.Stale, e.Document)
			}
		}
		if block.Text == "" {
			block.Text = renderWhole(e.Document, content)
		}

		fileParts = append(fileParts, block.Text)
		res.Blocks = append(res.Blocks, block)
	}

	rag := strings.Join(ragParts, PassageSeparator)
	files := strings.Join(fileParts, FileSeparator)
	switch {
	case rag != "" && files != "":
		res.Text = rag + SectionDivider + files
	case rag != "":
		res.Text = rag
	default:
		res.Text = files
	}
	return res, nil
}

func renderPassage(i int, p Passage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[RAG Context %d] (Source: %s", i+1, p.Source)
	if p.Topic != "" {
		fmt.Fprintf(&sb, ", Topic: %s", p.Topic)
	}
	sb.WriteString(")\n")
	sb.WriteString(p.Content)
	return sb.String()
}

func renderWhole(name, content string) string {
	return "--- File: " + name + " ---\n" + content
}

func renderTopics(name string, topics []topic.Topic) string {
	contents := make([]string, len(topics))
	for i, t := range topics {
		contents[i] = t.Content
	}
	return fmt.Sprintf("--- File: %s (Topics: %s) ---\n%s",
		name, strings.Join(topic.Titles(topics), ", "), strings.Join(contents, "\n\n"))
}
