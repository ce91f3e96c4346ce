package format

import (
	"strconv"
	"strings"

	"github.com/hpungsan/scribe/internal/errors"
)

// Template placeholders.
const (
	PlaceholderContent       = "{content}"
	PlaceholderChunkNumber   = "{chunk_number}"
	PlaceholderTotalChunks   = "{total_chunks}"
	PlaceholderOverlapBefore = "{overlap_before}"
	PlaceholderOverlapAfter  = "{overlap_after}"
)

// Template is a prompt with placeholders filled per chunk.
type Template string

// DefaultTemplate formats a raw transcript chunk into clean markdown with level-2 topic headings.
const DefaultTemplate Template = `You are formatting part {chunk_number} of {total_chunks} of a raw transcript.
Rewrite it as clean, readable markdown. Fix punctuation and paragraphing, keep speaker
labels, and do not summarize or drop content. Start a new "## " heading whenever the
conversation moves to a new topic.

The text just before this part (context only, do not repeat it):
<<<
{overlap_before}
>>>

The text just after this part (context only, do not repeat it):
<<<
{overlap_after}
>>>

Part to format:
{content}`

// Vars holds the values substituted into a template.
type Vars struct {
	Content       string
	ChunkNumber   int // 1-based
	TotalChunks   int
	OverlapBefore string
	OverlapAfter  string
}

// Validate reports an INVALID_REQUEST error when the template has no {content} placeholder.
func (t Template) Validate() error {
	if !strings.Contains(string(t), PlaceholderContent) {
		return errors.NewInvalidRequest("template must contain " + PlaceholderContent)
	}
	return nil
}

// Fill substitutes every placeholder in a single pass, so placeholder-like
// text inside the chunk or overlaps is left untouched.
func (t Template) Fill(v Vars) string {
	r := strings.NewReplacer(
		PlaceholderContent, v.Content,
		PlaceholderChunkNumber, strconv.Itoa(v.ChunkNumber),
		PlaceholderTotalChunks, strconv.Itoa(v.TotalChunks),
		PlaceholderOverlapBefore, v.OverlapBefore,
		PlaceholderOverlapAfter, v.OverlapAfter,
	)
	return r.Replace(string(t))
}
