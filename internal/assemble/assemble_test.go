package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/scribe/internal/errors"
)

type mapLoader map[string]string

func (m mapLoader) Load(_ context.Context, name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", errors.NewNotFound(name)
	}
	return text, nil
}

const interview = "Intro line.\n\n## Early Life\nGrew up by the sea.\n\n## Career\nBuilt compilers.\n\n## Hobbies\nSailing."

func TestAssemble_WholeDocument(t *testing.T) {
	a := New(mapLoader{"notes.md": "hello"}, nil)

	var sel Selection
	sel.Add("notes.md", Whole())

	res, err := a.Assemble(context.Background(), sel, nil)
	require.NoError(t, err)
	assert.Equal(t, "--- File: notes.md ---\nhello", res.Text)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, BlockFile, res.Blocks[0].Kind)
	assert.Empty(t, res.Stale)
}

func TestAssemble_TopicSubset(t *testing.T) {
	a := New(mapLoader{"interview.md": interview}, nil)

	var sel Selection
	sel.Add("interview.md", Topics("hobbies", "early-life"))

	res, err := a.Assemble(context.Background(), sel, nil)
	require.NoError(t, err)

	want := "--- File: interview.md (Topics: Early Life, Hobbies) ---\n" +
		"## Early Life\nGrew up by the sea.\n\n## Hobbies\nSailing."
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{"Early Life", "Hobbies"}, res.Blocks[0].Topics)
}

func TestAssemble_StaleTopicFallsBackToWholeFile(t *testing.T) {
	a := New(mapLoader{"doc.md": interview}, nil)

	var sel Selection
	sel.Add("doc.md", Topics("stale-id"))

	res, err := a.Assemble(context.Background(), sel, nil)
	require.NoError(t, err)
	assert.Equal(t, "--- File: doc.md ---\n"+interview, res.Text)
	assert.Equal(t, []string{"doc.md"}, res.Stale)
}

func TestAssemble_EmptySubsetEqualsOmittedKey(t *testing.T) {
	loader := mapLoader{"a.md": "alpha", "b.md": interview}
	a := New(loader, nil)

	withEmpty := FromItems([]Item{{Document: "a.md"}, {Document: "b.md", Topics: []string{}}})
	whole := FromItems([]Item{{Document: "a.md"}, {Document: "b.md"}})

	got1, err := a.Assemble(context.Background(), withEmpty, nil)
	require.NoError(t, err)
	got2, err := a.Assemble(context.Background(), whole, nil)
	require.NoError(t, err)

	assert.Equal(t, got2.Text, got1.Text)
	assert.Equal(t, WholeDocument, withEmpty.Entries()[1].Scope.Kind())
}

func TestAssemble_PassagesThenFiles(t *testing.T) {
	a := New(mapLoader{"notes.md": "hello"}, nil)
	passages := []Passage{
		{Content: "first", Source: "x.md", Topic: "Career", Relevance: 1},
		{Content: "second", Source: "y.txt", Relevance: 0.4},
	}

	var sel Selection
	sel.Add("notes.md", Whole())

	res, err := a.Assemble(context.Background(), sel, passages)
	require.NoError(t, err)

	want := "[RAG Context 1] (Source: x.md, Topic: Career)\nfirst" +
		"\n\n---\n\n" +
		"[RAG Context 2] (Source: y.txt)\nsecond" +
		"\n\n========\n\n" +
		"--- File: notes.md ---\nhello"
	assert.Equal(t, want, res.Text)
	require.Len(t, res.Blocks, 3)
	assert.Equal(t, BlockPassage, res.Blocks[0].Kind)
	assert.Equal(t, BlockFile, res.Blocks[2].Kind)
}

func TestAssemble_PassagesOnly(t *testing.T) {
	a := New(mapLoader{}, nil)

	res, err := a.Assemble(context.Background(), Selection{}, []Passage{{Content: "c", Source: "s"}})
	require.NoError(t, err)
	assert.Equal(t, "[RAG Context 1] (Source: s)\nc", res.Text)
}

func TestAssemble_Empty(t *testing.T) {
	res, err := New(mapLoader{}, nil).Assemble(context.Background(), Selection{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
	assert.Empty(t, res.Blocks)
}

func TestAssemble_FilesJoinedInSelectionOrder(t *testing.T) {
	a := New(mapLoader{"a.md": "A", "b.md": "B"}, nil)

	sel := FromItems([]Item{{Document: "b.md"}, {Document: "a.md"}})
	res, err := a.Assemble(context.Background(), sel, nil)
	require.NoError(t, err)
	assert.Equal(t, "--- File: b.md ---\nB\n\n--- File: a.md ---\nA", res.Text)
}

func TestAssemble_Deterministic(t *testing.T) {
	a := New(mapLoader{"interview.md": interview, "n.md": "n"}, nil)
	sel := FromItems([]Item{{Document: "interview.md", Topics: []string{"career"}}, {Document: "n.md"}})
	passages := []Passage{{Content: "p", Source: "interview.md", Topic: "Career"}}

	first, err := a.Assemble(context.Background(), sel, passages)
	require.NoError(t, err)
	for range 5 {
		again, err := a.Assemble(context.Background(), sel, passages)
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text)
	}
}

func TestAssemble_MissingDocument(t *testing.T) {
	a := New(mapLoader{}, nil)

	var sel Selection
	sel.Add("ghost.md", Whole())

	_, err := a.Assemble(context.Background(), sel, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAssemble_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sel Selection
	sel.Add("a.md", Whole())

	_, err := New(mapLoader{"a.md": "x"}, nil).Assemble(ctx, sel, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCancelled))
}
