package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, db *sql.DB, doc string, contents ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, UpsertDocument(ctx, db, DocumentRecord{
		Name: doc, ContentHash: "h", PassageCount: len(contents), Strategy: "chunks", IndexedAt: 1,
	}))
	for i, c := range contents {
		require.NoError(t, InsertPassage(ctx, db, &Passage{
			ID:       fmt.Sprintf("%s-%d", doc, i),
			Document: doc,
			Ordinal:  i,
			Content:  c,
			Start:    i * 10,
			End:      i*10 + len(c),
		}))
	}
}

func TestSearchPassages(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seed(t, db, "a.md", "the quick brown fox", "a lazy dog sleeps")
	seed(t, db, "b.md", "fox fox fox everywhere")

	hits, err := SearchPassages(ctx, db, `"fox"`, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b.md", hits[0].Document, "denser match ranks first")
	assert.Less(t, hits[0].Score, hits[1].Score)

	hits, err = SearchPassages(ctx, db, `"fox"`, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = SearchPassages(ctx, db, `"unicorn"`, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchPassages_TopicTitle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, UpsertDocument(ctx, db, DocumentRecord{Name: "t.md", ContentHash: "h", Strategy: "topics"}))
	require.NoError(t, InsertPassage(ctx, db, &Passage{
		ID: "p1", Document: "t.md", Content: "## Sailing\nWeekends on the water.",
		TopicID: strPtr("sailing"), TopicTitle: strPtr("Sailing"),
	}))

	hits, err := SearchPassages(ctx, db, `"sailing"`, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].TopicTitle)
	assert.Equal(t, "Sailing", *hits[0].TopicTitle)
	assert.Equal(t, "sailing", *hits[0].TopicID)
}

func TestDeleteDocument_RemovesFromFTS(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seed(t, db, "a.md", "alpha beta")
	seed(t, db, "b.md", "alpha gamma")

	deleted, err := DeleteDocument(ctx, db, "a.md")
	require.NoError(t, err)
	assert.True(t, deleted)

	hits, err := SearchPassages(ctx, db, `"alpha"`, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.md", hits[0].Document)

	deleted, err = DeleteDocument(ctx, db, "a.md")
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := CountPassages(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDocuments(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	got, err := GetDocument(ctx, db, "missing.md")
	require.NoError(t, err)
	assert.Nil(t, got)

	seed(t, db, "b.md", "x")
	seed(t, db, "a.md", "y", "z")

	require.NoError(t, UpsertDocument(ctx, db, DocumentRecord{Name: "a.md", ContentHash: "h2", PassageCount: 2, Strategy: "topics", IndexedAt: 5}))

	got, err = GetDocument(ctx, db, "a.md")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h2", got.ContentHash)
	assert.Equal(t, "topics", got.Strategy)

	// Upsert must not cascade-delete passages.
	passages, err := ListPassages(ctx, db, "a.md")
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "y", passages[0].Content)
	assert.Nil(t, passages[0].TopicID)

	list, err := ListDocuments(ctx, db)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.md", list[0].Name)
	assert.Equal(t, "b.md", list[1].Name)
}

func TestInsertPassage_RequiresDocument(t *testing.T) {
	db := setupDB(t)

	err := InsertPassage(context.Background(), db, &Passage{ID: "x", Document: "orphan.md", Content: "c"})
	assert.Error(t, err)
}

func TestQuerier_Tx(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, UpsertDocument(ctx, tx, DocumentRecord{Name: "tx.md", ContentHash: "h", Strategy: "chunks"}))
	require.NoError(t, InsertPassage(ctx, tx, &Passage{ID: "tx-0", Document: "tx.md", Content: "rolled back"}))
	require.NoError(t, tx.Rollback())

	n, err := CountPassages(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
