// Package retrieval indexes documents into passages and ranks them for a query
// with SQLite FTS5 (BM25).
package retrieval

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/assemble"
	"github.com/hpungsan/scribe/internal/chunk"
	"github.com/hpungsan/scribe/internal/db"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/logging"
	"github.com/hpungsan/scribe/internal/topic"
)

// Limits for search.
const (
	DefaultTopK    = 5
	MaxTopK        = 50
	MaxQueryLength = 1000
	MaxQueryTerms  = 32
	cacheSize      = 256
)

// Strategy is how a document was cut into passages.
type Strategy string

const (
	StrategyTopics Strategy = "topics"
	StrategyChunks Strategy = "chunks"
)

// IndexOptions configures IndexDocument.
type IndexOptions struct {
	// PassageSize is the target passage length. Topics longer than this are split further.
	PassageSize  int
	WindowRadius int
	// Force reindexes even when the content hash is unchanged.
	Force bool
}

// IndexResult reports what IndexDocument did.
type IndexResult struct {
	Document string   `json:"document"`
	Strategy Strategy `json:"strategy"`
	Passages int      `json:"passages"`
	// Unchanged is true when the document was already indexed with identical content.
	Unchanged bool `json:"unchanged"`
}

// Index is a passage index backed by SQLite. Safe for concurrent use.
type Index struct {
	db    *sql.DB
	cache *lru.Cache[string, []assemble.Passage]
	log   *logging.Logger
}

// NewIndex creates an Index over an initialized database.
func NewIndex(database *sql.DB, log *logging.Logger) *Index {
	cache, err := lru.New[string, []assemble.Passage](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Index{db: database, cache: cache, log: logging.OrNop(log).Named("retrieval")}
}

// IndexDocument replaces every passage of name with passages cut from text.
// Documents with level-2 headings are cut by topic; others by chunk.
func (ix *Index) IndexDocument(ctx context.Context, name, text string, opts IndexOptions) (*IndexResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequest("document name is required")
	}
	if opts.PassageSize < 1 {
		return nil, errors.NewInvalidRequest("passage size must be at least 1")
	}

	hash := contentHash(text)
	existing, err := db.GetDocument(ctx, ix.db, name)
	if err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}
	if existing != nil && existing.ContentHash == hash && !opts.Force {
		return &IndexResult{
			Document:  name,
			Strategy:  Strategy(existing.Strategy),
			Passages:  existing.PassageCount,
			Unchanged: true,
		}, nil
	}

	strategy, pieces, err := cut(text, opts)
	if err != nil {
		return nil, err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := db.DeleteDocument(ctx, tx, name); err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}

	now := time.Now()
	if err := db.UpsertDocument(ctx, tx, db.DocumentRecord{
		Name:         name,
		ContentHash:  hash,
		PassageCount: len(pieces),
		Strategy:     string(strategy),
		IndexedAt:    now.Unix(),
	}); err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}

	entropy := ulid.Monotonic(rand.Reader, 0)
	for i := range pieces {
		id, err := ulid.New(ulid.Timestamp(now), entropy)
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("generate passage id: %w", err))
		}
		p := &pieces[i]
		p.ID = id.String()
		p.Document = name
		p.Ordinal = i
		p.CreatedAt = now.Unix()
		if err := db.InsertPassage(ctx, tx, p); err != nil {
			return nil, errors.NewRetrievalUnavailable(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}
	ix.cache.Purge()

	ix.log.Info("document indexed",
		zap.String("document", name),
		zap.String("strategy", string(strategy)),
		zap.Int("passages", len(pieces)),
	)
	return &IndexResult{Document: name, Strategy: strategy, Passages: len(pieces)}, nil
}

// Search returns up to topK passages for query, best first. Relevance is the
// passage's BM25 score relative to the best hit, in (0, 1].
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]assemble.Passage, error) {
	if len(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d bytes", MaxQueryLength))
	}
	match := MatchQuery(query)
	if match == "" {
		return nil, errors.NewInvalidRequest("query has no searchable terms")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	topK = min(topK, MaxTopK)

	key := fmt.Sprintf("%d\x00%s", topK, match)
	if cached, ok := ix.cache.Get(key); ok {
		return clonePassages(cached), nil
	}

	hits, err := db.SearchPassages(ctx, ix.db, match, topK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("search")
		}
		return nil, errors.NewRetrievalUnavailable(err)
	}

	out := make([]assemble.Passage, len(hits))
	for i, h := range hits {
		out[i] = assemble.Passage{
			Content:   h.Content,
			Source:    h.Document,
			Relevance: relevance(h.Score, hits[0].Score),
		}
		if h.TopicTitle != nil {
			out[i].Topic = *h.TopicTitle
		}
	}

	ix.cache.Add(key, out)
	return clonePassages(out), nil
}

// RemoveDocument drops a document from the index. Returns false when it was not indexed.
func (ix *Index) RemoveDocument(ctx context.Context, name string) (bool, error) {
	removed, err := db.DeleteDocument(ctx, ix.db, name)
	if err != nil {
		return false, errors.NewRetrievalUnavailable(err)
	}
	ix.cache.Purge()
	return removed, nil
}

// Documents lists indexed documents.
func (ix *Index) Documents(ctx context.Context) ([]db.DocumentRecord, error) {
	docs, err := db.ListDocuments(ctx, ix.db)
	if err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}
	return docs, nil
}

// Passages returns the stored passages of one document in order.
func (ix *Index) Passages(ctx context.Context, name string) ([]db.Passage, error) {
	ps, err := db.ListPassages(ctx, ix.db, name)
	if err != nil {
		return nil, errors.NewRetrievalUnavailable(err)
	}
	return ps, nil
}

// cut turns text into unsaved passages.
func cut(text string, opts IndexOptions) (Strategy, []db.Passage, error) {
	chunkOpts := chunk.Options{TargetSize: opts.PassageSize, WindowRadius: opts.WindowRadius}

	topics := topic.Segment(text)
	if !hasHeadings(topics) {
		chunks, err := chunk.Split(text, chunkOpts)
		if err != nil {
			return "", nil, err
		}
		var out []db.Passage
		for _, c := range chunks {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			out = append(out, db.Passage{Content: c.Text, Start: c.Start, End: c.End})
		}
		return StrategyChunks, out, nil
	}

	lineStarts := lineOffsets(text)
	var out []db.Passage
	for _, t := range topics {
		// Topic content is trimmed, so locate it from its first line.
		lineStart := lineStarts[t.StartLine-1]
		base := lineStart + max(strings.Index(text[lineStart:], t.Content), 0)
		// Oversized topics are split further; pieces keep the topic label.
		chunks, err := chunk.Split(t.Content, chunkOpts)
		if err != nil {
			return "", nil, err
		}
		for _, c := range chunks {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			id, title := t.ID, t.Title
			out = append(out, db.Passage{
				Content:    c.Text,
				TopicID:    &id,
				TopicTitle: &title,
				Start:      base + c.Start,
				End:        base + c.End,
			})
		}
	}
	return StrategyTopics, out, nil
}

func hasHeadings(topics []topic.Topic) bool {
	for _, t := range topics {
		if strings.HasPrefix(t.Content, "## ") {
			return true
		}
	}
	return false
}

// lineOffsets returns the byte offset of the start of each line.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// relevance maps a BM25 score (negative, lower is better) to (0, 1] against the best score.
func relevance(score, best float64) float64 {
	if best >= 0 || score >= 0 {
		return 1
	}
	r := score / best
	if r > 1 {
		return 1
	}
	return r
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func clonePassages(ps []assemble.Passage) []assemble.Passage {
	out := make([]assemble.Passage, len(ps))
	copy(out, ps)
	return out
}
