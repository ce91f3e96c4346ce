package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Passage is one indexed unit of a document.
type Passage struct {
	ID         string
	Document   string
	Ordinal    int
	TopicID    *string
	TopicTitle *string
	Content    string
	Start      int
	End        int
	CreatedAt  int64
}

// DocumentRecord describes an indexed document.
type DocumentRecord struct {
	Name         string `json:"name"`
	ContentHash  string `json:"content_hash"`
	PassageCount int    `json:"passage_count"`
	Strategy     string `json:"strategy"`
	IndexedAt    int64  `json:"indexed_at"`
}

// SearchHit is a passage matched by full-text search with its BM25 score.
// Lower scores are better matches.
type SearchHit struct {
	Passage
	Score float64
}

// UpsertDocument inserts or replaces the index record for a document.
func UpsertDocument(ctx context.Context, q Querier, d DocumentRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO documents (name, content_hash, passage_count, strategy, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		  content_hash = excluded.content_hash,
		  passage_count = excluded.passage_count,
		  strategy = excluded.strategy,
		  indexed_at = excluded.indexed_at`,
		d.Name, d.ContentHash, d.PassageCount, d.Strategy, d.IndexedAt)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", d.Name, err)
	}
	return nil
}

// GetDocument returns the index record for name, or nil if it is not indexed.
func GetDocument(ctx context.Context, q Querier, name string) (*DocumentRecord, error) {
	var d DocumentRecord
	err := q.QueryRowContext(ctx, `
		SELECT name, content_hash, passage_count, strategy, indexed_at
		FROM documents WHERE name = ?`, name).
		Scan(&d.Name, &d.ContentHash, &d.PassageCount, &d.Strategy, &d.IndexedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", name, err)
	}
	return &d, nil
}

// ListDocuments returns all indexed documents ordered by name.
func ListDocuments(ctx context.Context, q Querier) ([]DocumentRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, content_hash, passage_count, strategy, indexed_at
		FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []DocumentRecord{}
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.Name, &d.ContentHash, &d.PassageCount, &d.Strategy, &d.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and its passages. Returns false when it was not indexed.
func DeleteDocument(ctx context.Context, q Querier, name string) (bool, error) {
	if _, err := q.ExecContext(ctx, `DELETE FROM passages WHERE document = ?`, name); err != nil {
		return false, fmt.Errorf("delete passages for %s: %w", name, err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete document %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertPassage stores a passage. The FTS index is kept in sync by trigger.
func InsertPassage(ctx context.Context, q Querier, p *Passage) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO passages (id, document, ordinal, topic_id, topic_title, content, start_offset, end_offset, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Document, p.Ordinal, toNullString(p.TopicID), toNullString(p.TopicTitle),
		p.Content, p.Start, p.End, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert passage %d of %s: %w", p.Ordinal, p.Document, err)
	}
	return nil
}

// ListPassages returns the passages of a document in order.
func ListPassages(ctx context.Context, q Querier, document string) ([]Passage, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, document, ordinal, topic_id, topic_title, content, start_offset, end_offset, created_at
		FROM passages WHERE document = ? ORDER BY ordinal`, document)
	if err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	defer rows.Close()

	var out []Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SearchPassages runs an FTS5 MATCH query and returns hits ordered by BM25
// (best first, ties by document then ordinal). Topic title matches weigh
// twice as much as body matches.
func SearchPassages(ctx context.Context, q Querier, match string, limit int) ([]SearchHit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.document, p.ordinal, p.topic_id, p.topic_title, p.content,
		       p.start_offset, p.end_offset, p.created_at,
		       bm25(passages_fts, 1.0, 2.0) AS score
		FROM passages_fts
		JOIN passages p ON p.seq = passages_fts.rowid
		WHERE passages_fts MATCH ?
		ORDER BY score, p.document, p.ordinal
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		var topicID, topicTitle sql.NullString
		if err := rows.Scan(&h.ID, &h.Document, &h.Ordinal, &topicID, &topicTitle, &h.Content,
			&h.Start, &h.End, &h.CreatedAt, &h.Score); err != nil {
			return nil, err
		}
		h.TopicID = fromNullString(topicID)
		h.TopicTitle = fromNullString(topicTitle)
		out = append(out, h)
	}
	return out, rows.Err()
}

// CountPassages returns the total number of indexed passages.
func CountPassages(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

func scanPassage(rows *sql.Rows) (Passage, error) {
	var p Passage
	var topicID, topicTitle sql.NullString
	if err := rows.Scan(&p.ID, &p.Document, &p.Ordinal, &topicID, &topicTitle, &p.Content,
		&p.Start, &p.End, &p.CreatedAt); err != nil {
		return Passage{}, err
	}
	p.TopicID = fromNullString(topicID)
	p.TopicTitle = fromNullString(topicTitle)
	return p, nil
}

// toNullString converts a string pointer to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts sql.NullString to a string pointer.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
