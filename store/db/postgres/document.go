package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/toondesk/toondesk/store"
)

// CreateDocument inserts one embedded document.
func (d *DB) CreateDocument(ctx context.Context, doc *store.Document) (*store.Document, error) {
	stmt := `
		INSERT INTO document (index_name, content, embedding, created_ts)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	vector := pgvector.NewVector(doc.Embedding)
	if err := d.db.QueryRowContext(ctx, stmt,
		doc.Index,
		doc.Content,
		vector,
		doc.CreatedTs,
	).Scan(&doc.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return doc, nil
}

// CountDocuments returns the number of documents in an index.
func (d *DB) CountDocuments(ctx context.Context, index string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document WHERE index_name = $1`, index,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count documents")
	}
	return count, nil
}

// VectorSearch performs cosine similarity search using pgvector.
// The <=> operator computes cosine distance, so ordering by it ascending
// yields the most similar documents first.
func (d *DB) VectorSearch(ctx context.Context, index string, vector []float32, limit int) ([]*store.ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT
			id, index_name, content, created_ts,
			1 - (embedding <=> $1) AS score
		FROM document
		WHERE index_name = $2
			AND embedding IS NOT NULL
		ORDER BY embedding <=> $3
		LIMIT $4
	`
	v := pgvector.NewVector(vector)
	rows, err := d.db.QueryContext(ctx, query, v, index, v, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.ScoredDocument{}
	for rows.Next() {
		var doc store.Document
		var result store.ScoredDocument
		if err := rows.Scan(
			&doc.ID,
			&doc.Index,
			&doc.Content,
			&doc.CreatedTs,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		result.Document = &doc
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
