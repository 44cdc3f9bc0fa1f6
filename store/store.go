// Package store provides persistence for the retrieval document indices.
package store

import (
	"context"
	"database/sql"
)

// Index names of the two retrieval corpora.
const (
	IndexLegal = "legal"
	IndexInfo  = "info"
)

// Document is one embedded text chunk of a retrieval index.
type Document struct {
	ID        int64
	Index     string // IndexLegal or IndexInfo
	Content   string
	Embedding []float32
	CreatedTs int64
}

// ScoredDocument is a search hit with its cosine similarity score.
type ScoredDocument struct {
	Document *Document
	Score    float64
}

// Driver is the database access layer.
type Driver interface {
	GetDB() *sql.DB

	// Migrate creates the schema, including the vector extension.
	Migrate(ctx context.Context) error

	// CreateDocument inserts one embedded document.
	CreateDocument(ctx context.Context, doc *Document) (*Document, error)

	// CountDocuments returns the number of documents in an index.
	CountDocuments(ctx context.Context, index string) (int, error)

	// VectorSearch returns the documents of an index nearest to vector,
	// most similar first.
	VectorSearch(ctx context.Context, index string, vector []float32, limit int) ([]*ScoredDocument, error)

	Close() error
}

// Store wraps a Driver. It exists to keep callers off the raw driver and to
// leave room for caching layers.
type Store struct {
	driver Driver
}

// New creates a Store.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, doc)
}

func (s *Store) CountDocuments(ctx context.Context, index string) (int, error) {
	return s.driver.CountDocuments(ctx, index)
}

func (s *Store) VectorSearch(ctx context.Context, index string, vector []float32, limit int) ([]*ScoredDocument, error) {
	return s.driver.VectorSearch(ctx, index, vector, limit)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
