package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/toondesk/toondesk/ai/core/embedding"
	"github.com/toondesk/toondesk/catalog"
	"github.com/toondesk/toondesk/store"
)

const (
	indexBatchSize = 16
	// indexConcurrency bounds in-flight embedding batches during bootstrap.
	indexConcurrency = 3
)

// Indexer builds the info retrieval index from the catalog dataset.
type Indexer struct {
	store    *store.Store
	embedder embedding.Provider
}

// NewIndexer creates an Indexer.
func NewIndexer(st *store.Store, embedder embedding.Provider) *Indexer {
	return &Indexer{store: st, embedder: embedder}
}

// EnsureCatalogIndex populates the info index from the catalog rows when it
// is empty. Already-populated indices are left untouched.
func (ix *Indexer) EnsureCatalogIndex(ctx context.Context, table *catalog.Table) error {
	count, err := ix.store.CountDocuments(ctx, store.IndexInfo)
	if err != nil {
		return errors.Wrap(err, "failed to inspect info index")
	}
	if count > 0 {
		slog.Debug("info index already populated", "documents", count)
		return nil
	}

	texts := make([]string, 0, table.Len())
	for _, row := range table.Rows() {
		texts = append(texts, renderRow(table, row))
	}
	if len(texts) == 0 {
		slog.Warn("catalog is empty, skipping info index build")
		return nil
	}

	slog.Info("building info index", "documents", len(texts))
	start := time.Now()

	sem := semaphore.NewWeighted(indexConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for offset := 0; offset < len(texts); offset += indexBatchSize {
		end := offset + indexBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[offset:end]

		if err := sem.Acquire(ctx, 1); err != nil {
			return errors.Wrap(err, "index build cancelled")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			if err := ix.indexBatch(ctx, batch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	slog.Info("info index built",
		"documents", len(texts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (ix *Indexer) indexBatch(ctx context.Context, batch []string) error {
	vectors, err := ix.embedder.EmbedBatch(ctx, batch)
	if err != nil {
		return errors.Wrap(err, "failed to embed catalog batch")
	}
	if len(vectors) != len(batch) {
		return errors.Errorf("embedding count mismatch: %d texts, %d vectors", len(batch), len(vectors))
	}
	now := time.Now().Unix()
	for i, text := range batch {
		_, err := ix.store.CreateDocument(ctx, &store.Document{
			Index:     store.IndexInfo,
			Content:   text,
			Embedding: vectors[i],
			CreatedTs: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// renderRow flattens one catalog row into the indexed document form:
// title, synopsis (keyword fallback), then the remaining columns as metadata.
func renderRow(table *catalog.Table, row catalog.Row) string {
	title := row.Get(catalog.ColTitle)
	summary := row.Get(catalog.ColSynopsis)
	if summary == "" {
		summary = row.Get(catalog.ColKeywords)
	}

	meta := make([]string, 0, len(table.Columns()))
	for _, col := range table.Columns() {
		meta = append(meta, fmt.Sprintf("%s=%s", col, row.Get(col)))
	}
	return fmt.Sprintf("제목: %s\n요약: %s\n메타: %s", title, summary, strings.Join(meta, ", "))
}
