// Package retrieval provides similarity search and retrieval-augmented
// answering over the pgvector document indices.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/toondesk/toondesk/ai/core/embedding"
	"github.com/toondesk/toondesk/ai/core/reranker"
	"github.com/toondesk/toondesk/store"
)

// DefaultK is the similarity search depth used when callers pass no limit.
const DefaultK = 5

// rerankOverfetch widens the vector search when a reranker will narrow the
// candidates back down to k.
const rerankOverfetch = 3

// Document is one retrieved text chunk.
type Document struct {
	Content string
	Score   float64
}

// Retriever performs embedding-based similarity search over one index.
type Retriever struct {
	store    *store.Store
	embedder embedding.Provider
	reranker reranker.Service
	index    string
}

// NewRetriever creates a Retriever over the named index.
func NewRetriever(st *store.Store, embedder embedding.Provider, index string) *Retriever {
	return &Retriever{store: st, embedder: embedder, index: index}
}

// WithReranker adds a cross-encoder rerank stage after the vector search.
func (r *Retriever) WithReranker(svc reranker.Service) *Retriever {
	r.reranker = svc
	return r
}

// Search returns the k documents most similar to the query. With a reranker
// attached, a wider candidate set is fetched and reordered by relevance;
// rerank failures degrade to the plain vector order.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = DefaultK
	}
	fetch := k
	if r.rerankEnabled() {
		fetch = k * rerankOverfetch
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	hits, err := r.store.VectorSearch(ctx, r.index, vector, fetch)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search index %s", r.index)
	}
	docs := make([]Document, len(hits))
	for i, hit := range hits {
		docs[i] = Document{Content: hit.Document.Content, Score: hit.Score}
	}

	if r.rerankEnabled() && len(docs) > 0 {
		docs = r.rerank(ctx, query, docs, k)
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

func (r *Retriever) rerankEnabled() bool {
	return r.reranker != nil && r.reranker.IsEnabled()
}

func (r *Retriever) rerank(ctx context.Context, query string, docs []Document, k int) []Document {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	results, err := r.reranker.Rerank(ctx, query, contents, k)
	if err != nil {
		slog.Warn("rerank failed, keeping vector order", "index", r.index, "error", err)
		return docs
	}

	reranked := make([]Document, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(docs) {
			continue
		}
		reranked = append(reranked, Document{
			Content: docs[res.Index].Content,
			Score:   float64(res.Score),
		})
	}
	if len(reranked) == 0 {
		return docs
	}
	return reranked
}

// Retrieve returns the DefaultK most similar documents.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	return r.Search(ctx, query, DefaultK)
}
