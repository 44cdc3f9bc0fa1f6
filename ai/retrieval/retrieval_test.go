package retrieval

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toondesk/toondesk/ai/core/llm"
	"github.com/toondesk/toondesk/ai/core/reranker"
	"github.com/toondesk/toondesk/catalog"
	"github.com/toondesk/toondesk/store"
)

type fakeEmbedder struct {
	mu        sync.Mutex
	dims      int
	embedErr  error
	batchErr  error
	batchSize []int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return make([]float32, f.dims), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	f.mu.Lock()
	f.batchSize = append(f.batchSize, len(texts))
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

// fakeDriver is an in-memory store.Driver for exercising the retrieval layer.
type fakeDriver struct {
	mu        sync.Mutex
	docs      []*store.Document
	hits      []*store.ScoredDocument
	searchErr error
}

func (f *fakeDriver) GetDB() *sql.DB                  { return nil }
func (f *fakeDriver) Migrate(_ context.Context) error { return nil }
func (f *fakeDriver) Close() error                    { return nil }

func (f *fakeDriver) CreateDocument(_ context.Context, doc *store.Document) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.ID = int64(len(f.docs) + 1)
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeDriver) CountDocuments(_ context.Context, index string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.docs {
		if d.Index == index {
			n++
		}
	}
	return n, nil
}

func (f *fakeDriver) VectorSearch(_ context.Context, _ string, _ []float32, limit int) ([]*store.ScoredDocument, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.hits) > limit {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(_ context.Context, _ []llm.Message) (string, *llm.CallStats, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.response, &llm.CallStats{}, nil
}

func (f *fakeLLM) Warmup(_ context.Context) {}

func scored(content string, score float64) *store.ScoredDocument {
	return &store.ScoredDocument{Document: &store.Document{Content: content}, Score: score}
}

func TestSearch(t *testing.T) {
	driver := &fakeDriver{hits: []*store.ScoredDocument{
		scored("저작권법 제10조", 0.92),
		scored("2차적저작물 조항", 0.81),
	}}
	r := NewRetriever(store.New(driver), &fakeEmbedder{dims: 4}, store.IndexLegal)

	docs, err := r.Search(context.Background(), "저작권", 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "저작권법 제10조", docs[0].Content)
	assert.Equal(t, 0.92, docs[0].Score)
}

func TestSearchDefaultsNonPositiveK(t *testing.T) {
	hits := make([]*store.ScoredDocument, 0, DefaultK+2)
	for i := 0; i < DefaultK+2; i++ {
		hits = append(hits, scored("doc", 0.5))
	}
	driver := &fakeDriver{hits: hits}
	r := NewRetriever(store.New(driver), &fakeEmbedder{dims: 4}, store.IndexInfo)

	docs, err := r.Search(context.Background(), "질문", 0)
	require.NoError(t, err)
	assert.Len(t, docs, DefaultK)
}

type fakeReranker struct {
	results []reranker.Result
	err     error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, _ []string, _ int) ([]reranker.Result, error) {
	return f.results, f.err
}

func (f *fakeReranker) IsEnabled() bool { return true }

func TestSearchWithReranker(t *testing.T) {
	driver := &fakeDriver{hits: []*store.ScoredDocument{
		scored("first by vector", 0.9),
		scored("second by vector", 0.8),
	}}
	rr := &fakeReranker{results: []reranker.Result{
		{Index: 1, Score: 0.95},
		{Index: 0, Score: 0.40},
	}}
	r := NewRetriever(store.New(driver), &fakeEmbedder{dims: 4}, store.IndexLegal).WithReranker(rr)

	docs, err := r.Search(context.Background(), "질문", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "second by vector", docs[0].Content)
	assert.Equal(t, "first by vector", docs[1].Content)
}

func TestSearchRerankFailureKeepsVectorOrder(t *testing.T) {
	driver := &fakeDriver{hits: []*store.ScoredDocument{
		scored("first", 0.9),
		scored("second", 0.8),
	}}
	rr := &fakeReranker{err: errors.New("quota")}
	r := NewRetriever(store.New(driver), &fakeEmbedder{dims: 4}, store.IndexLegal).WithReranker(rr)

	docs, err := r.Search(context.Background(), "질문", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first", docs[0].Content)
}

func TestSearchEmbedFailure(t *testing.T) {
	r := NewRetriever(store.New(&fakeDriver{}), &fakeEmbedder{embedErr: errors.New("quota")}, store.IndexInfo)

	_, err := r.Search(context.Background(), "질문", 3)
	assert.Error(t, err)
}

func TestAnswerWithSources(t *testing.T) {
	driver := &fakeDriver{hits: []*store.ScoredDocument{scored("저작권법 제10조", 0.9)}}
	r := NewRetriever(store.New(driver), &fakeEmbedder{dims: 4}, store.IndexLegal)
	a := NewAnswerer(r, &fakeLLM{response: "저작권은 원작자에게 귀속됩니다."})

	answer, err := a.AnswerWithSources(context.Background(), "드라마화 저작권은?")
	require.NoError(t, err)
	assert.Equal(t, "저작권은 원작자에게 귀속됩니다.", answer.Text)
	assert.Equal(t, []string{"저작권법 제10조"}, answer.Sources)
}

func TestAnswerWithSourcesEmptyIndex(t *testing.T) {
	r := NewRetriever(store.New(&fakeDriver{}), &fakeEmbedder{dims: 4}, store.IndexLegal)
	a := NewAnswerer(r, &fakeLLM{response: "unused"})

	answer, err := a.AnswerWithSources(context.Background(), "질문")
	require.NoError(t, err)
	assert.Empty(t, answer.Text)
	assert.Empty(t, answer.Sources)
}

func catalogTable(rows int) *catalog.Table {
	columns := []string{"제목", "카테고리", "키워드"}
	out := make([]catalog.Row, 0, rows)
	for i := 0; i < rows; i++ {
		out = append(out, catalog.Row{"제목": "작품", "카테고리": "로맨스", "키워드": "달달"})
	}
	return catalog.NewTable(columns, out)
}

func TestEnsureCatalogIndexBuildsOnce(t *testing.T) {
	driver := &fakeDriver{}
	embedder := &fakeEmbedder{dims: 4}
	ix := NewIndexer(store.New(driver), embedder)

	require.NoError(t, ix.EnsureCatalogIndex(context.Background(), catalogTable(40)))

	count, err := store.New(driver).CountDocuments(context.Background(), store.IndexInfo)
	require.NoError(t, err)
	assert.Equal(t, 40, count)

	// A second run must be a no-op against the populated index.
	embedder.batchSize = nil
	require.NoError(t, ix.EnsureCatalogIndex(context.Background(), catalogTable(40)))
	assert.Empty(t, embedder.batchSize)
}

func TestEnsureCatalogIndexEmptyCatalog(t *testing.T) {
	driver := &fakeDriver{}
	ix := NewIndexer(store.New(driver), &fakeEmbedder{dims: 4})

	require.NoError(t, ix.EnsureCatalogIndex(context.Background(), catalogTable(0)))

	count, err := store.New(driver).CountDocuments(context.Background(), store.IndexInfo)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnsureCatalogIndexPropagatesEmbedFailure(t *testing.T) {
	ix := NewIndexer(store.New(&fakeDriver{}), &fakeEmbedder{batchErr: errors.New("quota")})

	assert.Error(t, ix.EnsureCatalogIndex(context.Background(), catalogTable(3)))
}

func TestRenderRow(t *testing.T) {
	table := catalog.NewTable(
		[]string{"제목", "줄거리", "키워드"},
		[]catalog.Row{{"제목": "나빌레라", "줄거리": "발레를 시작한 노인", "키워드": "발레"}},
	)
	doc := renderRow(table, table.Rows()[0])

	assert.Contains(t, doc, "제목: 나빌레라")
	assert.Contains(t, doc, "요약: 발레를 시작한 노인")
	assert.Contains(t, doc, "메타: 제목=나빌레라")
}

func TestRenderRowSynopsisFallsBackToKeywords(t *testing.T) {
	table := catalog.NewTable(
		[]string{"제목", "키워드"},
		[]catalog.Row{{"제목": "작품A", "키워드": "전투, 성장"}},
	)
	doc := renderRow(table, table.Rows()[0])

	assert.Contains(t, doc, "요약: 전투, 성장")
}
