package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toondesk/toondesk/ai/core/llm"
	"github.com/toondesk/toondesk/ai/intent"
	"github.com/toondesk/toondesk/ai/memory"
	"github.com/toondesk/toondesk/ai/metrics"
	"github.com/toondesk/toondesk/ai/retrieval"
	"github.com/toondesk/toondesk/chat"
	"github.com/toondesk/toondesk/internal/profile"
)

type stubClassifier struct{}

func (s *stubClassifier) Classify(_ context.Context, _ string) intent.Decision {
	return intent.Decision{Label: intent.LabelRecommend, Confidence: 0.9, Source: intent.SourceModel}
}

type stubRanker struct{}

func (s *stubRanker) Recommend(_ context.Context, _ string) string { return "추천 목록" }
func (s *stubRanker) Status(_ context.Context, _ string) string    { return "현황 목록" }

type stubAnswerer struct{}

func (s *stubAnswerer) AnswerWithSources(_ context.Context, _ string) (*retrieval.Answer, error) {
	return &retrieval.Answer{Text: "법률 답변"}, nil
}

type stubSearcher struct{}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]retrieval.Document, error) {
	return nil, nil
}

type stubChat struct{}

func (s *stubChat) Chat(_ context.Context, _ []llm.Message) (string, *llm.CallStats, error) {
	return "답변", &llm.CallStats{}, nil
}

func (s *stubChat) Warmup(_ context.Context) {}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	exporter := metrics.NewExporter()
	dispatcher := chat.NewDispatcher(
		&stubClassifier{}, &stubRanker{}, &stubAnswerer{},
		&stubSearcher{}, &stubSearcher{}, &stubChat{},
		memory.NewInMemoryStore(), exporter,
	)
	prof := &profile.Profile{Mode: "dev", Port: 8000}
	return NewServer(prof, dispatcher, exporter)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)
	return rec
}

func TestAskEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/ask", `{"question": "웹툰 추천해줘", "session_id": "s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply chat.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "추천", reply.Intent)
	assert.Equal(t, "추천 목록", reply.Answer)
	assert.NotNil(t, reply.Chunks)
}

func TestAskEmptyQuestionReturns400(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/ask", `{"question": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskMalformedBodyReturns400(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/ask", `{"question": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// A handled request must show up in the request counter family.
	doRequest(s, http.MethodPost, "/ask", `{"question": "추천해줘"}`)

	rec := doRequest(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "toondesk_requests_total")
}
