// Package chat routes classified questions to their answer handlers and
// assembles the response.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/toondesk/toondesk/ai/core/llm"
	"github.com/toondesk/toondesk/ai/intent"
	"github.com/toondesk/toondesk/ai/memory"
	"github.com/toondesk/toondesk/ai/metrics"
	"github.com/toondesk/toondesk/ai/retrieval"
)

// DefaultSessionID is used when a request carries no session identifier.
const DefaultSessionID = "default"

// Fixed degraded answers.
const (
	InfoNotFoundMessage = "해당 정보를 웹툰 데이터베이스에서 찾을 수 없습니다. 웹툰과 관련된 다른 질문을 해주세요."
	UnknownMessage      = "❗ 질문을 이해하지 못했습니다. 다시 시도해주세요."
	unavailableMessage  = "❗ 일시적인 오류로 답변을 생성하지 못했습니다. 잠시 후 다시 시도해주세요."
)

const infoSystemPrompt = `너는 웹툰 전문가야. 반드시 웹툰 데이터베이스(검색 문서) 내 정보만 사용해. ` +
	`문서가 없으면 '해당 정보를 찾을 수 없습니다'라고만 말해.`

// ErrEmptyQuestion rejects blank input; it is the only error Handle returns.
var ErrEmptyQuestion = errors.New("question is empty")

// Reply is the assembled answer for one question.
type Reply struct {
	Intent string   `json:"intent"`
	Answer string   `json:"answer"`
	Chunks []string `json:"chunks"`
}

// Classifier is the intent decision capability.
type Classifier interface {
	Classify(ctx context.Context, question string) intent.Decision
}

// Ranker answers status and recommendation questions from the dataset.
type Ranker interface {
	Recommend(ctx context.Context, question string) string
	Status(ctx context.Context, question string) string
}

// LegalAnswerer produces retrieval-augmented answers with sources.
type LegalAnswerer interface {
	AnswerWithSources(ctx context.Context, query string) (*retrieval.Answer, error)
}

// Searcher performs similarity search over an index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Document, error)
}

// Dispatcher wires the classifier to the four answer paths.
type Dispatcher struct {
	classifier  Classifier
	ranker      Ranker
	legal       LegalAnswerer
	legalSearch Searcher
	info        Searcher
	llm         llm.Service
	memory      memory.Store
	exporter    *metrics.Exporter
}

// NewDispatcher creates a Dispatcher. exporter may be nil.
func NewDispatcher(
	classifier Classifier,
	ranker Ranker,
	legal LegalAnswerer,
	legalSearch Searcher,
	info Searcher,
	llmService llm.Service,
	sessionStore memory.Store,
	exporter *metrics.Exporter,
) *Dispatcher {
	return &Dispatcher{
		classifier:  classifier,
		ranker:      ranker,
		legal:       legal,
		legalSearch: legalSearch,
		info:        info,
		llm:         llmService,
		memory:      sessionStore,
		exporter:    exporter,
	}
}

// Handle classifies the question and runs the matching handler. Beyond the
// empty-question rejection every outcome is a textual answer: external
// failures degrade to fixed messages rather than errors.
func (d *Dispatcher) Handle(ctx context.Context, question, sessionID string) (*Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	start := time.Now()
	decision := d.classifier.Classify(ctx, question)

	reply := &Reply{Intent: string(decision.Label), Chunks: []string{}}
	switch decision.Label {
	case intent.LabelLegal:
		reply.Answer, reply.Chunks = d.handleLegal(ctx, question)
	case intent.LabelStatus:
		reply.Answer = d.ranker.Status(ctx, question)
	case intent.LabelRecommend:
		reply.Answer = d.ranker.Recommend(ctx, question)
	case intent.LabelInfo:
		reply.Answer = d.handleInfo(ctx, question, sessionID)
	default:
		reply.Answer = UnknownMessage
	}

	d.exporter.RecordRequest(string(decision.Label), time.Since(start))
	slog.Debug("question handled",
		"intent", decision.Label,
		"source", decision.Source,
		"session_id", sessionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// handleLegal answers over the legal index and additionally surfaces a
// standalone top-5 similarity search as evidence snippets.
func (d *Dispatcher) handleLegal(ctx context.Context, question string) (string, []string) {
	answer, err := d.legal.AnswerWithSources(ctx, question)
	if err != nil {
		slog.Error("legal answering failed", "error", err)
		return unavailableMessage, []string{}
	}

	chunks := []string{}
	docs, err := d.legalSearch.Search(ctx, question, 5)
	if err != nil {
		slog.Warn("legal evidence search failed", "error", err)
	} else {
		for _, doc := range docs {
			chunks = append(chunks, doc.Content)
		}
	}
	return answer.Text, chunks
}

// handleInfo answers from the info index with strict-context generation and
// records the turn in session memory. A retrieval miss short-circuits to the
// fixed not-found message without calling the model.
func (d *Dispatcher) handleInfo(ctx context.Context, question, sessionID string) string {
	docs, err := d.info.Search(ctx, question, retrieval.DefaultK)
	if err != nil {
		slog.Error("info retrieval failed", "error", err)
		return unavailableMessage
	}
	if len(docs) == 0 {
		return InfoNotFoundMessage
	}

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
	}
	messages := []llm.Message{
		llm.SystemPrompt(infoSystemPrompt),
		llm.UserMessage(fmt.Sprintf("질문: %s\n\n관련 문서:\n%s", question, strings.Join(contents, "\n\n"))),
	}
	answer, _, err := d.llm.Chat(ctx, messages)
	if err != nil {
		slog.Error("info answering failed", "error", err)
		return unavailableMessage
	}

	d.memory.Append(sessionID, question, answer)
	return answer
}
