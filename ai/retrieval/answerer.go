package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/toondesk/toondesk/ai/core/llm"
)

const answerSystemPrompt = `너는 웹툰 2차 창작 법률 상담 도우미다. ` +
	`아래 제공되는 문서 내용만 근거로 답한다. 문서에 없는 내용은 추측하지 않는다.`

// Answer is a retrieval-augmented answer with its supporting sources.
type Answer struct {
	Text    string
	Sources []string
}

// Answerer produces retrieval-augmented answers over one index.
type Answerer struct {
	retriever *Retriever
	llm       llm.Service
}

// NewAnswerer creates an Answerer.
func NewAnswerer(retriever *Retriever, llmService llm.Service) *Answerer {
	return &Answerer{retriever: retriever, llm: llmService}
}

// AnswerWithSources retrieves the most relevant documents and asks the model
// to answer strictly from them. The retrieved contents are returned as
// sources alongside the answer.
func (a *Answerer) AnswerWithSources(ctx context.Context, query string) (*Answer, error) {
	docs, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Answer{Text: "", Sources: nil}, nil
	}

	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	corpus := strings.Join(contents, "\n\n")

	messages := []llm.Message{
		llm.SystemPrompt(answerSystemPrompt),
		llm.UserMessage(fmt.Sprintf("질문: %s\n\n관련 문서:\n%s", query, corpus)),
	}
	text, _, err := a.llm.Chat(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate answer")
	}
	return &Answer{Text: text, Sources: contents}, nil
}
