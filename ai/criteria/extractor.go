package criteria

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toondesk/toondesk/ai/core/llm"
	"github.com/toondesk/toondesk/ai/structured"
)

const extractSystemPrompt = `사용자 질문에서 추천/현황 분석에 필요한 필터를 추출한다. ` +
	`카테고리(자유 텍스트), 연령층(10~20대/30대/40대/빈), 성별(남성/여성/빈)을 채워라. ` +
	`JSON으로만 출력한다. 필드: 카테고리, 연령층, 성별.`

// Category vocabulary for the keyword fallback, in priority order:
// the first category found in the question wins.
var categoryVocabulary = []string{
	"로맨스", "드라마", "액션", "무협", "스릴러", "판타지", "코미디", "학원", "스포츠", "공포",
}

var (
	teens20sKeywords = []string{"10대", "20대", "10~20대", "젊은", "청소년", "Z세대"}
	thirtiesKeywords = []string{"30대", "직장인"}
	fortiesKeywords  = []string{"40대"}
	femaleKeywords   = []string{"여성", "여자"}
	maleKeywords     = []string{"남성", "남자"}
)

// Extractor turns a question into filter Criteria. It is total: model
// failures degrade to deterministic keyword matching.
type Extractor struct {
	llm llm.Service
}

// NewExtractor creates an Extractor.
func NewExtractor(llmService llm.Service) *Extractor {
	return &Extractor{llm: llmService}
}

// Extract asks the model once for the criteria record, repairs malformed
// output via the recovery chain, and falls back to keyword matching when
// nothing usable comes back.
func (e *Extractor) Extract(ctx context.Context, question string) Criteria {
	messages := []llm.Message{
		llm.SystemPrompt(extractSystemPrompt),
		llm.UserMessage(fmt.Sprintf("질문: %s", question)),
	}
	raw, _, err := e.llm.Chat(ctx, messages)
	if err != nil {
		slog.Warn("criteria extraction call failed, using keyword fallback", "error", err)
		return KeywordCriteria(question)
	}

	parsed, ok := structured.Recover[Criteria](raw, schema)
	if !ok {
		slog.Warn("criteria payload unrecoverable, using keyword fallback", "raw_length", len(raw))
		return KeywordCriteria(question)
	}
	return *parsed
}

// KeywordCriteria derives criteria from fixed keyword sets. Fields without
// a matching keyword stay unset.
func KeywordCriteria(question string) Criteria {
	var c Criteria

	for _, category := range categoryVocabulary {
		if strings.Contains(question, category) {
			c.Category = category
			break
		}
	}

	switch {
	case containsAny(question, teens20sKeywords):
		c.AgeBand = AgeBandTeens20s
	case containsAny(question, thirtiesKeywords):
		c.AgeBand = AgeBand30s
	case containsAny(question, fortiesKeywords):
		c.AgeBand = AgeBand40s
	}

	switch {
	case containsAny(question, femaleKeywords):
		c.Gender = GenderFemale
	case containsAny(question, maleKeywords):
		c.Gender = GenderMale
	}

	return c
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
