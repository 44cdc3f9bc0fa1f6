package intent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/toondesk/toondesk/ai/core/llm"
	"github.com/toondesk/toondesk/ai/metrics"
	"github.com/toondesk/toondesk/ai/structured"
	"github.com/toondesk/toondesk/auditlog"
)

// DefaultConfidenceThreshold gates model decisions: below it the keyword
// rules override the model label.
const DefaultConfidenceThreshold = 0.5

const classifySystemPrompt = `너는 사용자 질문의 의도를 다음 중 하나로 정확히 분류한다.
규칙:
- "법률": 2차 창작(드라마/영화/게임/애니 등) 관련 저작권/계약/법령/법적 이슈 문의
- "정보": 작품 자체 정보(제목/줄거리/작가/등장인물/설정 등)
- "추천": 2차 창작 목적의 '적합한 웹툰 추천' 요청 (2차 창작 언급 없으면 추천 아님)
- "현황": 조회수/구독자수/평점/순위/연령·성별 선호도 등 통계·랭킹 요청

JSON으로만 출력한다. 필드: intent(위 라벨 중 하나), confidence(0~1 소수), reasons(간단한 근거).`

// Classifier produces an intent decision for every question. It is total:
// model failures degrade to the rule fallback, never to an error.
type Classifier struct {
	llm       llm.Service
	audit     *auditlog.Logger
	exporter  *metrics.Exporter
	threshold float64
}

// NewClassifier creates a Classifier. audit and exporter may be nil.
func NewClassifier(llmService llm.Service, audit *auditlog.Logger, exporter *metrics.Exporter) *Classifier {
	return &Classifier{
		llm:       llmService,
		audit:     audit,
		exporter:  exporter,
		threshold: DefaultConfidenceThreshold,
	}
}

// WithThreshold overrides the confidence gate.
func (c *Classifier) WithThreshold(threshold float64) *Classifier {
	c.threshold = threshold
	return c
}

// Classify returns the routing decision for a question. The model is asked
// exactly once; malformed or missing output is absorbed by the recovery
// chain and, failing that, degraded to confidence 0 with LabelInfo as the
// provisional label, which the keyword rules then get to override.
func (c *Classifier) Classify(ctx context.Context, question string) Decision {
	raw, res := c.invokeModel(ctx, question)

	if res == nil {
		c.exporter.RecordRecoveryMiss()
		res = &modelResult{Intent: string(LabelInfo), Confidence: 0.0}
	}

	confidence := clamp01(res.Confidence)
	modelLabel, ok := ParseLabel(res.Intent)
	if !ok {
		modelLabel = LabelInfo
		confidence = 0.0
	}

	final := modelLabel
	source := SourceModel
	if confidence < c.threshold {
		final = FallbackLabel(question, modelLabel)
		source = SourceRuleFallback
		slog.Debug("intent overridden by rule fallback",
			"model_label", modelLabel,
			"confidence", confidence,
			"final_label", final,
		)
	}

	c.logDecision(question, res, final, source, raw)
	c.exporter.RecordClassification(string(final), source)

	return Decision{
		Label:      final,
		Confidence: confidence,
		Reasons:    res.Reasons,
		Source:     source,
	}
}

// invokeModel performs the single classification call and repairs its
// output. A nil result means nothing usable came back.
func (c *Classifier) invokeModel(ctx context.Context, question string) (string, *modelResult) {
	messages := []llm.Message{
		llm.SystemPrompt(classifySystemPrompt),
		llm.UserMessage(fmt.Sprintf("질문: %s\n하나의 라벨을 고르고, 신뢰도와 간단한 근거를 함께 내.", question)),
	}
	raw, _, err := c.llm.Chat(ctx, messages)
	if err != nil {
		slog.Warn("intent classification call failed, falling back to rules", "error", err)
		return "", nil
	}
	res, ok := structured.Recover[modelResult](raw, resultSchema)
	if !ok {
		slog.Warn("intent payload unrecoverable, falling back to rules", "raw_length", len(raw))
		return raw, nil
	}
	return raw, res
}

func (c *Classifier) logDecision(question string, res *modelResult, final Label, source, raw string) {
	if c.audit == nil {
		return
	}
	if raw == "" {
		raw = fmt.Sprintf(`{"intent":"%s", "confidence":%g, "reasons":"%s"}`, res.Intent, res.Confidence, res.Reasons)
	}
	err := c.audit.Append(auditlog.Entry{
		Question:        question,
		ModelLabel:      res.Intent,
		ModelConfidence: res.Confidence,
		FinalLabel:      string(final),
		Source:          source,
		Reasons:         res.Reasons,
		RawPayload:      raw,
	})
	if err != nil {
		slog.Warn("failed to append intent audit log", "error", err)
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
