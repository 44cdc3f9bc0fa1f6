// Package intent classifies user questions into the four routing intents
// of the catalog Q&A service.
package intent

import (
	"strings"

	"github.com/toondesk/toondesk/ai/structured"
)

// Label is the coarse category of a user question. The canonical values are
// the Korean labels the model is prompted with.
type Label string

const (
	// LabelLegal covers copyright/contract/licensing questions about
	// secondary adaptations.
	LabelLegal Label = "법률"
	// LabelInfo covers questions about the works themselves.
	LabelInfo Label = "정보"
	// LabelStatus covers statistics and ranking questions.
	LabelStatus Label = "현황"
	// LabelRecommend covers adaptation-oriented recommendation requests.
	LabelRecommend Label = "추천"
)

// Labels lists every valid label.
var Labels = []Label{LabelLegal, LabelInfo, LabelStatus, LabelRecommend}

// Decision is the immutable result of classifying one question.
type Decision struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Reasons    string  `json:"reasons"`
	// Source is "model" when the model label was kept,
	// "rule-fallback" when the keyword rules overrode it.
	Source string `json:"source"`
}

// Decision sources.
const (
	SourceModel        = "model"
	SourceRuleFallback = "rule-fallback"
)

// modelResult is the record the classification prompt asks the model for.
type modelResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasons    string  `json:"reasons"`
}

// labelAliases maps lower-cased label variants to canonical labels,
// used by the salvage stage of the recovery chain.
var labelAliases = map[string]string{
	"법률": string(LabelLegal), "legal": string(LabelLegal),
	"정보": string(LabelInfo), "info": string(LabelInfo),
	"현황": string(LabelStatus), "status": string(LabelStatus),
	"통계": string(LabelStatus), "statistics": string(LabelStatus),
	"추천": string(LabelRecommend), "recommend": string(LabelRecommend),
}

// resultSchema validates model classification output.
var resultSchema = func() structured.Schema {
	confMin, confMax := structured.FloatRange(0.0, 1.0)
	return structured.Schema{Fields: []structured.Field{
		{
			Name:     "intent",
			Kind:     structured.KindLabel,
			Literals: []string{string(LabelLegal), string(LabelInfo), string(LabelStatus), string(LabelRecommend)},
			Aliases:  labelAliases,
		},
		{Name: "confidence", Kind: structured.KindFloat, Min: confMin, Max: confMax},
		{Name: "reasons", Kind: structured.KindString},
	}}
}()

// ParseLabel normalizes a label token to its canonical form.
// ok is false for unrecognized tokens; they are never passed through.
func ParseLabel(s string) (Label, bool) {
	if canonical, found := labelAliases[strings.ToLower(strings.TrimSpace(s))]; found {
		return Label(canonical), true
	}
	return "", false
}
