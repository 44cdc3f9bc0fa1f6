package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasons    string  `json:"reasons"`
}

func classificationSchema() Schema {
	lo, hi := FloatRange(0, 1)
	return Schema{Fields: []Field{
		{
			Name:     "intent",
			Kind:     KindLabel,
			Literals: []string{"법률", "정보", "현황", "추천"},
			Aliases: map[string]string{
				"legal":     "법률",
				"info":      "정보",
				"status":    "현황",
				"recommend": "추천",
			},
		},
		{Name: "confidence", Kind: KindFloat, Min: lo, Max: hi},
		{Name: "reasons", Kind: KindString, Optional: true},
	}}
}

func TestRecoverWellFormed(t *testing.T) {
	raw := `{"intent": "추천", "confidence": 0.92, "reasons": "추천 요청"}`
	out, ok := Recover[classification](raw, classificationSchema())
	require.True(t, ok)
	assert.Equal(t, "추천", out.Intent)
	assert.InDelta(t, 0.92, out.Confidence, 1e-9)
	assert.Equal(t, "추천 요청", out.Reasons)
}

func TestRecoverMalformedVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced block",
			raw:  "```json\n{\"intent\": \"법률\", \"confidence\": 0.8}\n```",
			want: "법률",
		},
		{
			name: "fence without language tag",
			raw:  "```\n{\"intent\": \"현황\", \"confidence\": 0.7}\n```",
			want: "현황",
		},
		{
			name: "single quotes",
			raw:  `{'intent': '정보', 'confidence': 0.6}`,
			want: "정보",
		},
		{
			name: "doubled quote keys",
			raw:  `{""intent"": "추천", ""confidence"": 0.9}`,
			want: "추천",
		},
		{
			name: "leading prose before object",
			raw:  `Here is the result: {"intent": "법률", "confidence": 0.85, "reasons": "저작권 질문"}`,
			want: "법률",
		},
		{
			name: "truncated tail",
			raw:  `{"intent": "현황", "confidence": 0.77, "reas`,
			want: "현황",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := Recover[classification](tc.raw, classificationSchema())
			require.True(t, ok, "raw: %s", tc.raw)
			assert.Equal(t, tc.want, out.Intent)
		})
	}
}

func TestRecoverAliasOnlyInSalvage(t *testing.T) {
	// A clean parse with a non-canonical literal must fail validation and
	// fall through to salvage, where the alias table maps it back.
	raw := `{"intent": "legal", "confidence": 0.9, "reasons": "copyright"}`
	out, ok := Recover[classification](raw, classificationSchema())
	require.True(t, ok)
	assert.Equal(t, "법률", out.Intent)
}

func TestRecoverSalvageDefaultsMissingFloat(t *testing.T) {
	raw := `so the answer is {"intent": "정보", "confidence": unknown}`
	out, ok := Recover[classification](raw, classificationSchema())
	require.True(t, ok)
	assert.Equal(t, "정보", out.Intent)
	assert.Equal(t, 0.0, out.Confidence)
}

func TestRecoverRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"plain prose", "I could not decide on an intent."},
		{"unknown label", `{"intent": "기타", "confidence": 0.9}`},
		{"confidence above range", `{"intent": "정보", "confidence": 1.5}`},
		{"confidence below range", `{"intent": "정보", "confidence": -0.1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Recover[classification](tc.raw, classificationSchema())
			assert.False(t, ok)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, "plain", stripCodeFences("  plain  "))
}
