package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/toondesk/toondesk/ai/criteria"
)

// Fixed answers for empty ranking outcomes.
const (
	NoMatchMessage = "❗ 조건에 맞는 웹툰을 찾지 못했습니다."
	NoDataMessage  = "❗ 조건에 맞는 웹툰이 없습니다."
)

// CriteriaExtractor is the extraction capability the ranking handlers
// consume.
type CriteriaExtractor interface {
	Extract(ctx context.Context, question string) criteria.Criteria
}

// Ranker answers recommendation and status questions by filtering the
// catalog with extracted criteria and ranking the survivors.
type Ranker struct {
	table     *Table
	extractor CriteriaExtractor
}

// NewRanker creates a Ranker over the dataset.
func NewRanker(table *Table, extractor CriteriaExtractor) *Ranker {
	return &Ranker{table: table, extractor: extractor}
}

// Recommend ranks matching rows by the composite score
// 평점 + 구독자수/1000 and formats the top-k results.
func (r *Ranker) Recommend(ctx context.Context, question string) string {
	k := TopK(question)
	cond := r.extractor.Extract(ctx, question)
	filtered := r.table.FilterByCriteria(cond)

	slog.Debug("recommendation query",
		"top_k", k,
		"category", cond.Category,
		"age_band", cond.AgeBand,
		"gender", cond.Gender,
		"matched_rows", len(filtered),
	)

	if len(filtered) == 0 {
		return NoMatchMessage
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return compositeScore(filtered[i]) > compositeScore(filtered[j])
	})
	if len(filtered) > k {
		filtered = filtered[:k]
	}

	lines := make([]string, 0, len(filtered))
	for _, row := range filtered {
		lines = append(lines, fmt.Sprintf("- %s (평점: %s, 구독자수: %d, 키워드: %s)",
			row.GetOr(ColTitle, "N/A"),
			row.GetOr(ColRating, "N/A"),
			int(row.Float(ColSubscribers)),
			row.Get(ColKeywords),
		))
	}
	return strings.Join(lines, "\n")
}

// compositeScore is the recommendation ranking metric: rating weighted 1.0
// plus subscriber count normalized by 1000. Missing values count as 0.
func compositeScore(row Row) float64 {
	return row.Float(ColRating)*1.0 + row.Float(ColSubscribers)/1000.0
}

// Status ranks matching rows by the metric column named in the question
// (구독자수 or 평점), falling back to a multi-column sort over whichever of
// the two the dataset carries.
func (r *Ranker) Status(ctx context.Context, question string) string {
	k := TopK(question)
	cond := r.extractor.Extract(ctx, question)
	filtered := r.table.FilterByCriteria(cond)
	if len(filtered) == 0 {
		return NoMatchMessage
	}

	var sortCols []string
	switch {
	case strings.Contains(question, ColSubscribers) && r.table.HasColumn(ColSubscribers):
		sortCols = []string{ColSubscribers}
	case strings.Contains(question, ColRating) && r.table.HasColumn(ColRating):
		sortCols = []string{ColRating}
	default:
		for _, col := range []string{ColRating, ColSubscribers} {
			if r.table.HasColumn(col) {
				sortCols = append(sortCols, col)
			}
		}
	}
	if len(sortCols) == 0 {
		return NoDataMessage
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		for _, col := range sortCols {
			a, b := filtered[i].Float(col), filtered[j].Float(col)
			if a != b {
				return a > b
			}
		}
		return false
	})
	if len(filtered) > k {
		filtered = filtered[:k]
	}

	lines := make([]string, 0, len(filtered))
	for _, row := range filtered {
		lines = append(lines, fmt.Sprintf("- %s (평점: %s, 구독자수: %d, 카테고리: %s)",
			row.GetOr(ColTitle, "N/A"),
			row.GetOr(ColRating, "N/A"),
			int(row.Float(ColSubscribers)),
			row.Get(ColCategory),
		))
	}
	return strings.Join(lines, "\n")
}
