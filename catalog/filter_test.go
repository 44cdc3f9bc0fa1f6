package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toondesk/toondesk/ai/criteria"
)

func affinityTable() *Table {
	columns := []string{"제목", "카테고리", "10~20대", "30대", "성별선호도"}
	rows := []Row{
		{"제목": "A", "카테고리": "로맨스", "10~20대": "상", "30대": "하", "성별선호도": "여성"},
		{"제목": "B", "카테고리": "액션/무협", "10~20대": "중", "30대": "상", "성별선호도": "남성"},
		{"제목": "C", "카테고리": "로맨스", "10~20대": "하", "30대": "중", "성별선호도": "여성"},
	}
	return NewTable(columns, rows)
}

func titles(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Get("제목"))
	}
	return out
}

func TestFilterByCriteria(t *testing.T) {
	table := affinityTable()

	tests := []struct {
		name string
		cond criteria.Criteria
		want []string
	}{
		{"unset matches all", criteria.Criteria{}, []string{"A", "B", "C"}},
		{"category substring", criteria.Criteria{Category: "무협"}, []string{"B"}},
		{"category all matches", criteria.Criteria{Category: "로맨스"}, []string{"A", "C"}},
		{"age band high or medium", criteria.Criteria{AgeBand: criteria.AgeBandTeens20s}, []string{"A", "B"}},
		{"age band thirties", criteria.Criteria{AgeBand: criteria.AgeBand30s}, []string{"B", "C"}},
		{"gender", criteria.Criteria{Gender: criteria.GenderMale}, []string{"B"}},
		{"conjunction", criteria.Criteria{Category: "로맨스", AgeBand: criteria.AgeBandTeens20s, Gender: criteria.GenderFemale}, []string{"A"}},
		{"no survivors", criteria.Criteria{Category: "공포"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, titles(table.FilterByCriteria(tc.cond)))
		})
	}
}

func TestFilterMissingColumnIsNoOp(t *testing.T) {
	// The dataset carries no 40대 column and no gender column, so those
	// criteria degrade to no-ops instead of filtering everything out.
	table := NewTable([]string{"제목", "카테고리"}, []Row{
		{"제목": "A", "카테고리": "로맨스"},
		{"제목": "B", "카테고리": "액션"},
	})

	cond := criteria.Criteria{Category: "로맨스", AgeBand: criteria.AgeBand40s, Gender: criteria.GenderFemale}
	assert.Equal(t, []string{"A"}, titles(table.FilterByCriteria(cond)))
}

func TestSafeContains(t *testing.T) {
	assert.True(t, safeContains("anything", ""))
	assert.True(t, safeContains("Romance Fantasy", "romance"))
	assert.False(t, safeContains("액션", "로맨스"))
}
