package auditlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	l := New(path)

	require.NoError(t, l.Append(Entry{
		Question:        "저작권 질문",
		ModelLabel:      "정보",
		ModelConfidence: 0.31,
		FinalLabel:      "법률",
		Source:          "rule-fallback",
		Reasons:         "불확실",
		RawPayload:      `{"intent":"정보"}`,
	}))
	require.NoError(t, l.Append(Entry{
		Question:        "추천해줘",
		ModelLabel:      "추천",
		ModelConfidence: 0.9,
		FinalLabel:      "추천",
		Source:          "model",
	}))

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])

	first := rows[1]
	assert.Equal(t, "저작권 질문", first[1])
	assert.Equal(t, "정보", first[2])
	assert.Equal(t, "0.310", first[3])
	assert.Equal(t, "법률", first[4])
	assert.Equal(t, "rule-fallback", first[5])
	assert.NotEmpty(t, first[0], "timestamp column must be populated")

	assert.Equal(t, "model", rows[2][5])
}

func TestAppendDoesNotCreateFileUntilFirstEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	New(path)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAppendConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	l := New(path)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Append(Entry{Question: "q", ModelLabel: "정보", FinalLabel: "정보", Source: "model"}))
		}()
	}
	wg.Wait()

	rows := readRows(t, path)
	assert.Len(t, rows, n+1)
	for _, row := range rows {
		assert.Len(t, row, len(header))
	}
}

func TestAppendFailsOnUnwritablePath(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "no", "such", "dir", "audit.csv"))
	assert.Error(t, l.Append(Entry{Question: "q"}))
}
