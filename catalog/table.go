// Package catalog provides the read-only webtoon dataset and the
// recommendation/status ranking handlers over it.
package catalog

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Well-known dataset columns. Age-band affinity columns are named after the
// criteria.AgeBand values themselves.
const (
	ColTitle          = "제목"
	ColCategory       = "카테고리"
	ColRating         = "평점"
	ColSubscribers    = "구독자수"
	ColViews          = "조회수"
	ColKeywords       = "키워드"
	ColSynopsis       = "줄거리"
	ColGenderAffinity = "성별선호도"
)

// Row is one catalog record, keyed by column name. Missing columns read as
// empty strings.
type Row map[string]string

// Get returns the raw cell value, empty when absent.
func (r Row) Get(col string) string {
	return r[col]
}

// GetOr returns the cell value or def when absent or blank.
func (r Row) GetOr(col, def string) string {
	if v := strings.TrimSpace(r[col]); v != "" {
		return v
	}
	return def
}

// Float returns the cell as a float64, 0 when missing or non-numeric.
func (r Row) Float(col string) float64 {
	v := strings.TrimSpace(r[col])
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}

// Table is an immutable, read-only view of the catalog dataset.
type Table struct {
	columns map[string]bool
	order   []string
	rows    []Row
}

// NewTable builds a Table from a column list and rows.
func NewTable(columns []string, rows []Row) *Table {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return &Table{columns: set, order: columns, rows: rows}
}

// LoadCSV reads the catalog from a headered CSV file. Datasets exported with
// a 조회수 column but no 구독자수 column get the former renamed to the latter.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open catalog %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalog %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Errorf("catalog %s has no header row", path)
	}

	columns := make([]string, len(records[0]))
	for i, c := range records[0] {
		columns[i] = strings.TrimSpace(c)
	}
	columns = renameViewsColumn(columns)

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return NewTable(columns, rows), nil
}

func renameViewsColumn(columns []string) []string {
	hasSubscribers := false
	for _, c := range columns {
		if c == ColSubscribers {
			hasSubscribers = true
		}
	}
	if hasSubscribers {
		return columns
	}
	for i, c := range columns {
		if c == ColViews {
			columns[i] = ColSubscribers
		}
	}
	return columns
}

// Columns returns the column names in dataset order.
func (t *Table) Columns() []string {
	return t.order
}

// HasColumn reports whether the dataset carries the named column.
func (t *Table) HasColumn(name string) bool {
	return t.columns[name]
}

// Rows returns the backing rows. Callers must treat them as read-only.
func (t *Table) Rows() []Row {
	return t.rows
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.rows)
}
