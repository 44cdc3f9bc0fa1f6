package catalog

import (
	"regexp"
	"strconv"
)

// Result-count bounds for ranking answers.
const (
	DefaultTopK = 5
	MaxTopK     = 5
)

// topKRegex picks up count phrasings like "상위 3개", "top 2", "5편".
var topKRegex = regexp.MustCompile(`(?i)(?:상위|top\s*)?(\d+)\s*(?:개|편|명|위)?`)

// TopK extracts the requested result count from the question, clamped to
// [1, MaxTopK]. DefaultTopK when the question names no count.
func TopK(question string) int {
	m := topKRegex.FindStringSubmatch(question)
	if m == nil {
		return DefaultTopK
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultTopK
	}
	if n < 1 {
		n = 1
	}
	if n > MaxTopK {
		n = MaxTopK
	}
	return n
}
