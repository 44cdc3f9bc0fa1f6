// Package auditlog persists every intent classification decision to an
// append-only CSV file for offline review.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/toondesk/toondesk/internal/timeutil"
)

// Entry is one audit record. It keeps both the model-proposed decision and
// the final routed decision so that rule-fallback overrides stay observable.
type Entry struct {
	Question        string
	ModelLabel      string
	ModelConfidence float64
	FinalLabel      string
	Source          string // model | rule-fallback
	Reasons         string
	RawPayload      string
}

var header = []string{
	"timestamp_kst", "question",
	"model_intent", "model_confidence",
	"final_intent", "source",
	"reasons", "raw",
}

// Logger appends entries to a CSV file. Appends are serialized by a single
// writer lock so concurrent requests never interleave rows. Existing rows
// are never rewritten.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New creates a Logger writing to path. The file is created lazily; the
// header row is written once when the file does not yet exist.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Append writes one entry as a single atomic CSV row.
func (l *Logger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	writeHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open audit log %s", l.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "failed to write audit log header")
		}
	}
	row := []string{
		timeutil.NowString(),
		e.Question,
		e.ModelLabel,
		fmt.Sprintf("%.3f", e.ModelConfidence),
		e.FinalLabel,
		e.Source,
		e.Reasons,
		e.RawPayload,
	}
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, "failed to write audit log row")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush audit log")
}
