// Package fs provides file-based storage for scrape runs. Each day's run
// is written to its own directory: the query details, one JSON line per
// scraped trial, and one JSON line per recorded error.
package fs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vladiconcure/euctr"
)

// RunDetails identifies one scrape run over a date range.
type RunDetails struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	RunDate   string `json:"run_date"`
	RunID     string `json:"run_id,omitempty"`
}

// RunWriter writes scrape runs under a base directory, one subdirectory
// per run start date.
type RunWriter struct {
	baseDir string
}

// NewRunWriter creates a new RunWriter that writes to the given base
// directory.
func NewRunWriter(baseDir string) *RunWriter {
	return &RunWriter{baseDir: baseDir}
}

// RunDir returns the directory a run with the given details is written
// to.
func (w *RunWriter) RunDir(details RunDetails) string {
	return filepath.Join(w.baseDir, details.StartDate)
}

// WriteRun writes one run's query details, trials, and errors. An
// existing run directory for the same date is overwritten.
func (w *RunWriter) WriteRun(details RunDetails, trials []*euctr.Trial, errs []error) error {
	dir := w.RunDir(details)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "query_details.json"), raw, 0644); err != nil {
		return err
	}

	if err := writeLines(filepath.Join(dir, "successes.jsonl"), len(trials), func(i int) (any, bool) {
		return trials[i], trials[i] != nil
	}); err != nil {
		return err
	}

	return writeLines(filepath.Join(dir, "errors.jsonl"), len(errs), func(i int) (any, bool) {
		if errs[i] == nil {
			return nil, false
		}
		return errs[i].Error(), true
	})
}

// writeLines writes one JSON value per line. Values reported as absent
// are skipped.
func writeLines(path string, n int, value func(i int) (any, bool)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for i := 0; i < n; i++ {
		v, ok := value(i)
		if !ok {
			continue
		}
		if err := enc.Encode(v); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
