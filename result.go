package euctr

import (
	"bytes"
	"context"
	"encoding/json"
)

// ResultsDocument accumulates one entry per published results version,
// keyed by version label in discovery order. The set of keys is exactly
// the set of versions reachable via "other versions" links from the entry
// page, each visited at most once.
type ResultsDocument struct {
	labels   []string
	versions map[string]*ResultVersion
}

// NewResultsDocument returns an empty ResultsDocument.
func NewResultsDocument() *ResultsDocument {
	return &ResultsDocument{versions: make(map[string]*ResultVersion)}
}

// Add stores a version entry under label, preserving first-insertion order.
func (d *ResultsDocument) Add(label string, v *ResultVersion) {
	if _, ok := d.versions[label]; !ok {
		d.labels = append(d.labels, label)
	}
	d.versions[label] = v
}

// Has reports whether a version entry exists for label.
func (d *ResultsDocument) Has(label string) bool {
	_, ok := d.versions[label]
	return ok
}

// Version returns the entry stored under label.
func (d *ResultsDocument) Version(label string) (*ResultVersion, bool) {
	v, ok := d.versions[label]
	return v, ok
}

// Versions returns the version labels in insertion order.
func (d *ResultsDocument) Versions() []string {
	out := make([]string, len(d.labels))
	copy(out, d.labels)
	return out
}

// Len returns the number of version entries.
func (d *ResultsDocument) Len() int {
	if d == nil {
		return 0
	}
	return len(d.labels)
}

// Merge adds other's entries that are not yet present. Existing labels
// keep their current entries.
func (d *ResultsDocument) Merge(other *ResultsDocument) {
	if other == nil {
		return
	}
	for _, label := range other.labels {
		if !d.Has(label) {
			d.Add(label, other.versions[label])
		}
	}
}

// MarshalJSON implements json.Marshaler, emitting versions in insertion
// order.
func (d *ResultsDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range d.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(d.versions[label])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ResultVersion is the extracted record for a single results version.
type ResultVersion struct {
	Summary            *ResultSummary `json:"summary"`
	ResultsInformation *Fields        `json:"results_information"`
	AdditionalInfo     *Fields        `json:"additional_info"`
	PDF                *PDFContent    `json:"pdf,omitempty"`

	// HTML is the serialized markup of this version's page, captured for
	// archival independently of the structured fields above.
	HTML string `json:"html"`
}

// ResultSummary holds the version's identifying fields.
type ResultSummary struct {
	URL           string   `json:"url"`
	EudractNumber *string  `json:"eudract_number"`
	TrialProtocol []string `json:"trial_protocol"`
	GlobalEndDate *string  `json:"global_end_date"`
}

// PDFContent holds the downloadable results PDF alongside its extracted
// text and tables. Text and Tables are empty when collection is disabled.
type PDFContent struct {
	URL    string       `json:"url"`
	Text   string       `json:"text"`
	Tables [][][]string `json:"tables"`
}

// PDFCollector retrieves a results PDF archive and extracts its text and
// tabular content.
type PDFCollector interface {
	Collect(ctx context.Context, url string) (*PDFContent, error)
}
