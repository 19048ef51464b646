package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/vladiconcure/euctr"
)

// Compile-time interface verification.
var _ euctr.TrialService = (*TrialService)(nil)

// TrialService implements euctr.TrialService using SQLite. All trials
// saved through one instance share its run identifier.
type TrialService struct {
	db    *DB
	runID string
}

// NewTrialService creates a new TrialService with a fresh run identifier.
func NewTrialService(db *DB) *TrialService {
	return &TrialService{db: db, runID: uuid.New().String()}
}

// RunID returns the run identifier stamped on every card this service
// saves.
func (s *TrialService) RunID() string {
	return s.runID
}

// hashContent computes xxHash of content and returns hex string.
func hashContent(content string) string {
	h := xxhash.Sum64String(content)
	b := make([]byte, 8)
	b[0] = byte(h >> 56)
	b[1] = byte(h >> 48)
	b[2] = byte(h >> 40)
	b[3] = byte(h >> 32)
	b[4] = byte(h >> 24)
	b[5] = byte(h >> 16)
	b[6] = byte(h >> 8)
	b[7] = byte(h)
	return hex.EncodeToString(b)
}

// protocolID derives a stable identifier from the protocol URL's last two
// path segments, the EudraCT number and the country code.
func protocolID(protocolURL string) string {
	u, err := url.Parse(protocolURL)
	if err != nil {
		return protocolURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return protocolURL
	}
	return strings.Join(segments[len(segments)-2:], "-")
}

// SaveTrial stores the trial's card, protocols, and result versions in
// one transaction. Saving the same EudraCT number again replaces all of
// the trial's rows.
func (s *TrialService) SaveTrial(ctx context.Context, trial *euctr.Trial) error {
	if err := trial.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	card := trial.Card
	eudract := card.EudractNumber

	// Replace semantics: child rows of a previous run must not survive.
	if _, err := tx.ExecContext(ctx, `DELETE FROM trial_protocols WHERE eudract_number = ?`, eudract); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trial_results WHERE eudract_number = ?`, eudract); err != nil {
		return err
	}

	disease := card.Disease
	if disease == nil {
		disease = &euctr.DiseaseClassification{}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO trial_cards (
			eudract_number, sponsor_protocol_number, start_date, sponsor_name,
			full_title, medical_condition, population_age, gender,
			disease_version, disease_soc_term, disease_classification_code,
			disease_term, disease_level, trial_results_link, run_id, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, eudract, card.SponsorProtocolNumber, card.StartDate, card.SponsorName,
		trial.FullTitle(), card.MedicalCondition, card.PopulationAge, card.Gender,
		disease.Version, disease.SOCTerm, disease.ClassificationCode,
		disease.Term, disease.Level, card.TrialResultsLink, s.runID,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	documents := make(map[string]*euctr.ProtocolDocument, len(trial.Protocols))
	for _, p := range trial.Protocols {
		documents[p.URL] = p
	}

	for _, ref := range trial.Card.TrialProtocols {
		if ref.ProtocolURL == "" {
			continue
		}
		var doc string
		if p, ok := documents[ref.ProtocolURL]; ok {
			raw, err := json.Marshal(p)
			if err != nil {
				return euctr.Errorf(euctr.EINTERNAL, "marshal protocol %s: %v", ref.ProtocolURL, err)
			}
			doc = string(raw)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trial_protocols (protocol_id, eudract_number, protocol_name, protocol_url, protocol_status, document, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, protocolID(ref.ProtocolURL), eudract, ref.ProtocolName, ref.ProtocolURL, ref.ProtocolStatus, doc, hashContent(doc))
		if err != nil {
			return err
		}
	}

	if trial.Results != nil {
		for _, label := range trial.Results.Versions() {
			v, _ := trial.Results.Version(label)
			raw, err := json.Marshal(v)
			if err != nil {
				return euctr.Errorf(euctr.EINTERNAL, "marshal results version %q: %v", label, err)
			}
			versionURL := ""
			var globalEnd *string
			if v.Summary != nil {
				versionURL = v.Summary.URL
				globalEnd = v.Summary.GlobalEndDate
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO trial_results (eudract_number, version, url, global_end_date, document, html_hash)
				VALUES (?, ?, ?, ?, ?, ?)
			`, eudract, label, versionURL, globalEnd, string(raw), hashContent(v.HTML))
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// FindTrials retrieves stored trial summaries matching the filter,
// ordered by EudraCT number.
func (s *TrialService) FindTrials(ctx context.Context, filter euctr.TrialFilter) ([]*euctr.StoredTrial, error) {
	var query strings.Builder
	query.WriteString(`
		SELECT c.eudract_number, c.start_date, c.sponsor_name, c.full_title,
			(SELECT COUNT(*) FROM trial_protocols p WHERE p.eudract_number = c.eudract_number),
			(SELECT COUNT(*) FROM trial_results r WHERE r.eudract_number = c.eudract_number)
		FROM trial_cards c
	`)

	var args []any
	if filter.EudractNumber != nil {
		query.WriteString(" WHERE c.eudract_number = ?")
		args = append(args, *filter.EudractNumber)
	}
	query.WriteString(" ORDER BY c.eudract_number")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []*euctr.StoredTrial
	for rows.Next() {
		var t euctr.StoredTrial
		if err := rows.Scan(&t.EudractNumber, &t.StartDate, &t.SponsorName, &t.FullTitle, &t.Protocols, &t.Results); err != nil {
			return nil, err
		}
		trials = append(trials, &t)
	}
	return trials, rows.Err()
}

// FindTrialByEudract retrieves one stored trial summary.
func (s *TrialService) FindTrialByEudract(ctx context.Context, eudract string) (*euctr.StoredTrial, error) {
	trials, err := s.FindTrials(ctx, euctr.TrialFilter{EudractNumber: &eudract})
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, euctr.Errorf(euctr.ENOTFOUND, "trial not found")
	}
	return trials[0], nil
}

// scanTable reads a whole query result as string cells, with NULLs as
// empty strings, prefixed by the header row.
func (s *TrialService) scanTable(ctx context.Context, header []string, query string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][]string{header}
	for rows.Next() {
		cells := make([]sql.NullString, len(header))
		targets := make([]any, len(header))
		for i := range cells {
			targets[i] = &cells[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		row := make([]string, len(header))
		for i, c := range cells {
			row[i] = c.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ExportCards returns every stored card as rows of strings, header first.
func (s *TrialService) ExportCards(ctx context.Context) ([][]string, error) {
	return s.scanTable(ctx, []string{
		"eudract_number", "sponsor_protocol_number", "start_date", "sponsor_name",
		"full_title", "medical_condition", "population_age", "gender",
		"disease_version", "disease_soc_term", "disease_classification_code",
		"disease_term", "disease_level", "trial_results_link", "run_id", "fetched_at",
	}, `
		SELECT eudract_number, sponsor_protocol_number, start_date, sponsor_name,
			full_title, medical_condition, population_age, gender,
			disease_version, disease_soc_term, disease_classification_code,
			disease_term, disease_level, trial_results_link, run_id, fetched_at
		FROM trial_cards ORDER BY eudract_number
	`)
}

// ExportProtocols returns every stored protocol row, header first.
func (s *TrialService) ExportProtocols(ctx context.Context) ([][]string, error) {
	return s.scanTable(ctx, []string{
		"protocol_id", "eudract_number", "protocol_name", "protocol_url",
		"protocol_status", "document", "content_hash",
	}, `
		SELECT protocol_id, eudract_number, protocol_name, protocol_url,
			protocol_status, document, content_hash
		FROM trial_protocols ORDER BY protocol_id
	`)
}

// ExportResults returns every stored result version, header first.
func (s *TrialService) ExportResults(ctx context.Context) ([][]string, error) {
	return s.scanTable(ctx, []string{
		"eudract_number", "version", "url", "global_end_date", "document", "html_hash",
	}, `
		SELECT eudract_number, version, url, global_end_date, document, html_hash
		FROM trial_results ORDER BY eudract_number, version
	`)
}
