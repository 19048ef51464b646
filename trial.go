package euctr

import (
	"context"
	"strings"
)

// NoStatusAvailable is the sentinel status for a protocol reference whose
// card carries no status marker.
const NoStatusAvailable = "No Status Available"

// TrialCard holds the fields recovered from one trial's summary card on
// the register's search results page.
type TrialCard struct {
	EudractNumber         string                 `json:"eudract_number"`
	SponsorProtocolNumber string                 `json:"sponsor_protocol_number"`
	StartDate             string                 `json:"start_date"`
	SponsorName           string                 `json:"sponsor_name"`
	FullTitle             string                 `json:"full_title"`
	MedicalCondition      string                 `json:"medical_condition"`
	PopulationAge         string                 `json:"population_age"`
	Gender                string                 `json:"gender"`
	Disease               *DiseaseClassification `json:"disease"`
	TrialProtocols        []*ProtocolRef         `json:"trial_protocols"`
	TrialResultsLink      *string                `json:"trial_results_link"`
}

// DiseaseClassification holds the card's disease classification rows as
// five parallel " ||| "-joined column strings. All five fields are null
// when the card has no classification table, which is distinct from an
// empty table.
type DiseaseClassification struct {
	Version            *string `json:"version"`
	SOCTerm            *string `json:"soc_term"`
	ClassificationCode *string `json:"classification_code"`
	Term               *string `json:"term"`
	Level              *string `json:"level"`
}

// ProtocolRef is one country/site protocol link on a trial card.
// ProtocolURL is always absolute.
type ProtocolRef struct {
	ProtocolName   string `json:"protocol_name"`
	ProtocolURL    string `json:"protocol_url"`
	ProtocolStatus string `json:"protocol_status"`
}

// Trial aggregates everything extracted for a single trial: the summary
// card, one document per protocol link, and the results document when the
// card links to one.
type Trial struct {
	Card      *TrialCard          `json:"card"`
	Protocols []*ProtocolDocument `json:"protocols"`
	Results   *ResultsDocument    `json:"results,omitempty"`
}

// Validate returns an error if the trial contains invalid fields.
func (t *Trial) Validate() error {
	if t.Card == nil {
		return Errorf(EINVALID, "trial card required")
	}
	if t.Card.EudractNumber == "" {
		return Errorf(EINVALID, "trial EudraCT number required")
	}
	return nil
}

// FullTitle returns the trial's full title. Card titles are truncated with
// a trailing "..." on the search page; when a protocol document carries the
// untruncated title, that one is returned instead.
func (t *Trial) FullTitle() string {
	title := ""
	if t.Card != nil {
		title = t.Card.FullTitle
	}
	if !strings.HasSuffix(title, "...") {
		return title
	}
	for _, p := range t.Protocols {
		if full := p.SummaryTitle(); full != "" {
			return full
		}
	}
	return title
}

// StoredTrial is a summary row describing a persisted trial.
type StoredTrial struct {
	EudractNumber string `json:"eudract_number"`
	StartDate     string `json:"start_date"`
	SponsorName   string `json:"sponsor_name"`
	FullTitle     string `json:"full_title"`
	Protocols     int    `json:"protocols"`
	Results       int    `json:"results"`
}

// TrialFilter represents a filter for FindTrials.
type TrialFilter struct {
	EudractNumber *string `json:"eudract_number"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// TrialService represents a service for persisting and querying extracted
// trials.
type TrialService interface {
	// SaveTrial stores a trial's card, protocols, and result versions.
	// Saving the same EudraCT number again replaces the stored record.
	SaveTrial(ctx context.Context, trial *Trial) error

	// FindTrials retrieves stored trial summaries matching the filter.
	FindTrials(ctx context.Context, filter TrialFilter) ([]*StoredTrial, error)
}
