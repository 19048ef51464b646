package euctr_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladiconcure/euctr"
)

func TestTrial_Validate(t *testing.T) {
	t.Parallel()

	t.Run("requires card", func(t *testing.T) {
		t.Parallel()

		err := (&euctr.Trial{}).Validate()
		assert.Equal(t, euctr.EINVALID, euctr.ErrorCode(err))
	})

	t.Run("requires EudraCT number", func(t *testing.T) {
		t.Parallel()

		err := (&euctr.Trial{Card: &euctr.TrialCard{}}).Validate()
		assert.Equal(t, euctr.EINVALID, euctr.ErrorCode(err))
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		trial := &euctr.Trial{Card: &euctr.TrialCard{EudractNumber: "2010-001"}}
		assert.NoError(t, trial.Validate())
	})
}

func TestTrial_FullTitle(t *testing.T) {
	t.Parallel()

	t.Run("keeps untruncated card title", func(t *testing.T) {
		t.Parallel()

		trial := &euctr.Trial{Card: &euctr.TrialCard{FullTitle: "A complete title"}}
		assert.Equal(t, "A complete title", trial.FullTitle())
	})

	t.Run("repairs truncated title from protocol document", func(t *testing.T) {
		t.Parallel()

		section := euctr.NewFields()
		section.Set("Full title of the trial", euctr.Strings([]string{"A complete title recovered from the protocol"}))
		sections := euctr.NewFields()
		sections.Set("A. Protocol Information", euctr.Map(section))

		trial := &euctr.Trial{
			Card:      &euctr.TrialCard{FullTitle: "A complete ti..."},
			Protocols: []*euctr.ProtocolDocument{{Sections: sections}},
		}
		assert.Equal(t, "A complete title recovered from the protocol", trial.FullTitle())
	})

	t.Run("keeps truncated title when no protocol has it", func(t *testing.T) {
		t.Parallel()

		trial := &euctr.Trial{Card: &euctr.TrialCard{FullTitle: "A complete ti..."}}
		assert.Equal(t, "A complete ti...", trial.FullTitle())
	})
}

func TestTrialCard_MarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("disease-free card serializes five nulls", func(t *testing.T) {
		t.Parallel()

		card := &euctr.TrialCard{
			EudractNumber: "2010-001",
			Disease:       &euctr.DiseaseClassification{},
		}

		b, err := json.Marshal(card)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(b, &got))

		disease, ok := got["disease"].(map[string]any)
		require.True(t, ok)
		for _, key := range []string{"version", "soc_term", "classification_code", "term", "level"} {
			assert.Nil(t, disease[key], key)
		}
	})

	t.Run("missing results link serializes null", func(t *testing.T) {
		t.Parallel()

		b, err := json.Marshal(&euctr.TrialCard{EudractNumber: "2010-001"})
		require.NoError(t, err)
		assert.Contains(t, string(b), `"trial_results_link":null`)
	})
}

func TestProtocolDocument_MarshalJSON(t *testing.T) {
	t.Parallel()

	summary := euctr.NewFields()
	summary.Set("EudraCT Number", euctr.String("2010-001"))

	section := euctr.NewFields()
	section.Set("Member State Concerned", euctr.String("Austria - BASG"))
	sections := euctr.NewFields()
	sections.Set("A. Protocol Information", euctr.Map(section))
	sections.Set("B. Sponsor Information", euctr.Null())

	doc := &euctr.ProtocolDocument{
		URL:      "https://www.clinicaltrialsregister.eu/ctr-search/trial/2010-001/AT",
		Summary:  summary,
		Sections: sections,
	}

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"url": "https://www.clinicaltrialsregister.eu/ctr-search/trial/2010-001/AT",
		"summary": {"EudraCT Number": "2010-001"},
		"A. Protocol Information": {"Member State Concerned": "Austria - BASG"},
		"B. Sponsor Information": null
	}`, string(b))
}
