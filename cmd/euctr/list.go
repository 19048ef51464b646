package main

import (
	"fmt"

	"github.com/vladiconcure/euctr"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := euctr.TrialFilter{
		Limit:  c.Limit,
		Offset: c.Offset,
	}
	if c.Eudract != "" {
		filter.EudractNumber = &c.Eudract
	}

	trials, err := deps.Trials.FindTrials(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", euctr.ErrorMessage(err))
		return err
	}

	if len(trials) == 0 {
		fmt.Fprintln(deps.Stdout, "No trials stored. Use 'euctr scrape' to collect some.")
		return nil
	}

	for _, t := range trials {
		fmt.Fprintf(deps.Stdout, "%s  %s  protocols=%d results=%d  %s\n",
			t.EudractNumber, t.StartDate, t.Protocols, t.Results, t.SponsorName)
	}

	return nil
}
