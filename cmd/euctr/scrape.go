package main

import (
	"fmt"
	"time"

	"github.com/vladiconcure/euctr"
	"github.com/vladiconcure/euctr/fs"
	"github.com/vladiconcure/euctr/scrape"
)

const dateLayout = "2006-01-02"

// Run executes the scrape command: one register query per day in the
// range, each saved to the database and written as a run directory.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	start, end, err := parseDateRange(c.StartDate, c.EndDate)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", euctr.ErrorMessage(err))
		return err
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(dateLayout)
		fmt.Fprintf(deps.Stdout, "Scraping %s\n", date)

		result, err := deps.Scraper.ScrapeRange(deps.Ctx, date, date, c.progress(deps))
		if err != nil {
			// The day never started; record it and move on.
			result = &scrape.Result{Errors: []error{err}}
		}

		saved := 0
		for _, trial := range result.Trials {
			if err := deps.Trials.SaveTrial(deps.Ctx, trial); err != nil {
				result.Errors = append(result.Errors,
					euctr.Errorf(euctr.ErrorCode(err), "save trial %s: %s", trial.Card.EudractNumber, euctr.ErrorMessage(err)))
				continue
			}
			saved++
		}

		details := fs.RunDetails{
			StartDate: date,
			EndDate:   date,
			RunDate:   time.Now().Format("2006-01-02-15-04-05"),
			RunID:     deps.RunID,
		}
		if err := deps.Runs.WriteRun(details, result.Trials, result.Errors); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", euctr.ErrorMessage(err))
			return err
		}

		fmt.Fprintf(deps.Stdout, "  Saved %d trial(s), %d error(s) -> %s\n",
			saved, len(result.Errors), deps.Runs.RunDir(details))
	}

	return nil
}

// progress prints per-trial events as scraping proceeds.
func (c *ScrapeCmd) progress(deps *Dependencies) scrape.ProgressFunc {
	return func(event scrape.ProgressEvent) {
		switch event.Type {
		case scrape.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "  Found %d trial(s)\n", event.Total)
		case scrape.ProgressCompleted:
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s\n", event.Completed, event.Total, event.EudractNumber)
		case scrape.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  [%d/%d] failed: %s\n", event.Completed, event.Total, euctr.ErrorMessage(event.Error))
		}
	}
}

// parseDateRange validates the inclusive scrape range.
func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, euctr.Errorf(euctr.EINVALID, "invalid start date %q: want YYYY-MM-DD", startDate)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, euctr.Errorf(euctr.EINVALID, "invalid end date %q: want YYYY-MM-DD", endDate)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, euctr.Errorf(euctr.EINVALID, "start date cannot be after end date")
	}
	return start, end, nil
}
