package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/vladiconcure/euctr"
)

// Run executes the export command, writing one stored table as CSV.
func (c *ExportCmd) Run(deps *Dependencies) error {
	var rows [][]string
	var err error
	switch c.Table {
	case "cards":
		rows, err = deps.Exports.ExportCards(deps.Ctx)
	case "protocols":
		rows, err = deps.Exports.ExportProtocols(deps.Ctx)
	case "results":
		rows, err = deps.Exports.ExportResults(deps.Ctx)
	default:
		err = euctr.Errorf(euctr.EINVALID, "unknown table %q", c.Table)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", euctr.ErrorMessage(err))
		return err
	}

	var out io.Writer = deps.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		return err
	}

	if c.Output != "" {
		fmt.Fprintf(deps.Stderr, "Wrote %d row(s) to %s\n", len(rows)-1, c.Output)
	}
	return nil
}
