package main

import (
	"context"
	"io"
	"time"

	"github.com/vladiconcure/euctr"
	"github.com/vladiconcure/euctr/fs"
	"github.com/vladiconcure/euctr/scrape"
	"github.com/vladiconcure/euctr/sqlite"
)

// TrialExporter exports the stored tables as rows of strings, header
// row first.
type TrialExporter interface {
	ExportCards(ctx context.Context) ([][]string, error)
	ExportProtocols(ctx context.Context) ([][]string, error)
	ExportResults(ctx context.Context) ([][]string, error)
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	DB      *sqlite.DB
	Trials  euctr.TrialService
	Exports TrialExporter
	Scraper *scrape.Scraper
	Runs    *fs.RunWriter
	RunID   string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Scrape ScrapeCmd `cmd:"" help:"Scrape register trials for a date range"`
	List   ListCmd   `cmd:"" help:"List stored trials"`
	Export ExportCmd `cmd:"" help:"Export a stored table as CSV"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	StartDate   string        `arg:"" help:"Start date in YYYY-MM-DD format"`
	EndDate     string        `arg:"" help:"End date in YYYY-MM-DD format"`
	DataDir     string        `short:"d" default:"data" help:"Directory run output is written to"`
	BaseURL     string        `help:"Register base URL (defaults to the public register)"`
	Interval    time.Duration `default:"10s" help:"Spacing between register requests"`
	Concurrency int           `short:"c" default:"4" help:"Concurrent trials per search page"`
	SkipPDF     bool          `name:"skip-pdf" help:"Record result PDF links without downloading them"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Eudract string `help:"Filter by EudraCT number"`
	Limit   int    `default:"50" help:"Maximum rows to print"`
	Offset  int    `help:"Rows to skip"`
}

// ExportCmd is the "export" subcommand.
type ExportCmd struct {
	Table  string `arg:"" enum:"cards,protocols,results" help:"Table to export: cards, protocols, or results"`
	Output string `short:"o" help:"Output file path (default stdout)"`
}
