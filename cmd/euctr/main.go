package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/vladiconcure/euctr/fs"
	euhttp "github.com/vladiconcure/euctr/http"
	"github.com/vladiconcure/euctr/pdf"
	"github.com/vladiconcure/euctr/scrape"
	euslog "github.com/vladiconcure/euctr/slog"
	"github.com/vladiconcure/euctr/sqlite"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by the trial service.
	DB *sqlite.DB

	// Trial service for end-to-end testing.
	Trials *sqlite.TrialService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("euctr"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'euctr --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set EUCTR_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	m.Trials = sqlite.NewTrialService(m.DB)
	deps.DB = m.DB
	deps.Trials = m.Trials
	deps.Exports = m.Trials
	deps.RunID = m.Trials.RunID()

	if cmd == "scrape" {
		logger := slog.New(slog.NewTextHandler(stderr, nil))

		fetcher := euslog.NewLoggingFetcher(
			scrape.NewRateLimitedFetcher(euhttp.NewFetcher(), cli.Scrape.Interval),
			logger,
		)
		defer fetcher.Close()

		scraper := &scrape.Scraper{
			Fetcher:     fetcher,
			BaseURL:     cli.Scrape.BaseURL,
			Concurrency: cli.Scrape.Concurrency,
		}
		if !cli.Scrape.SkipPDF {
			scraper.PDFs = pdf.NewCollector()
		}
		deps.Scraper = scraper
		deps.Runs = fs.NewRunWriter(cli.Scrape.DataDir)
	}

	return kongCtx.Run(deps)
}

func defaultDBPath() string {
	if path := os.Getenv("EUCTR_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "euctr.db"
	}
	dir := filepath.Join(home, ".euctr")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "euctr.db")
}
