package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/teamtemp/internal/aggregate"
	"github.com/pfrederiksen/teamtemp/internal/app"
	"github.com/pfrederiksen/teamtemp/internal/config"
	"github.com/pfrederiksen/teamtemp/internal/export"
	"github.com/pfrederiksen/teamtemp/internal/filter"
	"github.com/pfrederiksen/teamtemp/internal/logger"
	"github.com/pfrederiksen/teamtemp/internal/scraper"
	"github.com/pfrederiksen/teamtemp/internal/server"
	"github.com/pfrederiksen/teamtemp/internal/source"
)

const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitSourceErrors = 2
)

// Version is reported by the version command and GET /version. It is set at
// build time with -ldflags "-X github.com/pfrederiksen/teamtemp/internal/cli.Version=...".
var Version = "dev"

var (
	flagConfig  string
	flagVerbose bool
	flagDataDir string
	flagStore   string

	flagPort int

	flagURLs         []string
	flagScrapeTribe  string
	flagScrapeFormat string
	flagSort         string

	flagListFormat string
	flagAddTribe   string

	flagExportFormat string
	flagOutput       string

	flagOnlyTribes []string
	flagOnlyTeams  []string
	flagDates      string

	cfg *config.Config
)

// exitError carries a non-default exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teamtemp",
		Short: "Scrape TeamTemp survey history into structured records",
		Long: `A service and CLI that extracts the historical chart data embedded in
TeamTemp survey pages, tags it by tribe and serves the merged records.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file (or env: TEAMTEMP_CONFIG)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory for the file and sqlite stores")
	cmd.PersistentFlags().StringVar(&flagStore, "store", "", "Source store: file, sqlite or postgres")

	cmd.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newSourcesCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return cmd
}

// setup loads configuration and installs the default logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagDataDir != "" {
		loaded.Store.DataDir = flagDataDir
	}
	if flagStore != "" {
		loaded.Store.Kind = strings.ToLower(flagStore)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := logger.ParseLevel(loaded.Log.Level)
	if err != nil {
		return err
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	cfg = loaded
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().IntVar(&flagPort, "port", 0, "Listen port (overrides config and PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagPort != 0 {
		cfg.Server.Port = flagPort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close() // nolint:errcheck

	srv := server.New(a, server.Options{
		Addr:            cfg.Addr(),
		Version:         Version,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	return srv.Run(ctx)
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape round and print the records",
		Long: `Scrapes every registered source, or only the pages given with --url, and
prints the merged records. Exits with status 2 when any source failed.`,
		Args: cobra.NoArgs,
		RunE: runScrape,
	}
	cmd.Flags().StringSliceVar(&flagURLs, "url", nil, "Scrape these pages instead of the registry (repeatable)")
	cmd.Flags().StringVar(&flagScrapeTribe, "tribe", "", "Tribe for pages given with --url")
	cmd.Flags().StringVar(&flagScrapeFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagSort, "sort", "", "Sort records by: date, team or tribe (default: source order)")
	addFilterFlags(cmd)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagOnlyTribes, "only-tribe", nil, "Keep only records of these tribes")
	cmd.Flags().StringSliceVar(&flagOnlyTeams, "team", nil, "Keep only teams whose name contains one of these")
	cmd.Flags().StringVar(&flagDates, "dates", "", "Keep only records in a date range, e.g. 2024-01-01..2024-03-31")
}

func filterFromFlags() (*filter.Filter, error) {
	f, err := filter.New(filter.Criteria{
		Tribes: flagOnlyTribes,
		Teams:  flagOnlyTeams,
		Range:  flagDates,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	if flagVerbose && !f.IsEmpty() {
		logger.Debug("Filtering records", logger.Fields{"filter": f.String()})
	}
	return f, nil
}

func runScrape(cmd *cobra.Command, _ []string) error {
	format, err := parseOutputFormat(flagScrapeFormat)
	if err != nil {
		return err
	}
	order := SortOrder(strings.ToLower(flagSort))
	if !order.Valid() {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'team' or 'tribe')", flagSort)
	}
	f, err := filterFromFlags()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var gen *aggregate.Generation

	if len(flagURLs) > 0 {
		lister, err := newURLList(flagURLs, flagScrapeTribe)
		if err != nil {
			return err
		}
		cache := aggregate.New(lister, newScraper(), aggregate.Options{
			Workers: cfg.Scrape.Workers,
			Timeout: cfg.Scrape.Timeout,
		})
		if gen, err = cache.Get(ctx, true); err != nil {
			return err
		}
	} else {
		a, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck

		if gen, err = a.GetData(ctx, true); err != nil {
			return err
		}
	}

	records := sortRecords(f.Apply(gen.Records), order)
	result := &OutputResult{
		ScrapedAt:   gen.Timestamp.UTC(),
		Records:     records,
		RecordCount: len(records),
		Errors:      gen.Errors,
	}
	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if gen.HasErrors() {
		return &exitError{code: ExitSourceErrors}
	}
	return nil
}

func newScraper() *scraper.Scraper {
	return scraper.NewWithOptions(scraper.Options{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.Scrape.Timeout,
		Variable:  cfg.Scrape.Variable,
	})
}

// urlList serves a fixed set of sources given on the command line.
type urlList []source.Source

func newURLList(urls []string, tribe string) (urlList, error) {
	now := time.Now()
	list := make(urlList, 0, len(urls))
	for i, u := range urls {
		if err := source.ValidateURL(u); err != nil {
			return nil, err
		}
		list = append(list, source.NewSource(u, tribe, now.Add(time.Duration(i))))
	}
	return list, nil
}

func (l urlList) List(context.Context) ([]source.Source, error) {
	return l, nil
}

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			sources, err := a.ListSources(cmd.Context())
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(flagListFormat)
			if err != nil {
				return err
			}
			return WriteSources(cmd.OutOrStdout(), sources, format)
		}),
	}
	list.Flags().StringVar(&flagListFormat, "format", "text", "Output format: text or json")

	add := &cobra.Command{
		Use:   "add URL",
		Short: "Register a source, or update the tribe of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			src, created, err := a.RegisterSource(cmd.Context(), args[0], flagAddTribe)
			if err != nil {
				return err
			}
			verb := "Updated"
			if created {
				verb = "Added"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, src.URL, src.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&flagAddTribe, "tribe", "", "Tribe label for the source")

	rm := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Remove a source by ID",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			deleted, err := a.DeleteSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: %s", source.ErrNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Scrape all sources and write the records to a CSV or XLSX file",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			format, err := export.ParseFormat(strings.ToLower(flagExportFormat))
			if err != nil {
				return err
			}
			f, err := filterFromFlags()
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), cmd.OutOrStdout(), a, format, f)
		}),
	}
	cmd.Flags().StringVar(&flagExportFormat, "format", "xlsx", "Export format: csv or xlsx")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file, or - for stdout (default: teamtemp_<date>.<format>)")
	addFilterFlags(cmd)
	return cmd
}

func runExport(ctx context.Context, stdout io.Writer, a *app.App, format export.Format, f *filter.Filter) error {
	if flagOutput == "-" {
		_, err := a.Export(ctx, stdout, format, true, f)
		return err
	}

	path := flagOutput
	if path == "" {
		path = export.Filename(time.Now(), format)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := a.Export(ctx, tmp, format, true, f); err != nil {
		tmp.Close() // nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "teamtemp %s\n", Version)
		},
	}
}

// withApp opens the application for the duration of a command.
func withApp(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck
		return fn(cmd, a, args)
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
