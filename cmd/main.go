// form-export: export marketing form submissions to an xlsx workbook.
//
// Lists the portal's forms, keeps those whose name contains SEARCH_TERM,
// walks each one's submissions back DAYS_BACK days and writes one row per
// submission. Runs once by default; `schedule` repeats the export on a
// cron spec taken from EXPORT_SCHEDULE.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"formexport/internal/config"
	"formexport/internal/export"
	"formexport/internal/hubspot"
	"formexport/internal/scheduler"
	"formexport/internal/workbook"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries state shared by the commands.
type app struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "form-export",
		Short: "Export marketing form submissions to an xlsx workbook",
		Long: `form-export pulls form submissions from the marketing API and writes them
to a spreadsheet, one row per submission.

Environment:
  API_TOKEN            private app token (required)
  SEARCH_TERM          case-insensitive form name filter (default "exprom")
  DAYS_BACK            look-back window in days (default 30)
  OUTPUT_FILE          workbook path (default "form_submissions.xlsx")
  API_BASE_URL         API endpoint (default "https://api.hubapi.com")
  ASSUME_NEWEST_FIRST  stop paging a form at the first stale submission (default true)
  EXPORT_SCHEDULE      cron spec for the schedule command`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initLogger,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: a.runExport,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Run one export and exit",
			Args:  cobra.NoArgs,
			RunE:  a.runExport,
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Run the export now and then on EXPORT_SCHEDULE until interrupted",
			Args:  cobra.NoArgs,
			RunE:  a.runSchedule,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "form-export v%s\n", version)
			},
		},
	)
	return root
}

func (a *app) initLogger(cmd *cobra.Command, args []string) error {
	if a.logger != nil {
		return nil
	}
	cfg := zap.NewProductionConfig()
	if a.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	return a.exportOnce(cmd.Context(), cmd.OutOrStdout())
}

// exportOnce loads configuration from the environment and runs one export.
// A missing token fails here, before any request is made.
func (a *app) exportOnce(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(time.Now())
	if err != nil {
		return err
	}

	client := hubspot.NewClient(cfg.BaseURL, cfg.Token, hubspot.WithLogger(a.logger.Named("hubspot")))
	exp := export.New(client, workbook.NewWriter(), a.logger.Named("export"))

	res, err := exp.Run(ctx, *cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Summary())
	return nil
}

func (a *app) runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(time.Now())
	if err != nil {
		return err
	}
	if cfg.Schedule == "" {
		return &config.ConfigurationError{Var: "EXPORT_SCHEDULE"}
	}

	out := cmd.OutOrStdout()
	s, err := scheduler.New(cfg.Schedule, func(ctx context.Context) error {
		return a.exportOnce(ctx, out)
	}, a.logger.Named("scheduler"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	a.logger.Info("shutting down")
	s.Stop()
	return nil
}
