package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LilVoxy/sakila_analytics/ETL/config"
	"github.com/LilVoxy/sakila_analytics/ETL/extractors"
	"github.com/LilVoxy/sakila_analytics/ETL/pipeline"
	"github.com/LilVoxy/sakila_analytics/ETL/schema"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
	"github.com/LilVoxy/sakila_analytics/ETL/validation"
)

// ETLRunner wires the stores, the synchronizer and the checker for one command
type ETLRunner struct {
	config        config.ETLConfig
	dbConnections *config.DBConnections
	logger        *utils.ETLLogger
	synchronizer  *pipeline.Synchronizer
}

// NewETLRunner connects both stores and builds the synchronizer
func NewETLRunner(ctx context.Context, etlConfig config.ETLConfig, logger *utils.ETLLogger) (*ETLRunner, error) {
	logger.Info("Initializing ETL runner")

	connections, err := config.ConnectDatabases(ctx, etlConfig)
	if err != nil {
		return nil, err
	}

	extractor := extractors.NewMySQLExtractor(connections.SourceDB, logger)

	return &ETLRunner{
		config:        etlConfig,
		dbConnections: connections,
		logger:        logger,
		synchronizer:  pipeline.NewSynchronizer(extractor, connections.TargetDB, logger),
	}, nil
}

// Close closes the database connections
func (r *ETLRunner) Close() {
	r.logger.Info("Shutting down ETL runner")
	if err := config.CloseDatabases(r.dbConnections); err != nil {
		r.logger.Error("%v", err)
	}
}

// Sync runs one synchronization in the given mode
func (r *ETLRunner) Sync(ctx context.Context, mode pipeline.Mode) error {
	report, err := r.synchronizer.Run(ctx, mode)
	if err != nil {
		return err
	}

	inserted, updated, dropped := report.Totals()
	r.logger.Info("%s finished: %d inserted, %d updated, %d dropped in %v",
		mode, inserted, updated, dropped, report.FinishedAt.Sub(report.StartedAt))
	for _, d := range report.Dropped {
		r.logger.Warn("Dropped %s %s: %s", d.Table, d.NaturalKey, d.Reason)
	}
	return nil
}

// Validate runs the reconciliation check. Mismatches are logged, not returned.
func (r *ETLRunner) Validate(ctx context.Context) (*validation.Result, error) {
	checker := validation.NewChecker(
		validation.NewSourceService(r.dbConnections.SourceDB),
		validation.NewTargetRepository(r.dbConnections.TargetDB),
		r.logger,
		validation.Config{LookbackDays: r.config.Sync.ValidationLookbackDays},
	)
	return checker.Validate(ctx)
}

// Schedule runs incremental sync every configured interval until ctx is done
func (r *ETLRunner) Schedule(ctx context.Context) error {
	return pipeline.StartScheduler(ctx, r.synchronizer, r.config.Sync.RunInterval, r.logger)
}

// InitTarget drops and recreates every analytics table. Only the target store is opened.
func InitTarget(ctx context.Context, target config.TargetConfig, logger *utils.ETLLogger) error {
	db, err := config.OpenTarget(ctx, target)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Resetting analytics schema at %s", target.Path)
	if err := schema.Reset(ctx, db); err != nil {
		return err
	}
	logger.Info("Created %d tables", len(schema.Tables))
	return nil
}

// cli holds the state shared by the subcommands
type cli struct {
	configPath string
	config     config.ETLConfig
	logger     *utils.ETLLogger

	// owns the log file behind logger
	rootLogger *utils.ETLLogger
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	etlConfig, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if err := etlConfig.Validate(); err != nil {
		return err
	}

	logger, err := utils.NewETLLogger(etlConfig.Logging.Verbose, etlConfig.Logging.Development, etlConfig.Logging.Dir)
	if err != nil {
		return err
	}

	c.config = etlConfig
	c.rootLogger = logger
	c.logger = logger.With("command", cmd.Name())
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) {
	if c.rootLogger != nil {
		_ = c.rootLogger.Close()
	}
}

// withRunner connects the stores around fn
func (c *cli) withRunner(ctx context.Context, fn func(*ETLRunner) error) error {
	runner, err := NewETLRunner(ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return fn(runner)
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "etl",
		Short: "Synchronize the sakila store into the SQLite analytics star schema",
		Long: `Synchronize the sakila rental store (MySQL) into a SQLite star schema.

Commands:
  init          Drop and recreate every analytics table
  full-load     Load everything into an empty analytics store
  incremental   Apply changes made since the last run
  validate      Compare recent aggregates between both stores
  schedule      Run incremental sync on the configured interval`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: c.teardown,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Drop and recreate every analytics table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return InitTarget(cmd.Context(), c.config.Target, c.logger)
			},
		},
		newSyncCmd(c, pipeline.FullLoad, "Load everything into an empty analytics store"),
		newSyncCmd(c, pipeline.Incremental, "Apply source changes made since the last run"),
		&cobra.Command{
			Use:   "validate",
			Short: "Compare recent aggregates between both stores",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withRunner(cmd.Context(), func(r *ETLRunner) error {
					result, err := r.Validate(cmd.Context())
					if err != nil {
						return err
					}
					printResult(cmd, result)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Run incremental sync on the configured interval until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return c.withRunner(ctx, func(r *ETLRunner) error {
					return r.Schedule(ctx)
				})
			},
		},
	)
	return root
}

func newSyncCmd(c *cli, mode pipeline.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			err := c.withRunner(cmd.Context(), func(r *ETLRunner) error {
				return r.Sync(cmd.Context(), mode)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s completed in %v\n", mode, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, result *validation.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validation window: after %s\n", result.Cutoff.Format("2006-01-02"))
	for _, check := range result.Checks {
		status := "OK"
		if !check.OK {
			status = "MISMATCH"
		}
		fmt.Fprintf(out, "  %-8s %-20s source=%s target=%s\n", status, check.Name, check.Source, check.Target)
	}
	if result.Passed() {
		fmt.Fprintln(out, "Validation PASSED")
		return
	}
	fmt.Fprintf(out, "Validation FAILED: %d mismatches\n", result.Mismatches)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, config.ErrInvalidConfig) {
			fmt.Fprintln(os.Stderr, "Check the config file passed with --config")
		}
		os.Exit(1)
	}
}
