package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/fdscan/internal/config"
	"github.com/dbsmedya/fdscan/internal/database"
	"github.com/dbsmedya/fdscan/internal/fd"
	"github.com/dbsmedya/fdscan/internal/lock"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/metrics"
	"github.com/dbsmedya/fdscan/internal/report"
	"github.com/dbsmedya/fdscan/internal/retry"
	"github.com/dbsmedya/fdscan/internal/schema"
	"github.com/dbsmedya/fdscan/internal/snapshot"
	"github.com/dbsmedya/fdscan/internal/verifier"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var (
	discoverJob         string
	discoverTable       string
	discoverCSV         string
	discoverOutput      string
	discoverMetricsFile string
	discoverNoColor     bool
	discoverVerbose     bool
	discoverKeepEmpty   bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover minimal functional dependencies of a table",
	Long: `Discover enumerates candidate left-hand sides from one column up to the
configured maximum size and verifies each remaining candidate against the data.

A candidate is skipped when a smaller set of its columns already determines the
same column, so only minimal dependencies are reported. NULL is treated as an
ordinary value. A failed or timed out verification is reported and the run
continues.

The table comes from a configured job, an ad-hoc --table, or a CSV file. CSV
input is analyzed in memory and needs no database.

Example:
  fdscan discover --config fdscan.yaml --job employees
  fdscan discover --table employees --max-lhs 2 --workers 4
  fdscan discover --csv employees.csv --output json`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverJob, "job", "j", "",
		"Job name from configuration file")
	discoverCmd.Flags().StringVarP(&discoverTable, "table", "t", "",
		"Table to analyze without a configured job")
	discoverCmd.Flags().StringVar(&discoverCSV, "csv", "",
		"Analyze a CSV file (header row required) instead of a database table")
	discoverCmd.Flags().BoolVar(&discoverKeepEmpty, "csv-keep-empty", false,
		"Treat empty CSV fields as empty strings instead of NULL")
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", outputText,
		"Output format (text, json)")
	discoverCmd.Flags().StringVar(&discoverMetricsFile, "metrics-textfile", "",
		"Write Prometheus metrics for the run to this file")
	discoverCmd.Flags().BoolVar(&discoverNoColor, "no-color", false,
		"Disable colored output")
	discoverCmd.Flags().BoolVarP(&discoverVerbose, "verbose", "v", false,
		"Also show rejected and failed candidates while running")

	rootCmd.AddCommand(discoverCmd)
}

// discoveryRun bundles what one run needs regardless of where the data lives.
type discoveryRun struct {
	source   string
	table    string
	lister   fd.ColumnLister
	verifier fd.Verifier
	opts     fd.Options
	log      *logger.Logger
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if discoverOutput != outputText && discoverOutput != outputJSON {
		return fmt.Errorf("invalid output format %q (must be text or json)", discoverOutput)
	}
	if discoverCSV != "" {
		return runDiscoverCSV()
	}

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	jobName, job, err := cfg.ResolveJob(discoverJob, discoverTable)
	if err != nil {
		return err
	}
	o := GetCLIOverrides()
	discovery := cfg.ApplyJobOverrides(job, o.MaxLHSSize, o.Workers, o.Method, o.VerifyTimeout)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	log = log.WithJob(jobName)

	ctx, stop := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnf("Received %s, stopping discovery...", sig)
	})
	defer stop()

	dbManager, err := database.NewManager(&cfg.Source)
	if err != nil {
		return err
	}
	if err := dbManager.Connect(ctx); err != nil {
		return err
	}
	defer dbManager.Close()

	inspector, err := schema.NewInspector(dbManager.Source, dbManager.Dialect, dbManager.Schema(), log)
	if err != nil {
		return err
	}

	m, err := fd.ParseMethod(discovery.Method)
	if err != nil {
		return err
	}
	v, err := verifier.NewSQLVerifier(dbManager.Source, dbManager.Dialect, dbManager.Schema(), verifier.Options{
		Method:           m,
		QueriesPerSecond: discovery.QueriesPerSecond,
		Retry:            retry.DefaultConfig().WithAttempts(discovery.RetryAttempts),
	}, log)
	if err != nil {
		return err
	}

	run := &discoveryRun{
		source:   fmt.Sprintf("%s %s@%s:%d/%s", dbManager.Dialect, cfg.Source.User, cfg.Source.Host, cfg.Source.Port, dbManager.Schema()),
		table:    job.Table,
		lister:   inspector,
		verifier: v,
		opts:     discoveryOptions(discovery, job),
		log:      log,
	}

	if !discovery.Exclusive {
		return executeDiscovery(ctx, run)
	}

	err = lock.WithTableLock(ctx, dbManager.Source, dbManager.Dialect, dbManager.Schema(), job.Table, log, func() error {
		log.Infof("Acquired advisory lock for %s", job.Table)
		return executeDiscovery(ctx, run)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return fmt.Errorf("table %q is already being scanned by another instance", job.Table)
	}
	return err
}

func runDiscoverCSV() error {
	if discoverTable != "" {
		return fmt.Errorf("--csv and --table are mutually exclusive")
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	job := &config.JobConfig{}
	jobName := ""
	if discoverJob != "" {
		if job, err = cfg.GetJob(discoverJob); err != nil {
			return err
		}
		jobName = discoverJob
	}
	if job.Table == "" {
		base := filepath.Base(discoverCSV)
		job = &config.JobConfig{
			Table:          strings.TrimSuffix(base, filepath.Ext(base)),
			ExcludeColumns: job.ExcludeColumns,
			Discovery:      job.Discovery,
		}
	}
	if jobName == "" {
		jobName = job.Table
	}

	o := GetCLIOverrides()
	discovery := cfg.ApplyJobOverrides(job, o.MaxLHSSize, o.Workers, o.Method, o.VerifyTimeout)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	log = log.WithJob(jobName)

	m, err := fd.ParseMethod(discovery.Method)
	if err != nil {
		return err
	}

	tbl, err := snapshot.LoadCSVFile(discoverCSV, discoverKeepEmpty)
	if err != nil {
		return err
	}
	log.Infof("Loaded %d rows from %s", len(tbl.Rows), discoverCSV)

	db := snapshot.NewDatabase(m)
	db.AddTable(job.Table, tbl)

	ctx, stop := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnf("Received %s, stopping discovery...", sig)
	})
	defer stop()

	return executeDiscovery(ctx, &discoveryRun{
		source:   "csv " + discoverCSV,
		table:    job.Table,
		lister:   db,
		verifier: db,
		opts:     discoveryOptions(discovery, job),
		log:      log,
	})
}

func discoveryOptions(d config.DiscoveryConfig, job *config.JobConfig) fd.Options {
	return fd.Options{
		MaxLHSSize:     d.MaxLHSSize,
		Workers:        d.Workers,
		VerifyTimeout:  time.Duration(d.VerifyTimeoutSeconds) * time.Second,
		ExcludeColumns: job.ExcludeColumns,
	}
}

func executeDiscovery(ctx context.Context, run *discoveryRun) error {
	engine, err := fd.NewEngine(run.lister, run.verifier, run.opts, run.log)
	if err != nil {
		return err
	}

	var observers fd.MultiObserver
	printer := report.NewPrinter(outputWriter, !discoverNoColor)
	printer.SetVerbose(discoverVerbose)
	if discoverOutput == outputText {
		columns, err := run.lister.ListColumns(ctx, run.table)
		if err != nil {
			return err
		}
		printer.Header(run.source, run.table, columns)
		observers = append(observers, printer)
	}

	var recorder *metrics.Recorder
	if discoverMetricsFile != "" {
		recorder = metrics.NewRecorder(run.table, Version)
		observers = append(observers, recorder)
	}
	engine.SetObserver(observers)

	result, runErr := engine.Discover(ctx, run.table)
	if result == nil {
		return runErr
	}

	keys := fd.CandidateKeys(result.Dependencies, result.Columns, result.MaxLHSSize)
	if discoverOutput == outputJSON {
		if err := report.WriteJSON(outputWriter, result, keys); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	} else {
		printer.Summary(result, keys)
	}

	if recorder != nil {
		recorder.ObserveResult(result)
		if err := recorder.WriteTextfile(discoverMetricsFile); err != nil {
			run.log.Warnf("Failed to write metrics to %s: %v", discoverMetricsFile, err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("discovery interrupted: %w", runErr)
	}
	return nil
}
