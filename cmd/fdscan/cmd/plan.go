package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/fdscan/internal/config"
	"github.com/dbsmedya/fdscan/internal/database"
	"github.com/dbsmedya/fdscan/internal/fd"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/planner"
	"github.com/dbsmedya/fdscan/internal/schema"
	"github.com/dbsmedya/fdscan/internal/snapshot"
)

var (
	planJob   string
	planTable string
	planCSV   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the discovery plan for a table",
	Long: `Plan resolves the columns of a table and shows how many candidates each
left-hand side size contributes, without running any verification query.

The plan shows:
  - Row count of the table
  - Candidates and worst-case checks per LHS size
  - Effective discovery settings (job-specific values applied)
  - Analyzed and excluded columns

Example:
  fdscan plan --config fdscan.yaml --job employees
  fdscan plan --table employees --max-lhs 4`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planJob, "job", "j", "",
		"Job name from configuration file")
	planCmd.Flags().StringVarP(&planTable, "table", "t", "",
		"Table to plan without a configured job")
	planCmd.Flags().StringVar(&planCSV, "csv", "",
		"Plan for a CSV file instead of a database table")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(planCSV != "")
	if err != nil {
		return err
	}

	var (
		jobName string
		est     *planner.Estimate
	)
	ctx := context.Background()

	if planCSV != "" {
		base := filepath.Base(planCSV)
		table := strings.TrimSuffix(base, filepath.Ext(base))
		tbl, err := snapshot.LoadCSVFile(planCSV, false)
		if err != nil {
			return err
		}
		db := snapshot.NewDatabase("")
		db.AddTable(table, tbl)

		// Global overrides are already applied by loadConfig.
		discovery := cfg.Discovery
		m, err := fd.ParseMethod(discovery.Method)
		if err != nil {
			return err
		}
		est, err = planner.NewEstimator(db, nil, logger.NewNop()).
			Estimate(ctx, table, discoveryOptions(discovery, &config.JobConfig{Table: table}), m)
		if err != nil {
			return err
		}
		est.RowCount = int64(len(tbl.Rows))
		jobName = table
	} else {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		name, job, err := cfg.ResolveJob(planJob, planTable)
		if err != nil {
			return err
		}
		jobName = name

		o := GetCLIOverrides()
		discovery := cfg.ApplyJobOverrides(job, o.MaxLHSSize, o.Workers, o.Method, o.VerifyTimeout)
		m, err := fd.ParseMethod(discovery.Method)
		if err != nil {
			return err
		}

		log, err := logger.New(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

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
		est, err = planner.NewEstimator(inspector, inspector, log).
			Estimate(ctx, job.Table, discoveryOptions(discovery, job), m)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(outputWriter, "Job: %s\n", jobName)
	planner.DisplayPlan(outputWriter, est)
	return nil
}
