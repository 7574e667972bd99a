package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/fdscan/internal/database"
	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks
against the database before any discovery run.

Checks performed:
  - Configuration syntax and required fields
  - Database connectivity
  - Table existence for every job
  - Excluded columns exist and leave at least one column

Example:
  fdscan validate --config fdscan.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Info("Starting validation checks...")

	ctx := context.Background()

	dbManager, err := database.NewManager(&cfg.Source)
	if err != nil {
		return err
	}
	if err := dbManager.Connect(ctx); err != nil {
		return err
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	inspector, err := schema.NewInspector(dbManager.Source, dbManager.Dialect, dbManager.Schema(), log)
	if err != nil {
		return err
	}

	w := outputWriter
	fmt.Fprintf(w, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(w, "Config file: %s\n", GetConfigFile())
	fmt.Fprintf(w, "Source: %s (%s)\n", dbManager.Schema(), dbManager.Dialect)
	fmt.Fprintf(w, "Jobs found: %d\n\n", len(cfg.Jobs))

	jobNames := cfg.ListJobs()
	tables := make([]string, 0, len(jobNames))
	for _, name := range jobNames {
		tables = append(tables, cfg.Jobs[name].Table)
	}
	if err := inspector.ValidateTablesExist(ctx, tables); err != nil {
		fmt.Fprintf(w, "❌ %v\n\n", err)
		return fmt.Errorf("validation failed for one or more jobs")
	}

	hasErrors := false
	for _, name := range jobNames {
		job := cfg.Jobs[name]
		fmt.Fprintf(w, "--- Job: %s ---\n", name)
		fmt.Fprintf(w, "Table: %s\n", job.Table)

		columns, err := inspector.ListColumns(ctx, job.Table)
		if err != nil {
			fmt.Fprintf(w, "❌ Column lookup failed: %v\n\n", err)
			hasErrors = true
			continue
		}

		remaining := len(columns)
		for _, ex := range job.ExcludeColumns {
			found := false
			for _, c := range columns {
				if c == ex {
					found = true
					remaining--
					break
				}
			}
			if !found {
				fmt.Fprintf(w, "⚠️  Excluded column %q does not exist\n", ex)
			}
		}
		if remaining == 0 {
			fmt.Fprintf(w, "❌ Every column is excluded\n\n")
			hasErrors = true
			continue
		}

		fmt.Fprintf(w, "Columns: %d (%d analyzed)\n", len(columns), remaining)
		fmt.Fprintf(w, "✅ All checks passed\n\n")
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more jobs")
	}

	fmt.Fprintln(w, "=== Validation Complete ===")
	fmt.Fprintln(w, "✅ All jobs validated successfully")
	return nil
}
