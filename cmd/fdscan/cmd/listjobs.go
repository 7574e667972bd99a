package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/fdscan/internal/config"
)

var listJobsCmd = &cobra.Command{
	Use:   "list-jobs",
	Short: "List all jobs defined in configuration",
	Long: `List-jobs displays all discovery jobs defined in the configuration file
along with their effective settings.

Example:
  fdscan list-jobs --config fdscan.yaml`,
	RunE: runListJobs,
}

func init() {
	rootCmd.AddCommand(listJobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobNames := cfg.ListJobs()
	if len(jobNames) == 0 {
		cmd.Printf("No jobs defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Jobs defined in %s:\n\n", configFile)

	for i, jobName := range jobNames {
		job, err := cfg.GetJob(jobName)
		if err != nil {
			return fmt.Errorf("failed to get job %q: %w", jobName, err)
		}
		discovery := job.GetJobDiscovery(cfg.Discovery)

		cmd.Printf("%d. %s\n", i+1, jobName)
		cmd.Printf("   Table:         %s\n", job.Table)
		if len(job.ExcludeColumns) > 0 {
			cmd.Printf("   Excluded:      %s\n", strings.Join(job.ExcludeColumns, ", "))
		} else {
			cmd.Printf("   Excluded:      (none)\n")
		}
		cmd.Printf("   Max LHS size:  %d\n", discovery.MaxLHSSize)
		cmd.Printf("   Method:        %s\n", discovery.Method)
		cmd.Printf("   Workers:       %d\n", discovery.Workers)

		if job.Discovery != nil {
			cmd.Printf("   Discovery:     Custom (job-specific overrides)\n")
		}

		if i < len(jobNames)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d job(s)\n", len(jobNames))
	return nil
}
