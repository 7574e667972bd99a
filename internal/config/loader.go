package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)
	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	cfg.Source.Host = expandEnvVar(cfg.Source.Host)
	cfg.Source.User = expandEnvVar(cfg.Source.User)
	cfg.Source.Password = expandEnvVar(cfg.Source.Password)
	cfg.Source.Database = expandEnvVar(cfg.Source.Database)
	cfg.Source.Schema = expandEnvVar(cfg.Source.Schema)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// GetJob retrieves a specific job configuration by name.
func (c *Config) GetJob(name string) (*JobConfig, error) {
	job, exists := c.Jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %q not found in configuration", name)
	}
	return &job, nil
}

// ListJobs returns all job names defined in the configuration, sorted.
func (c *Config) ListJobs() []string {
	jobs := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		jobs = append(jobs, name)
	}
	sort.Strings(jobs)
	return jobs
}

// ResolveJob returns the job to run for either a configured job name or an ad-hoc
// table name. Exactly one of jobName and table must be set.
func (c *Config) ResolveJob(jobName, table string) (string, *JobConfig, error) {
	switch {
	case jobName != "" && table != "":
		return "", nil, fmt.Errorf("--job and --table are mutually exclusive")
	case jobName != "":
		job, err := c.GetJob(jobName)
		if err != nil {
			return "", nil, err
		}
		return jobName, job, nil
	case table != "":
		return table, &JobConfig{Table: table}, nil
	default:
		return "", nil, fmt.Errorf("either --job or --table is required")
	}
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, maxLHSSize, workers int, method string, verifyTimeoutSeconds int) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if maxLHSSize > 0 {
		c.Discovery.MaxLHSSize = maxLHSSize
	}
	if workers > 0 {
		c.Discovery.Workers = workers
	}
	if method != "" {
		c.Discovery.Method = method
	}
	if verifyTimeoutSeconds > 0 {
		c.Discovery.VerifyTimeoutSeconds = verifyTimeoutSeconds
	}
}

// ApplyJobOverrides combines global, job-specific and CLI values into the effective
// discovery settings for one job. CLI values win.
func (c *Config) ApplyJobOverrides(job *JobConfig, maxLHSSize, workers int, method string, verifyTimeoutSeconds int) DiscoveryConfig {
	discovery := job.GetJobDiscovery(c.Discovery)

	if maxLHSSize > 0 {
		discovery.MaxLHSSize = maxLHSSize
	}
	if workers > 0 {
		discovery.Workers = workers
	}
	if method != "" {
		discovery.Method = method
	}
	if verifyTimeoutSeconds > 0 {
		discovery.VerifyTimeoutSeconds = verifyTimeoutSeconds
	}

	return discovery
}
