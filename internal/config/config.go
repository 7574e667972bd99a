// Package config provides configuration structures and loading for fdscan.
package config

// Config represents the complete application configuration.
type Config struct {
	Source    DatabaseConfig       `yaml:"source" mapstructure:"source"`
	Discovery DiscoveryConfig      `yaml:"discovery" mapstructure:"discovery"`
	Jobs      map[string]JobConfig `yaml:"jobs" mapstructure:"jobs"`
	Logging   LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Supported verification methods.
const (
	MethodCardinality = "cardinality"
	MethodGrouping    = "grouping"
)

// DatabaseConfig represents the connection to the database holding the analyzed tables.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mysql or postgres
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	Schema             string `yaml:"schema" mapstructure:"schema"` // postgres only; mysql uses Database
	TLS                string `yaml:"tls" mapstructure:"tls"`       // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// EffectiveSchema returns the schema that qualifies table names for this source.
func (d DatabaseConfig) EffectiveSchema() string {
	if d.Driver == DriverMySQL {
		return d.Database
	}
	if d.Schema == "" {
		return "public"
	}
	return d.Schema
}

// DiscoveryConfig controls the dependency discovery run.
type DiscoveryConfig struct {
	MaxLHSSize           int     `yaml:"max_lhs_size" mapstructure:"max_lhs_size"`
	Method               string  `yaml:"method" mapstructure:"method"` // cardinality or grouping
	Workers              int     `yaml:"workers" mapstructure:"workers"`
	VerifyTimeoutSeconds int     `yaml:"verify_timeout_seconds" mapstructure:"verify_timeout_seconds"`
	QueriesPerSecond     float64 `yaml:"queries_per_second" mapstructure:"queries_per_second"`
	RetryAttempts        int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	Exclusive            bool    `yaml:"exclusive" mapstructure:"exclusive"`
}

// JobConfig names a table to analyze along with optional per-table settings.
type JobConfig struct {
	Table          string           `yaml:"table" mapstructure:"table"`
	ExcludeColumns []string         `yaml:"exclude_columns" mapstructure:"exclude_columns"`
	Discovery      *DiscoveryConfig `yaml:"discovery,omitempty" mapstructure:"discovery"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Driver:             DriverPostgres,
			Port:               5432,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Discovery: DiscoveryConfig{
			MaxLHSSize:           3,
			Method:               MethodCardinality,
			Workers:              1,
			VerifyTimeoutSeconds: 30,
			QueriesPerSecond:     0,
			RetryAttempts:        3,
			Exclusive:            false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// GetJobDiscovery returns the discovery config for a job by name, falling back to global if not set.
func (c *Config) GetJobDiscovery(jobName string) DiscoveryConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Discovery
	}
	return job.GetJobDiscovery(c.Discovery)
}

// GetJobDiscovery returns the discovery config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobDiscovery(global DiscoveryConfig) DiscoveryConfig {
	if jc.Discovery == nil {
		return global
	}

	result := global
	if jc.Discovery.MaxLHSSize > 0 {
		result.MaxLHSSize = jc.Discovery.MaxLHSSize
	}
	if jc.Discovery.Method != "" {
		result.Method = jc.Discovery.Method
	}
	if jc.Discovery.Workers > 0 {
		result.Workers = jc.Discovery.Workers
	}
	if jc.Discovery.VerifyTimeoutSeconds > 0 {
		result.VerifyTimeoutSeconds = jc.Discovery.VerifyTimeoutSeconds
	}
	if jc.Discovery.QueriesPerSecond > 0 {
		result.QueriesPerSecond = jc.Discovery.QueriesPerSecond
	}
	if jc.Discovery.RetryAttempts > 0 {
		result.RetryAttempts = jc.Discovery.RetryAttempts
	}
	result.Exclusive = jc.Discovery.Exclusive || global.Exclusive
	return result
}
