package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/fdscan/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile       string
	logLevel      string
	logFormat     string
	maxLHSSize    int
	workers       int
	method        string
	verifyTimeout int
)

// outputWriter is used for printing results, can be overridden in tests
var outputWriter io.Writer = os.Stdout

func setOutputWriter(w io.Writer) {
	outputWriter = w
}

func resetOutputWriter() {
	outputWriter = os.Stdout
}

var rootCmd = &cobra.Command{
	Use:   "fdscan",
	Short: "Functional dependency discovery for SQL tables",
	Long: `fdscan finds the minimal functional dependencies that hold in the current
contents of a MySQL or PostgreSQL table.

Features:
  - Level-wise search from single columns up to a configurable LHS size
  - Minimality pruning: supersets of a known determinant are never checked
  - Two equivalent SQL formulations (cardinality and grouping)
  - Bounded parallel verification with per-query timeouts and retries
  - Text, JSON and Prometheus textfile output`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "fdscan.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Discovery overrides
	rootCmd.PersistentFlags().IntVar(&maxLHSSize, "max-lhs", 0,
		"Override the maximum number of columns on the left-hand side")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override the number of concurrent verifications per LHS size")
	rootCmd.PersistentFlags().StringVar(&method, "method", "",
		"Override the verification method (cardinality, grouping)")
	rootCmd.PersistentFlags().IntVar(&verifyTimeout, "verify-timeout", 0,
		"Override the per-verification timeout in seconds")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel      string
	LogFormat     string
	MaxLHSSize    int
	Workers       int
	Method        string
	VerifyTimeout int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:      logLevel,
		LogFormat:     logFormat,
		MaxLHSSize:    maxLHSSize,
		Workers:       workers,
		Method:        method,
		VerifyTimeout: verifyTimeout,
	}
}

// loadConfig reads the config file and applies the global CLI overrides. With
// optional set, a missing file yields the defaults instead of an error.
func loadConfig(optional bool) (*config.Config, error) {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		if _, statErr := os.Stat(configFile); !optional || !errors.Is(statErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.DefaultConfig()
	}

	o := GetCLIOverrides()
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.MaxLHSSize, o.Workers, o.Method, o.VerifyTimeout)
	return cfg, nil
}
