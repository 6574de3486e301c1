// Package cli implements the panpart command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/panpart/pkg/buildinfo"
	"github.com/matzehuels/panpart/pkg/cache"
	"github.com/matzehuels/panpart/pkg/config"
	"github.com/matzehuels/panpart/pkg/errors"
	"github.com/matzehuels/panpart/pkg/observability"
	"github.com/matzehuels/panpart/pkg/observability/prom"
	"github.com/matzehuels/panpart/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "panpart"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitInterrupted   = 130
)

// Log output formats accepted by --log-format.
const (
	logFormatText   = "text"
	logFormatJSON   = "json"
	logFormatLogfmt = "logfmt"
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Config is loaded before any command runs.
	Config config.Config

	configPath  string
	verbose     bool
	logFormat   string
	metricsFile string

	registry *prometheus.Registry
	metrics  *prom.Metrics
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		Config:    config.Default(),
		logFormat: logFormatText,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Panpart partitions pangenomes into persistent, shell and cloud families",
		Long: `Panpart partitions the gene families of a pangenome with a mixture model
smoothed over the gene neighborhood graph, and follows the partitions as
organisms are added with rarefaction (evolution) curves.`,
		Version:            buildinfo.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.flushMetrics,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "%s", cmd.CommandPath())
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "configuration file (.toml, .yaml); defaults to $"+config.EnvPath)
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.logFormat, "log-format", logFormatText, "log format: text, json, logfmt")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when the command ends")

	root.AddCommand(c.partitionCommand())
	root.AddCommand(c.evolutionCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup configures logging, loads the configuration file and registers
// metrics before any subcommand runs.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	level := LogInfo
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	formatter, err := parseLogFormat(c.logFormat)
	if err != nil {
		return err
	}
	c.Logger.SetFormatter(formatter)
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	if c.metricsFile != "" {
		c.registry = prometheus.NewRegistry()
		c.metrics = prom.New(c.registry)
		observability.SetPartitionHooks(c.metrics)
		observability.SetEvolutionHooks(c.metrics)
		observability.SetCacheHooks(c.metrics)
	}
	return nil
}

func (c *CLI) flushMetrics(*cobra.Command, []string) error {
	if c.registry == nil {
		return nil
	}
	if err := prom.WriteFile(c.metricsFile, c.registry); err != nil {
		return err
	}
	c.Logger.Debug("metrics written", "path", c.metricsFile)
	return nil
}

func parseLogFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(s) {
	case logFormatText, "":
		return log.TextFormatter, nil
	case logFormatJSON:
		return log.JSONFormatter, nil
	case logFormatLogfmt:
		return log.LogfmtFormatter, nil
	}
	return 0, errors.Configuration("unknown log format %q (want text, json or logfmt)", s)
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, errors.ErrCodeConfiguration):
		return ExitConfiguration
	}
	return ExitFailure
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.CacheScope())
	r := pipeline.NewRunner(ch, keyer, nil, c.Logger)
	r.TTL = c.Config.Cache.TTL.Duration
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, c.Config.Cache.Redis)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "connect to redis cache %s", c.Config.Cache.Redis.Addr)
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, falling back to the XDG
// standard (~/.cache/panpart/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return defaultCacheDir()
}

func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	out := strings.Split(s, ",")
	for i := range out {
		out[i] = strings.ToLower(strings.TrimSpace(out[i]))
	}
	return out
}
