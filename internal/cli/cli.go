// Package cli implements the netid command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/R167/netid/internal/config"
	"github.com/R167/netid/internal/logging"
	"github.com/R167/netid/internal/monitor"
	"github.com/R167/netid/internal/runner"
)

// Options holds the global command line configuration.
type Options struct {
	ConfigFile     string
	LogLevel       string
	LogFormat      string
	StateFile      string
	ProbeAddress   string
	MetricsAddr    string
	Interval       time.Duration
	CommandTimeout time.Duration

	// isTerminal reports whether w is an interactive terminal.
	isTerminal func(w io.Writer) bool

	// sampler replaces the system reachability provider when set.
	sampler monitor.Sampler
}

// Execute runs the root command until it completes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(version).ExecuteContext(ctx)
}

func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, &Options{isTerminal: isTerminal})
}

func newRootCommand(version string, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "netid",
		Short: "Local network identity resolver",
		Long: `netid derives a stable identifier for the network the device is currently
attached to. The identifier is used as a local cache key for per-network
state and never leaves the device.`,
		Example: `  # Show the current network fingerprint
  netid resolve

  # Watch for network changes and serve metrics
  netid watch --metrics-addr 127.0.0.1:9464

  # List networks with recorded state
  netid state list

  # Keep dial parameters for the current network after a successful connect
  netid state record --success --params-file params.bin`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "f", "", "path to a TOML configuration file")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format (text or json)")
	flags.StringVar(&opts.StateFile, "state-file", "", "per-network state database")
	flags.StringVar(&opts.ProbeAddress, "probe-address", "", "UDP probe target for egress interface discovery")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.DurationVar(&opts.Interval, "interval", 0, "sampling interval in watch mode (e.g. 5s)")
	flags.DurationVar(&opts.CommandTimeout, "command-timeout", 0, "timeout for each platform command")

	cmd.AddCommand(
		newResolveCommand(opts),
		newWatchCommand(opts),
		newMCPCommand(opts, version),
		newStateCommand(opts),
	)
	return cmd
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *Options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigFile != "" {
		loaded, err := config.LoadFile(o.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.LogFormat
	}
	if flags.Changed("state-file") {
		cfg.StateFile = o.StateFile
	}
	if flags.Changed("probe-address") {
		cfg.ProbeAddress = o.ProbeAddress
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.MetricsAddr
	}
	if flags.Changed("interval") {
		cfg.Interval = o.Interval
	}
	if flags.Changed("command-timeout") {
		cfg.CommandTimeout = o.CommandTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runContext loads configuration and builds the shared RunContext. Logs go
// to stderr so stdout stays usable for reports, notices and MCP.
func (o *Options) runContext(cmd *cobra.Command) (*runner.RunContext, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logger.GetLevel())

	rc := runner.NewRunContext(cmd.Context()).WithConfig(cfg).WithLogger(logger)
	if o.sampler != nil {
		rc.WithSampler(o.sampler)
	}
	return rc, nil
}

var errStateDisabled = errors.New("state is disabled: set state_file or --state-file")

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
