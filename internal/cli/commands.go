package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/R167/netid/internal/mcp"
	"github.com/R167/netid/internal/output"
	"github.com/R167/netid/internal/parallel"
	"github.com/R167/netid/internal/runner"
	"github.com/R167/netid/netid"
	"github.com/R167/netid/store"
)

var (
	errRevealNotTerminal = errors.New("refusing to reveal the network identifier to non-terminal output")
	errNoNetwork         = errors.New("no connectivity: there is no current network to keep state for")
)

// openState builds the run context and opens the state file. The returned
// store is nil when state is disabled; close is always safe to call.
func (o *Options) openState(cmd *cobra.Command) (*runner.RunContext, *store.Store, func(), error) {
	rc, err := o.runContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := rc.OpenStore()
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if st != nil {
			st.Close()
		}
	}
	return rc, st, closeFn, nil
}

// currentNetwork resolves the network the device is attached to now.
func currentNetwork(ctx context.Context, rc *runner.RunContext, st *store.Store) (netid.ID, error) {
	_, id, err := rc.Identify(ctx, st)
	if err != nil {
		return netid.ID{}, err
	}
	if id.IsUnknown() {
		return netid.ID{}, errNoNetwork
	}
	return id, nil
}

func newResolveCommand(opts *Options) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the current network identity once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reveal && !opts.isTerminal(cmd.OutOrStdout()) {
				return errRevealNotTerminal
			}

			rc, st, closeFn, err := opts.openState(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			mon, err := rc.Monitor(st, nil)
			if err != nil {
				return err
			}
			state, err := mon.Refresh(cmd.Context())
			out := output.NewStreamingOutput(cmd.OutOrStdout(), rc.Config.LogLevel == "debug")
			output.WriteStatus(out, output.Status{
				Snapshot: state.Snapshot,
				ID:       state.ID,
				Err:      err,
				Reveal:   reveal,
			})
			if err == nil && state.Known {
				out.Detail("Previously seen network")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the raw identifier (local terminal only)")
	return cmd
}

func newWatchCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Monitor network changes and emit JSON notices on stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := opts.runContext(cmd)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			rc.WithNoticeHandler(func(line []byte) {
				fmt.Fprintln(stdout, string(line))
			})

			st, err := rc.OpenStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}
			collector, err := rc.Metrics()
			if err != nil {
				return err
			}

			mon, err := rc.Monitor(st, collector)
			if err != nil {
				return err
			}
			pe := parallel.NewExecutor(cmd.Context())
			pe.Execute("monitor", mon.Run)
			if collector != nil {
				addr := rc.Config.MetricsAddr
				rc.Logger.WithField("addr", addr).Info("Serving metrics")
				pe.Execute("metrics", func(ctx context.Context) error {
					return collector.Serve(ctx, addr)
				})
			}
			return pe.Wait()
		},
	}
}

func newMCPCommand(opts *Options, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the network_status tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, st, closeFn, err := opts.openState(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			mon, err := rc.Monitor(st, nil)
			if err != nil {
				return err
			}
			return mcp.NewServer(mon, version).Run(cmd.Context())
		},
	}
}

func newStateCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and maintain per-network state",
	}

	// withStore runs fn with an open store and fails when state is disabled.
	withStore := func(fn func(cmd *cobra.Command, rc *runner.RunContext, st *store.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rc, st, closeFn, err := opts.openState(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if st == nil {
				return errStateDisabled
			}
			return fn(cmd, rc, st)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List networks with recorded state",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, rc *runner.RunContext, st *store.Store) error {
			entries, err := st.List()
			if err != nil {
				return err
			}
			n, err := st.Count()
			if err != nil {
				return err
			}
			out := output.NewStreamingOutput(cmd.OutOrStdout(), false)
			output.WriteRecords(out, entries, time.Now())
			if n > 0 {
				out.Info("%d networks recorded", n)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show recorded state for the current network",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, rc *runner.RunContext, st *store.Store) error {
			id, err := currentNetwork(cmd.Context(), rc, st)
			if err != nil {
				return err
			}
			rec, err := st.Get(id)
			if err != nil {
				return err
			}
			out := output.NewStreamingOutput(cmd.OutOrStdout(), false)
			output.WriteRecord(out, id.Fingerprint(), rec, time.Now())
			return nil
		}),
	})

	var (
		success    bool
		failure    bool
		paramsFile string
	)
	record := &cobra.Command{
		Use:   "record",
		Short: "Record a connection attempt on the current network",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if success == failure {
				return errors.New("invalid argument: exactly one of --success or --failure is required")
			}
			return nil
		},
		RunE: withStore(func(cmd *cobra.Command, rc *runner.RunContext, st *store.Store) error {
			var params []byte
			if paramsFile != "" {
				b, err := os.ReadFile(paramsFile)
				if err != nil {
					return fmt.Errorf("read dial parameters: %w", err)
				}
				params = b
			}

			id, err := currentNetwork(cmd.Context(), rc, st)
			if err != nil {
				return err
			}
			rec, err := st.RecordAttempt(id, success, params)
			if err != nil {
				return err
			}
			out := output.NewStreamingOutput(cmd.OutOrStdout(), false)
			output.WriteRecord(out, id.Fingerprint(), rec, time.Now())
			return nil
		}),
	}
	record.Flags().BoolVar(&success, "success", false, "the attempt connected")
	record.Flags().BoolVar(&failure, "failure", false, "the attempt failed")
	record.Flags().StringVar(&paramsFile, "params-file", "", "dial parameters to keep for this network (stored on success only)")
	cmd.AddCommand(record)

	cmd.AddCommand(&cobra.Command{
		Use:   "forget",
		Short: "Delete recorded state for the current network",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, rc *runner.RunContext, st *store.Store) error {
			id, err := currentNetwork(cmd.Context(), rc, st)
			if err != nil {
				return err
			}
			if err := st.Delete(id); err != nil {
				return err
			}
			out := output.NewStreamingOutput(cmd.OutOrStdout(), false)
			out.Success("Forgot %s", id.Fingerprint())
			return nil
		}),
	})

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete state for networks not seen recently",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("invalid argument: --older-than must be positive, got %s", olderThan)
			}
			return nil
		},
		RunE: withStore(func(cmd *cobra.Command, rc *runner.RunContext, st *store.Store) error {
			removed, err := st.Prune(olderThan)
			if err != nil {
				return err
			}
			out := output.NewStreamingOutput(cmd.OutOrStdout(), false)
			out.Success("Pruned %d networks not seen in %s", removed, olderThan)
			return nil
		}),
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "remove networks last seen before this age")
	cmd.AddCommand(prune)

	return cmd
}
