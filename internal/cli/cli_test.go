package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R167/netid/netid"
	"github.com/R167/netid/reachability"
	"github.com/R167/netid/store"
)

// staticSampler reports a fixed attachment without touching the system.
type staticSampler struct {
	snap reachability.Snapshot
}

func (s staticSampler) Sample(ctx context.Context) (reachability.Snapshot, error) {
	return s.snap, nil
}

func vpnOptions() *Options {
	return &Options{
		isTerminal: isTerminal,
		sampler:    staticSampler{snap: reachability.Snapshot{Reachability: netid.ReachableViaVPN, DefaultInterface: "tun7", InterfaceIndex: 9}},
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, &Options{isTerminal: isTerminal}, args...)
}

func executeWith(t *testing.T, opts *Options, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func seedStore(t *testing.T, path string) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	for _, iface := range []string{"en0", "en1"} {
		id, err := netid.Resolve(netid.ReachableViaWiFi, iface)
		require.NoError(t, err)
		_, err = st.RecordAttempt(id, true, nil)
		require.NoError(t, err)
	}
}

func TestStateList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	seedStore(t, path)

	out, err := execute(t, "state", "list", "--state-file", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Known Networks")
	assert.Equal(t, 2, strings.Count(out, "attempts=1 successes=1 failures=0"))
	assert.NotContains(t, out, "WIFI-en0")
}

func TestStatePrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	seedStore(t, path)

	out, err := execute(t, "state", "prune", "--state-file", path, "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 0 networks")

	_, err = execute(t, "state", "prune", "--state-file", path, "--older-than=-1s")
	assert.Error(t, err)
}

func TestStateDisabled(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "netid.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level = \"warn\"\n"), 0o600))

	_, err := execute(t, "state", "list", "--config", cfgPath, "--state-file", "")
	assert.ErrorIs(t, err, errStateDisabled)
}

func TestResolveRevealRequiresTerminal(t *testing.T) {
	_, err := execute(t, "resolve", "--reveal")
	assert.ErrorIs(t, err, errRevealNotTerminal)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "netid.toml")
	statePath := filepath.Join(dir, "state.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
interval = "30s"
log_level = "warn"
`), 0o600))

	_, err := execute(t, "state", "list", "--config", cfgPath, "--state-file", statePath, "--log-level", "debug")
	require.NoError(t, err)

	_, err = execute(t, "state", "list", "--config", cfgPath, "--state-file", statePath, "--interval", "1ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := execute(t, "state", "list", "--metrics-addr", "8.8.8.8:9464")
	assert.Error(t, err)

	_, err = execute(t, "state", "list", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestStateRecordShowForget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	params := filepath.Join(dir, "params.bin")
	require.NoError(t, os.WriteFile(params, []byte("server-entry-17"), 0o600))

	_, err := executeWith(t, vpnOptions(), "state", "show", "--state-file", path)
	assert.ErrorIs(t, err, store.ErrNotFound)

	out, err := executeWith(t, vpnOptions(), "state", "record", "--failure", "--state-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "attempts=1 successes=0 failures=1")

	out, err = executeWith(t, vpnOptions(), "state", "record", "--success", "--params-file", params, "--state-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "attempts=2 successes=1 failures=1")

	out, err = executeWith(t, vpnOptions(), "state", "show", "--state-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Network State")
	assert.Contains(t, out, "vpn")
	assert.Contains(t, out, "dial parameters: 15 bytes")
	assert.NotContains(t, out, "server-entry-17")
	assert.NotContains(t, out, "tun7")

	out, err = executeWith(t, vpnOptions(), "state", "list", "--state-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 networks recorded")

	out, err = executeWith(t, vpnOptions(), "state", "forget", "--state-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot netid:")

	_, err = executeWith(t, vpnOptions(), "state", "show", "--state-file", path)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStateRecord_RequiresOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	_, err := executeWith(t, vpnOptions(), "state", "record", "--state-file", path)
	assert.Error(t, err)

	_, err = executeWith(t, vpnOptions(), "state", "record", "--success", "--failure", "--state-file", path)
	assert.Error(t, err)
}

func TestStateShow_NoConnectivity(t *testing.T) {
	opts := &Options{
		isTerminal: isTerminal,
		sampler:    staticSampler{snap: reachability.Snapshot{Reachability: netid.NotReachable}},
	}
	_, err := executeWith(t, opts, "state", "show", "--state-file", filepath.Join(t.TempDir(), "state.db"))
	assert.ErrorIs(t, err, errNoNetwork)
}
