package reachability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R167/netid/netid"
)

type fakeCommand struct {
	out  string
	err  error
	name string
	args []string
}

func (f *fakeCommand) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("command run without deadline")
	}
	return []byte(f.out), f.err
}

func newTestQuerier(goos string, cmd *fakeCommand) *SystemQuerier {
	q := NewSystemQuerier(WithQuerierCommandRunner(cmd.run))
	q.goos = goos
	return q
}

func TestParseIWLink(t *testing.T) {
	connected := `Connected to 00:11:22:33:44:55 (on wlan0)
	SSID: home
	freq: 5180
	signal: -52 dBm
`
	got, err := parseIWLink(connected)
	require.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", got)

	_, err = parseIWLink("Not connected.\n")
	assert.ErrorIs(t, err, netid.ErrNotAvailable)

	_, err = parseIWLink("Connected to zz:zz (on wlan0)\n")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, netid.ErrNotAvailable)
}

func TestParseIPConfigSummary(t *testing.T) {
	summary := `<dictionary> {
  BSSID : a0:b1:c2:d3:e4:f5
  InterfaceType : WiFi
  SSID : home
}`
	got, err := parseIPConfigSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, "a0:b1:c2:d3:e4:f5", got)

	_, err = parseIPConfigSummary("<dictionary> {\n  BSSID : <redacted>\n}")
	assert.ErrorIs(t, err, netid.ErrNotAvailable)

	_, err = parseIPConfigSummary("<dictionary> {\n  InterfaceType : Ethernet\n}")
	assert.ErrorIs(t, err, netid.ErrNotAvailable)
}

func TestParseMMCLIOperator(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    netid.Carrier
		wantErr error
	}{
		{"two digit mnc", "modem.3gpp.operator-code : 23410\n", netid.Carrier{MCC: "234", MNC: "10"}, nil},
		{"three digit mnc", "modem.generic.state : connected\nmodem.3gpp.operator-code : 310260\n", netid.Carrier{MCC: "310", MNC: "260"}, nil},
		{"unknown operator", "modem.3gpp.operator-code : --\n", netid.Carrier{}, netid.ErrNotAvailable},
		{"missing key", "modem.generic.state : registered\n", netid.Carrier{}, netid.ErrNotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMMCLIOperator(tt.output)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseMMCLIOperator("modem.3gpp.operator-code : 31A26\n")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, netid.ErrNotAvailable)
}

func TestSystemQuerier_WiFiBSSID(t *testing.T) {
	cmd := &fakeCommand{out: "Connected to 00:11:22:33:44:55 (on wlan0)\n"}
	q := newTestQuerier("linux", cmd)

	got, err := q.WiFiBSSID("wlan0")
	require.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", got)
	assert.Equal(t, "iw", cmd.name)
	assert.Equal(t, []string{"dev", "wlan0", "link"}, cmd.args)

	cmd = &fakeCommand{out: "  BSSID : 00:11:22:33:44:66\n"}
	q = newTestQuerier("darwin", cmd)
	got, err = q.WiFiBSSID("en0")
	require.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:66", got)
	assert.Equal(t, "ipconfig", cmd.name)
}

func TestSystemQuerier_WiFiBSSIDErrors(t *testing.T) {
	q := newTestQuerier("linux", &fakeCommand{err: exec.ErrNotFound})
	_, err := q.WiFiBSSID("wlan0")
	assert.ErrorIs(t, err, netid.ErrNotAvailable, "missing tool is not a failure")

	q = newTestQuerier("linux", &fakeCommand{err: errors.New("command failed: -19 (No such device)")})
	_, err = q.WiFiBSSID("wlan0")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, netid.ErrNotAvailable)

	_, err = q.WiFiBSSID("")
	assert.ErrorIs(t, err, netid.ErrNotAvailable)

	_, err = q.WiFiBSSID("-h")
	assert.Error(t, err)

	q = newTestQuerier("windows", &fakeCommand{})
	_, err = q.WiFiBSSID("Wi-Fi")
	assert.ErrorIs(t, err, netid.ErrNotAvailable)
}

func TestSystemQuerier_CellularCarrier(t *testing.T) {
	q := newTestQuerier("linux", &fakeCommand{out: "modem.3gpp.operator-code : 310260\n"})
	got, err := q.CellularCarrier()
	require.NoError(t, err)
	assert.Equal(t, netid.Carrier{MCC: "310", MNC: "260"}, got)

	q = newTestQuerier("linux", &fakeCommand{err: fmt.Errorf("wrapped: %w", exec.ErrNotFound)})
	_, err = q.CellularCarrier()
	assert.ErrorIs(t, err, netid.ErrNotAvailable)

	q = newTestQuerier("linux", &fakeCommand{err: &exec.ExitError{Stderr: []byte("error: couldn't find modem")}})
	_, err = q.CellularCarrier()
	assert.ErrorIs(t, err, netid.ErrNotAvailable)

	q = newTestQuerier("darwin", &fakeCommand{})
	_, err = q.CellularCarrier()
	assert.ErrorIs(t, err, netid.ErrNotAvailable)
}

func TestSystemQuerier_InterfaceAddress(t *testing.T) {
	cidr := func(s string) net.Addr {
		ip, n, err := net.ParseCIDR(s)
		require.NoError(t, err)
		n.IP = ip
		return n
	}

	tests := []struct {
		name    string
		addrs   []net.Addr
		err     error
		want    netip.Addr
		wantErr error
	}{
		{
			name:  "ipv4 preferred",
			addrs: []net.Addr{cidr("fe80::1/64"), cidr("2001:db8::5/64"), cidr("192.168.1.20/24")},
			want:  netip.MustParseAddr("192.168.1.20"),
		},
		{
			name:  "ipv6 only",
			addrs: []net.Addr{cidr("fe80::1/64"), cidr("2001:db8::5/64")},
			want:  netip.MustParseAddr("2001:db8::5"),
		},
		{
			name:    "link-local only",
			addrs:   []net.Addr{cidr("fe80::1/64"), cidr("169.254.3.4/16")},
			wantErr: netid.ErrNotAvailable,
		},
		{
			name: "lookup failure",
			err:  errors.New("route ip+net: no such network interface"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewSystemQuerier()
			q.interfaceAddrs = func(string) ([]net.Addr, error) { return tt.addrs, tt.err }

			got, err := q.InterfaceAddress("eth0")
			switch {
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
				assert.NotErrorIs(t, err, netid.ErrNotAvailable)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSystemQuerier_WithResolver(t *testing.T) {
	q := newTestQuerier("linux", &fakeCommand{out: "Connected to 00:11:22:33:44:55 (on wlan0)\n"})
	r := &netid.Resolver{Querier: q}

	id, err := r.Resolve(netid.ReachableViaWiFi, "wlan0")
	require.NoError(t, err)
	assert.Equal(t, "WIFI-wlan0/00:11:22:33:44:55", id.Key())

	q = newTestQuerier("linux", &fakeCommand{err: errors.New("nl80211 not found")})
	r = &netid.Resolver{Querier: q}
	_, err = r.Resolve(netid.ReachableViaWiFi, "wlan0")
	var re *netid.ResolutionError
	assert.ErrorAs(t, err, &re)
}

func TestParseErrors_OmitRawValues(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		parse func() error
	}{
		{"iw", "f0:9f:c2:5a:17", func() error {
			_, err := parseIWLink("Connected to f0:9f:c2:5a:17 (on wlan0)\n")
			return err
		}},
		{"ipconfig", "f0:9f:c2:5a:17", func() error {
			_, err := parseIPConfigSummary("<dictionary> {\n  BSSID : f0:9f:c2:5a:17\n}")
			return err
		}},
		{"mmcli", "31A26", func() error {
			_, err := parseMMCLIOperator("modem.3gpp.operator-code : 31A26\n")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed")
			assert.NotContains(t, err.Error(), tt.raw)
		})
	}

	q := NewSystemQuerier()
	q.interfaceAddrs = func(string) ([]net.Addr, error) { return nil, errors.New("no such network interface") }
	_, err := q.InterfaceAddress("wlp2s0")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "wlp2s0")
}
