package reachability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/R167/netid/internal/security"
	"github.com/R167/netid/netid"
)

// DefaultCommandTimeout bounds each external command run by SystemQuerier.
const DefaultCommandTimeout = 2 * time.Second

// SystemQuerier implements netid.Querier using host tools and interface
// address lookup.
type SystemQuerier struct {
	run     CommandRunner
	timeout time.Duration
	goos    string

	interfaceAddrs func(name string) ([]net.Addr, error)
}

var _ netid.Querier = (*SystemQuerier)(nil)

type QuerierOption func(*SystemQuerier)

func WithQuerierCommandRunner(run CommandRunner) QuerierOption {
	return func(q *SystemQuerier) {
		q.run = run
	}
}

func WithCommandTimeout(timeout time.Duration) QuerierOption {
	return func(q *SystemQuerier) {
		q.timeout = timeout
	}
}

func NewSystemQuerier(opts ...QuerierOption) *SystemQuerier {
	q := &SystemQuerier{
		run:            execRunner,
		timeout:        DefaultCommandTimeout,
		goos:           runtime.GOOS,
		interfaceAddrs: interfaceAddrs,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}

func (q *SystemQuerier) command(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	out, err := q.run(ctx, name, args...)
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", name, netid.ErrNotAvailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// WiFiBSSID returns the BSSID of the access point the interface is
// associated with.
func (q *SystemQuerier) WiFiBSSID(iface string) (string, error) {
	if iface == "" {
		return "", netid.ErrNotAvailable
	}
	if err := security.ValidateInterfaceName(iface); err != nil {
		return "", err
	}

	switch q.goos {
	case "linux", "android":
		out, err := q.command("iw", "dev", iface, "link")
		if err != nil {
			return "", err
		}
		return parseIWLink(string(out))
	case "darwin":
		out, err := q.command("ipconfig", "getsummary", iface)
		if err != nil {
			return "", err
		}
		return parseIPConfigSummary(string(out))
	}
	return "", netid.ErrNotAvailable
}

// CellularCarrier returns the operator MCC/MNC reported by ModemManager.
func (q *SystemQuerier) CellularCarrier() (netid.Carrier, error) {
	if q.goos != "linux" {
		return netid.Carrier{}, netid.ErrNotAvailable
	}

	out, err := q.command("mmcli", "-m", "any", "--output-keyvalue")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "couldn't find") {
			return netid.Carrier{}, netid.ErrNotAvailable
		}
		return netid.Carrier{}, err
	}
	return parseMMCLIOperator(string(out))
}

// InterfaceAddress returns the first global unicast IPv4 address of the
// interface, or the first global unicast IPv6 address when it has no IPv4.
func (q *SystemQuerier) InterfaceAddress(iface string) (netip.Addr, error) {
	addrs, err := q.interfaceAddrs(iface)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface addresses: %w", err)
	}

	var v6 netip.Addr
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.IsGlobalUnicast() {
			continue
		}
		if ip.Is4() {
			return ip, nil
		}
		if !v6.IsValid() {
			v6 = ip
		}
	}

	if v6.IsValid() {
		return v6, nil
	}
	return netip.Addr{}, netid.ErrNotAvailable
}

// parseIWLink extracts the BSSID from `iw dev <iface> link` output.
func parseIWLink(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Not connected") {
			return "", netid.ErrNotAvailable
		}
		if rest, ok := strings.CutPrefix(line, "Connected to "); ok {
			fields := strings.Fields(rest)
			if len(fields) > 0 {
				if _, err := net.ParseMAC(fields[0]); err != nil {
					return "", errors.New("iw: malformed bssid")
				}
				return fields[0], nil
			}
		}
	}
	return "", netid.ErrNotAvailable
}

// parseIPConfigSummary extracts the BSSID from `ipconfig getsummary` output.
func parseIPConfigSummary(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, " : ")
		if !ok || strings.TrimSpace(key) != "BSSID" {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.Contains(value, "redacted") {
			return "", netid.ErrNotAvailable
		}
		if _, err := net.ParseMAC(value); err != nil {
			return "", errors.New("ipconfig: malformed bssid")
		}
		return value, nil
	}
	return "", netid.ErrNotAvailable
}

// parseMMCLIOperator extracts MCC/MNC from `mmcli --output-keyvalue` output.
func parseMMCLIOperator(output string) (netid.Carrier, error) {
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "modem.3gpp.operator-code" {
			continue
		}
		code := strings.TrimSpace(value)
		if code == "" || code == "--" {
			return netid.Carrier{}, netid.ErrNotAvailable
		}
		if len(code) < 5 || len(code) > 6 {
			return netid.Carrier{}, errors.New("mmcli: malformed operator code")
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				return netid.Carrier{}, errors.New("mmcli: malformed operator code")
			}
		}
		return netid.Carrier{MCC: code[:3], MNC: code[3:]}, nil
	}
	return netid.Carrier{}, netid.ErrNotAvailable
}
