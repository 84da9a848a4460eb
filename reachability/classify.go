package reachability

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/R167/netid/internal/security"
	"github.com/R167/netid/netid"
)

// tunnelPrefixes are virtual interfaces that carry a VPN default route.
var tunnelPrefixes = []string{
	"utun",  // macOS/iOS VPN tunnels
	"tun",   // TUN interfaces (generic)
	"tap",   // TAP interfaces
	"wg",    // WireGuard
	"ipsec", // IPsec
	"ppp",   // PPP/L2TP/PPTP
	"gif",   // Generic tunnel interface
	"stf",   // 6to4 tunnel interface
}

var cellularPrefixes = []string{
	"pdp_ip", // iOS cellular data
	"rmnet",  // Qualcomm modems
	"ccmni",  // MediaTek modems
	"wwan",   // Linux WWAN
	"wwp",    // Linux predictable WWAN names
}

var wifiPrefixes = []string{
	"wl",   // wlan0, wlp2s0
	"wifi", // wifi0
	"ath",  // Atheros
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// classify maps the default route interface to a reachability class.
func (p *Provider) classify(ctx context.Context, iface net.Interface) netid.Reachability {
	if iface.Flags&net.FlagLoopback != 0 {
		return netid.ReachableViaLoopback
	}

	name := iface.Name
	if r, ok := p.sysfsClass(name); ok {
		return r
	}
	if hasAnyPrefix(name, cellularPrefixes) {
		return netid.ReachableViaCellular
	}
	if hasAnyPrefix(name, tunnelPrefixes) || iface.Flags&net.FlagPointToPoint != 0 {
		return netid.ReachableViaVPN
	}
	if p.goos == "darwin" && strings.HasPrefix(name, "en") {
		if r, ok := p.darwinHardwarePort(ctx, name); ok {
			return r
		}
	}
	if hasAnyPrefix(name, wifiPrefixes) {
		return netid.ReachableViaWiFi
	}
	return netid.ReachableViaWired
}

// sysfsClass inspects /sys/class/net/<name> on Linux.
func (p *Provider) sysfsClass(name string) (netid.Reachability, bool) {
	if p.sysfsRoot == "" || security.ValidateInterfaceName(name) != nil {
		return netid.NotReachable, false
	}
	base := filepath.Join(p.sysfsRoot, name)

	for _, marker := range []string{"wireless", "phy80211"} {
		if _, err := os.Stat(filepath.Join(base, marker)); err == nil {
			return netid.ReachableViaWiFi, true
		}
	}

	f, err := os.Open(filepath.Join(base, "uevent"))
	if err != nil {
		return netid.NotReachable, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "DEVTYPE=wwan":
			return netid.ReachableViaCellular, true
		case "DEVTYPE=wlan":
			return netid.ReachableViaWiFi, true
		}
	}
	return netid.NotReachable, false
}

func (p *Provider) darwinHardwarePort(ctx context.Context, name string) (netid.Reachability, bool) {
	out, err := p.run(ctx, "networksetup", "-listallhardwareports")
	if err != nil {
		p.log.WithError(err).Debug("networksetup failed")
		return netid.NotReachable, false
	}

	port, ok := parseHardwarePorts(string(out))[name]
	if !ok {
		return netid.NotReachable, false
	}
	switch {
	case strings.Contains(port, "Wi-Fi"), strings.Contains(port, "AirPort"):
		return netid.ReachableViaWiFi, true
	case strings.Contains(port, "iPhone"), strings.Contains(port, "iPad"):
		return netid.ReachableViaCellular, true
	}
	return netid.ReachableViaWired, true
}

// parseHardwarePorts maps device names to hardware port names from
// `networksetup -listallhardwareports` output.
func parseHardwarePorts(output string) map[string]string {
	ports := make(map[string]string)
	var port string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Hardware Port:"); ok {
			port = strings.TrimSpace(v)
			continue
		}
		if v, ok := strings.CutPrefix(line, "Device:"); ok && port != "" {
			ports[strings.TrimSpace(v)] = port
			port = ""
		}
	}
	return ports
}
