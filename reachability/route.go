package reachability

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parseIPRouteDefault picks the lowest-metric route from `ip route show
// default` output.
func parseIPRouteDefault(output string) (defaultRoute, error) {
	found := false
	var best defaultRoute

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}

		route := defaultRoute{}
		for i := 1; i+1 < len(fields); i++ {
			switch fields[i] {
			case "dev":
				route.Name = fields[i+1]
			case "metric":
				if m, err := strconv.Atoi(fields[i+1]); err == nil {
					route.Metric = m
				}
			}
		}
		if route.Name == "" {
			continue
		}
		if !found || route.Metric < best.Metric {
			best = route
			found = true
		}
	}

	if !found {
		return defaultRoute{}, errNoDefaultRoute
	}
	return best, nil
}

// parseNetstatDefault finds the default route in `netstat -rn` output. The
// interface column is located from the header, which differs between
// platforms (Netif on darwin/FreeBSD, Iface on Linux/OpenBSD).
func parseNetstatDefault(output string) (defaultRoute, error) {
	ifaceCol := -1

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "Destination" {
			ifaceCol = -1
			for i, f := range fields {
				if f == "Netif" || f == "Iface" || f == "Interface" {
					ifaceCol = i
				}
			}
			continue
		}
		if ifaceCol < 0 || len(fields) <= ifaceCol {
			continue
		}
		if fields[0] == "default" || fields[0] == "0.0.0.0" {
			return defaultRoute{Name: fields[ifaceCol]}, nil
		}
	}

	return defaultRoute{}, errNoDefaultRoute
}

// dialDefaultRoute finds the egress interface by connecting a UDP socket to
// probe and matching the chosen local address. Connecting a UDP socket
// sends no packet.
func dialDefaultRoute(probe string, interfaces func() ([]net.Interface, error)) (defaultRoute, error) {
	conn, err := net.Dial("udp", probe)
	if err != nil {
		return defaultRoute{}, errNoDefaultRoute
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return defaultRoute{}, fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}

	ifaces, err := interfaces()
	if err != nil {
		return defaultRoute{}, fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.Equal(local.IP) {
				return defaultRoute{Index: iface.Index, Name: iface.Name}, nil
			}
		}
	}

	return defaultRoute{}, fmt.Errorf("no interface holds local address %s", local.IP)
}
