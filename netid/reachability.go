package netid

import (
	"fmt"
	"strings"
)

// Reachability is the platform-reported connectivity status of the device.
type Reachability int

const (
	NotReachable Reachability = iota
	ReachableViaWiFi
	ReachableViaCellular
	ReachableViaWired
	ReachableViaLoopback
	ReachableViaVPN
)

var reachabilityNames = map[Reachability]string{
	NotReachable:         "none",
	ReachableViaWiFi:     "wifi",
	ReachableViaCellular: "cellular",
	ReachableViaWired:    "wired",
	ReachableViaLoopback: "loopback",
	ReachableViaVPN:      "vpn",
}

// class prefixes used in composite keys
var reachabilityClasses = map[Reachability]string{
	ReachableViaWiFi:     "WIFI",
	ReachableViaCellular: "MOBILE",
	ReachableViaWired:    "WIRED",
	ReachableViaLoopback: "LOOPBACK",
	ReachableViaVPN:      "VPN",
}

func (r Reachability) String() string {
	if name, ok := reachabilityNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reachability(%d)", int(r))
}

// Reachable reports whether r is a known connected variant.
func (r Reachability) Reachable() bool {
	_, ok := reachabilityClasses[r]
	return ok
}

// Valid reports whether r is one of the declared variants.
func (r Reachability) Valid() bool {
	_, ok := reachabilityNames[r]
	return ok
}

// ParseReachability parses the names produced by Reachability.String.
func ParseReachability(s string) (Reachability, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range reachabilityNames {
		if name == s {
			return r, nil
		}
	}
	return NotReachable, fmt.Errorf("unknown reachability %q", s)
}
