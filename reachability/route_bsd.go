//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package reachability

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/net/route"
)

func systemDefaultRoute(ctx context.Context, run CommandRunner) (defaultRoute, error) {
	r, err := ribDefaultRoute()
	if err == nil || errors.Is(err, errNoDefaultRoute) {
		return r, err
	}

	out, cmdErr := run(ctx, "netstat", "-rn", "-f", "inet")
	if cmdErr != nil {
		return defaultRoute{}, fmt.Errorf("routing socket: %v; netstat: %w", err, cmdErr)
	}
	return parseNetstatDefault(string(out))
}

// ribDefaultRoute returns the first IPv4 default route, or the first IPv6
// one when there is no IPv4 default.
func ribDefaultRoute() (defaultRoute, error) {
	rib, err := route.FetchRIB(syscall.AF_UNSPEC, route.RIBTypeRoute, 0)
	if err != nil {
		return defaultRoute{}, fmt.Errorf("fetch rib: %w", err)
	}
	msgs, err := route.ParseRIB(route.RIBTypeRoute, rib)
	if err != nil {
		return defaultRoute{}, fmt.Errorf("parse rib: %w", err)
	}

	var v6 *defaultRoute
	for _, msg := range msgs {
		rm, ok := msg.(*route.RouteMessage)
		if !ok || rm.Flags&syscall.RTF_UP == 0 || rm.Flags&syscall.RTF_GATEWAY == 0 {
			continue
		}
		if len(rm.Addrs) <= syscall.RTAX_NETMASK || rm.Index == 0 {
			continue
		}

		switch dst := rm.Addrs[syscall.RTAX_DST].(type) {
		case *route.Inet4Addr:
			if dst.IP == [4]byte{} && zeroMask(rm.Addrs[syscall.RTAX_NETMASK]) {
				return defaultRoute{Index: rm.Index}, nil
			}
		case *route.Inet6Addr:
			if dst.IP == [16]byte{} && zeroMask(rm.Addrs[syscall.RTAX_NETMASK]) && v6 == nil {
				v6 = &defaultRoute{Index: rm.Index}
			}
		}
	}

	if v6 != nil {
		return *v6, nil
	}
	return defaultRoute{}, errNoDefaultRoute
}

func zeroMask(a route.Addr) bool {
	switch m := a.(type) {
	case nil:
		return true
	case *route.Inet4Addr:
		return m.IP == [4]byte{}
	case *route.Inet6Addr:
		return m.IP == [16]byte{}
	}
	return false
}
