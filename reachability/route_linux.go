//go:build linux

package reachability

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

func systemDefaultRoute(ctx context.Context, run CommandRunner) (defaultRoute, error) {
	route, err := netlinkDefaultRoute()
	if err == nil || errors.Is(err, errNoDefaultRoute) {
		return route, err
	}

	out, cmdErr := run(ctx, "ip", "route", "show", "default")
	if cmdErr != nil {
		return defaultRoute{}, fmt.Errorf("netlink: %v; ip route: %w", err, cmdErr)
	}
	return parseIPRouteDefault(string(out))
}

// netlinkDefaultRoute prefers an IPv4 default route and falls back to IPv6.
func netlinkDefaultRoute() (defaultRoute, error) {
	for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
		route, err := netlinkFamilyDefault(family)
		if errors.Is(err, errNoDefaultRoute) {
			continue
		}
		return route, err
	}
	return defaultRoute{}, errNoDefaultRoute
}

func netlinkFamilyDefault(family int) (defaultRoute, error) {
	rib, err := syscall.NetlinkRIB(syscall.RTM_GETROUTE, family)
	if err != nil {
		return defaultRoute{}, os.NewSyscallError("netlinkrib", err)
	}
	msgs, err := syscall.ParseNetlinkMessage(rib)
	if err != nil {
		return defaultRoute{}, os.NewSyscallError("parsenetlinkmessage", err)
	}

	found := false
	var best defaultRoute

loop:
	for i := range msgs {
		m := &msgs[i]
		switch m.Header.Type {
		case unix.NLMSG_DONE:
			break loop
		case unix.RTM_NEWROUTE:
		default:
			continue
		}
		if len(m.Data) < unix.SizeofRtMsg {
			continue
		}

		rtm := (*unix.RtMsg)(unsafe.Pointer(&m.Data[0]))
		if rtm.Dst_len != 0 || rtm.Table != unix.RT_TABLE_MAIN || rtm.Type != unix.RTN_UNICAST {
			continue
		}

		attrs, err := syscall.ParseNetlinkRouteAttr(m)
		if err != nil {
			return defaultRoute{}, os.NewSyscallError("parsenetlinkrouteattr", err)
		}

		route := defaultRoute{}
		for _, attr := range attrs {
			if len(attr.Value) < 4 {
				continue
			}
			switch attr.Attr.Type {
			case unix.RTA_OIF:
				route.Index = int(binary.NativeEndian.Uint32(attr.Value))
			case unix.RTA_PRIORITY:
				route.Metric = int(binary.NativeEndian.Uint32(attr.Value))
			}
		}
		if route.Index == 0 {
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
