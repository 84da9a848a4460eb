//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package reachability

import (
	"context"
	"errors"
)

var errNoNativeRoutes = errors.New("no native routing table query on this platform")

// systemDefaultRoute defers to the provider's UDP probe.
func systemDefaultRoute(ctx context.Context, run CommandRunner) (defaultRoute, error) {
	return defaultRoute{}, errNoNativeRoutes
}
