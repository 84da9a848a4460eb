package reachability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/R167/netid/netid"
)

// DefaultProbeAddress is dialed (UDP, nothing is sent) to find the egress
// interface on platforms without a native routing table query.
const DefaultProbeAddress = "8.8.8.8:80"

const defaultSysfsRoot = "/sys/class/net"

var errNoDefaultRoute = errors.New("no default route")

// Snapshot is one sample of the platform network state.
type Snapshot struct {
	Reachability     netid.Reachability
	DefaultInterface string
	InterfaceIndex   int
}

// CommandRunner runs an external command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type defaultRoute struct {
	Index  int
	Name   string
	Metric int
}

// Provider samples reachability. It keeps no state between samples.
type Provider struct {
	log          *logrus.Entry
	probeAddress string
	sysfsRoot    string
	goos         string
	run          CommandRunner

	findRoute  func(ctx context.Context) (defaultRoute, error)
	interfaces func() ([]net.Interface, error)
}

type Option func(*Provider)

func WithLogger(log *logrus.Entry) Option {
	return func(p *Provider) {
		p.log = log
	}
}

func WithProbeAddress(addr string) Option {
	return func(p *Provider) {
		p.probeAddress = addr
	}
}

func WithCommandRunner(run CommandRunner) Option {
	return func(p *Provider) {
		p.run = run
	}
}

func WithSysfsRoot(root string) Option {
	return func(p *Provider) {
		p.sysfsRoot = root
	}
}

func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		log:          logrus.WithField("component", "reachability"),
		probeAddress: DefaultProbeAddress,
		sysfsRoot:    defaultSysfsRoot,
		goos:         runtime.GOOS,
		run:          execRunner,
		interfaces:   net.Interfaces,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.findRoute == nil {
		p.findRoute = p.systemRoute
	}
	return p
}

func (p *Provider) systemRoute(ctx context.Context) (defaultRoute, error) {
	route, err := systemDefaultRoute(ctx, p.run)
	if err == nil || errors.Is(err, errNoDefaultRoute) {
		return route, err
	}
	p.log.WithError(err).Debug("native route lookup failed, probing with udp")
	return dialDefaultRoute(p.probeAddress, p.interfaces)
}

// Sample returns the current reachability and default route interface.
// No default route, or a default interface that is down, is reported as
// NotReachable without error.
func (p *Provider) Sample(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	route, err := p.findRoute(ctx)
	if errors.Is(err, errNoDefaultRoute) {
		return Snapshot{Reachability: netid.NotReachable}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reachability: default route: %w", err)
	}

	iface, err := p.lookupInterface(route)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reachability: %w", err)
	}
	if iface.Flags&net.FlagUp == 0 {
		p.log.WithField("interface", iface.Name).Debug("default route interface is down")
		return Snapshot{Reachability: netid.NotReachable}, nil
	}

	return Snapshot{
		Reachability:     p.classify(ctx, iface),
		DefaultInterface: iface.Name,
		InterfaceIndex:   iface.Index,
	}, nil
}

func (p *Provider) lookupInterface(route defaultRoute) (net.Interface, error) {
	ifaces, err := p.interfaces()
	if err != nil {
		return net.Interface{}, fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if route.Index != 0 && iface.Index == route.Index {
			return iface, nil
		}
		if route.Index == 0 && route.Name != "" && iface.Name == route.Name {
			return iface, nil
		}
	}
	if route.Name != "" {
		return net.Interface{}, fmt.Errorf("default route interface %q not found", route.Name)
	}
	return net.Interface{}, fmt.Errorf("default route interface index %d not found", route.Index)
}
