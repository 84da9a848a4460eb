// Package metrics exposes Prometheus metrics for the network monitor.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R167/netid/netid"
)

var reachabilityValues = []netid.Reachability{
	netid.NotReachable,
	netid.ReachableViaWiFi,
	netid.ReachableViaCellular,
	netid.ReachableViaWired,
	netid.ReachableViaLoopback,
	netid.ReachableViaVPN,
}

// Collector bundles the monitor's metrics. A nil *Collector records
// nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Resolutions         *prometheus.CounterVec
	ResolutionErrors    prometheus.Counter
	NetworkChanges      prometheus.Counter
	CurrentReachability *prometheus.GaugeVec
}

// NewCollector registers metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	resolutions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netid_resolutions_total",
		Help: "Total number of network identifier resolutions, labeled by reachability.",
	}, []string{"reachability"}), "netid_resolutions_total")
	if err != nil {
		return nil, err
	}

	resolutionErrors, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netid_resolution_errors_total",
		Help: "Total number of failed samples or resolutions.",
	}), "netid_resolution_errors_total")
	if err != nil {
		return nil, err
	}

	changes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netid_network_changes_total",
		Help: "Total number of observed network identifier changes.",
	}), "netid_network_changes_total")
	if err != nil {
		return nil, err
	}

	current, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netid_current_reachability",
		Help: "Set to 1 for the current reachability, 0 otherwise.",
	}, []string{"reachability"}), "netid_current_reachability")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		Resolutions:         resolutions,
		ResolutionErrors:    resolutionErrors,
		NetworkChanges:      changes,
		CurrentReachability: current,
	}, nil
}

func (c *Collector) ObserveResolution(r netid.Reachability) {
	if c == nil {
		return
	}
	c.Resolutions.WithLabelValues(r.String()).Inc()
}

func (c *Collector) ObserveError() {
	if c == nil {
		return
	}
	c.ResolutionErrors.Inc()
}

// ObserveChange counts a change and moves the current reachability gauge.
func (c *Collector) ObserveChange(r netid.Reachability) {
	if c == nil {
		return
	}
	c.NetworkChanges.Inc()
	for _, v := range reachabilityValues {
		value := 0.0
		if v == r {
			value = 1
		}
		c.CurrentReachability.WithLabelValues(v.String()).Set(value)
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
