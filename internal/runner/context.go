package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/R167/netid/internal/config"
	"github.com/R167/netid/internal/logging"
	"github.com/R167/netid/internal/metrics"
	"github.com/R167/netid/internal/monitor"
	"github.com/R167/netid/internal/notice"
	"github.com/R167/netid/netid"
	"github.com/R167/netid/reachability"
	"github.com/R167/netid/store"
)

// RunContext carries shared resources and configuration for a command.
type RunContext struct {
	Ctx           context.Context
	Config        *config.Config
	Logger        *log.Logger
	Registerer    prometheus.Registerer
	NoticeHandler notice.HandlerFunc

	// Sampler overrides the system reachability provider.
	Sampler monitor.Sampler
}

func NewRunContext(ctx context.Context) *RunContext {
	return &RunContext{
		Ctx:    ctx,
		Config: config.Default(),
		Logger: log.StandardLogger(),
	}
}

func (rc *RunContext) WithConfig(cfg *config.Config) *RunContext {
	rc.Config = cfg
	return rc
}

func (rc *RunContext) WithLogger(logger *log.Logger) *RunContext {
	rc.Logger = logger
	return rc
}

func (rc *RunContext) WithRegisterer(reg prometheus.Registerer) *RunContext {
	rc.Registerer = reg
	return rc
}

func (rc *RunContext) WithNoticeHandler(fn notice.HandlerFunc) *RunContext {
	rc.NoticeHandler = fn
	return rc
}

func (rc *RunContext) WithSampler(s monitor.Sampler) *RunContext {
	rc.Sampler = s
	return rc
}

func (rc *RunContext) Provider() *reachability.Provider {
	return reachability.NewProvider(
		reachability.WithLogger(logging.Component(rc.Logger, "reachability")),
		reachability.WithProbeAddress(rc.Config.ProbeAddress),
	)
}

// Resolver builds a resolver over the system querier. Fingerprints are
// keyed with secret.
func (rc *RunContext) Resolver(secret []byte) *netid.Resolver {
	return &netid.Resolver{
		Querier: reachability.NewSystemQuerier(reachability.WithCommandTimeout(rc.Config.CommandTimeout)),
		Secret:  secret,
	}
}

// Secret returns the install secret kept in st. With state disabled a
// process-lifetime secret is generated, so fingerprints are stable only
// within one run.
func (rc *RunContext) Secret(st *store.Store) ([]byte, error) {
	if st != nil {
		return st.Secret(), nil
	}
	return netid.NewSecret()
}

// OpenStore opens the configured state file. It returns a nil store when
// state is disabled.
func (rc *RunContext) OpenStore() (*store.Store, error) {
	if rc.Config.StateFile == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(rc.Config.StateFile), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return store.Open(rc.Config.StateFile)
}

// Metrics returns a collector when a metrics address is configured.
func (rc *RunContext) Metrics() (*metrics.Collector, error) {
	if rc.Config.MetricsAddr == "" {
		return nil, nil
	}
	return metrics.NewCollector(rc.Registerer)
}

// Monitor builds a monitor over the system provider and resolver. st and
// collector may be nil.
func (rc *RunContext) Monitor(st *store.Store, collector *metrics.Collector) (*monitor.Monitor, error) {
	secret, err := rc.Secret(st)
	if err != nil {
		return nil, err
	}

	opts := []monitor.Option{
		monitor.WithInterval(rc.Config.Interval),
		monitor.WithLogger(logging.Component(rc.Logger, "monitor")),
		monitor.WithMetrics(collector),
		monitor.WithEmitter(notice.NewEmitter(rc.NoticeHandler)),
	}
	if st != nil {
		opts = append(opts, monitor.WithStore(st))
	}
	return monitor.New(rc.sampler(), rc.Resolver(secret), opts...), nil
}

// Identify samples once and resolves the current network keyed with the
// secret in st. Unlike a monitor refresh it leaves the store untouched.
func (rc *RunContext) Identify(ctx context.Context, st *store.Store) (reachability.Snapshot, netid.ID, error) {
	secret, err := rc.Secret(st)
	if err != nil {
		return reachability.Snapshot{}, netid.ID{}, err
	}
	snap, err := rc.sampler().Sample(ctx)
	if err != nil {
		return reachability.Snapshot{}, netid.ID{}, err
	}
	id, err := rc.Resolver(secret).Resolve(snap.Reachability, snap.DefaultInterface)
	if err != nil {
		return snap, netid.ID{}, err
	}
	return snap, id, nil
}

func (rc *RunContext) sampler() monitor.Sampler {
	if rc.Sampler != nil {
		return rc.Sampler
	}
	return rc.Provider()
}
