// Package monitor tracks the current network identifier over time.
//
// A Monitor samples reachability on an interval, resolves an identifier for
// each sample and reports changes through notices, metrics, the state store
// and an optional callback. The current identifier is available to other
// goroutines through GetNetworkID.
package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/R167/netid/internal/metrics"
	"github.com/R167/netid/internal/notice"
	"github.com/R167/netid/netid"
	"github.com/R167/netid/reachability"
	"github.com/R167/netid/store"
)

const DefaultInterval = 5 * time.Second

type Sampler interface {
	Sample(ctx context.Context) (reachability.Snapshot, error)
}

type Resolver interface {
	Resolve(r netid.Reachability, defaultInterface string) (netid.ID, error)
}

// StateStore records that a network was seen.
type StateStore interface {
	Touch(id netid.ID, r netid.Reachability) (store.Record, error)
}

// State is the most recent successful resolution.
type State struct {
	Snapshot reachability.Snapshot
	ID       netid.ID

	// Known is set when the state store had seen this network before the
	// current attachment.
	Known bool
}

type Monitor struct {
	sampler  Sampler
	resolver Resolver
	interval time.Duration
	log      *log.Entry
	emitter  *notice.Emitter
	metrics  *metrics.Collector
	store    StateStore
	onChange func(State)

	// refreshMu serializes the compare and swap of current so concurrent
	// refreshes announce a change once.
	refreshMu sync.Mutex

	mu      sync.RWMutex
	current State
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

func WithLogger(l *log.Entry) Option {
	return func(m *Monitor) { m.log = l }
}

func WithEmitter(e *notice.Emitter) Option {
	return func(m *Monitor) { m.emitter = e }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(m *Monitor) { m.metrics = c }
}

func WithStore(s StateStore) Option {
	return func(m *Monitor) { m.store = s }
}

// OnChange registers fn to run after each identifier change. fn runs on the
// monitor goroutine and must not block.
func OnChange(fn func(State)) Option {
	return func(m *Monitor) { m.onChange = fn }
}

func New(sampler Sampler, resolver Resolver, opts ...Option) *Monitor {
	m := &Monitor{
		sampler:  sampler,
		resolver: resolver,
		interval: DefaultInterval,
		log:      log.WithField("component", "monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetNetworkID returns the current identifier, or the zero ID before the
// first successful refresh.
func (m *Monitor) GetNetworkID() netid.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.ID
}

func (m *Monitor) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Run refreshes immediately and then on every interval until ctx is done.
// Refresh failures are reported and retried on the next tick.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.WithField("interval", m.interval).Info("Monitoring network identity")
	for {
		m.Refresh(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Refresh performs one sample and resolution. On failure the previous
// identifier is kept and returned along with the error.
func (m *Monitor) Refresh(ctx context.Context) (State, error) {
	snap, err := m.sampler.Sample(ctx)
	if err != nil {
		return m.fail("sample", err)
	}

	id, err := m.resolver.Resolve(snap.Reachability, snap.DefaultInterface)
	if err != nil {
		return m.fail("resolve", err)
	}
	m.metrics.ObserveResolution(snap.Reachability)

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	prev := m.Current()

	changed := prev.ID != id
	next := State{Snapshot: snap, ID: id, Known: m.touch(id, snap.Reachability)}
	if !changed {
		next.Known = prev.Known
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	if !changed {
		return next, nil
	}

	m.log.WithFields(log.Fields{
		"reachability": snap.Reachability,
		"network":      id.Fingerprint(),
		"previous":     prev.ID.Fingerprint(),
	}).Info("Network changed")
	m.metrics.ObserveChange(snap.Reachability)
	m.emit(notice.TypeNetworkChanged, map[string]interface{}{
		"reachability":     snap.Reachability.String(),
		"fingerprint":      id.Fingerprint(),
		"interfacePresent": snap.DefaultInterface != "",
		"known":            next.Known,
	})
	if m.onChange != nil {
		m.onChange(next)
	}
	return next, nil
}

// touch records id in the store and reports whether it was seen before.
func (m *Monitor) touch(id netid.ID, r netid.Reachability) bool {
	if m.store == nil || id.IsUnknown() {
		return false
	}
	rec, err := m.store.Touch(id, r)
	if err != nil {
		m.log.WithError(err).WithField("network", id.Fingerprint()).Warn("Failed to record network state")
		return false
	}
	return rec.FirstSeen.Before(rec.LastSeen)
}

func (m *Monitor) fail(op string, err error) (State, error) {
	m.log.WithError(err).WithField("op", op).Warn("Network identity refresh failed, keeping previous identifier")
	m.metrics.ObserveError()
	m.emit(notice.TypeNetworkIDError, map[string]interface{}{
		"op":    op,
		"error": err.Error(),
	})
	return m.Current(), err
}

func (m *Monitor) emit(noticeType string, data map[string]interface{}) {
	if err := m.emitter.Emit(noticeType, data); err != nil {
		m.log.WithError(err).WithField("notice", noticeType).Error("Failed to emit notice")
	}
}
