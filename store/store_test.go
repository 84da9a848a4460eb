package store

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R167/netid/netid"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, c
}

func mustResolve(t *testing.T, r netid.Reachability, iface string) netid.ID {
	t.Helper()
	id, err := netid.Resolve(r, iface)
	require.NoError(t, err)
	return id
}

func TestStore_RejectsUnknown(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Touch(netid.UnknownID, netid.NotReachable)
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	_, err = s.RecordAttempt(netid.ID{}, true, nil)
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	_, err = s.Get(netid.UnknownID)
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_TouchAndGet(t *testing.T) {
	s, c := openTestStore(t)
	id := mustResolve(t, netid.ReachableViaWiFi, "en0")

	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	first := c.t
	_, err = s.Touch(id, netid.ReachableViaWiFi)
	require.NoError(t, err)

	c.advance(time.Minute)
	_, err = s.Touch(id, netid.ReachableViaWiFi)
	require.NoError(t, err)

	rec, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, rec.FirstSeen.Equal(first))
	assert.True(t, rec.LastSeen.Equal(first.Add(time.Minute)))
	assert.True(t, rec.LastConnected.IsZero())
	assert.Equal(t, "wifi", rec.Reachability)
}

func TestStore_RecordAttempt(t *testing.T) {
	s, c := openTestStore(t)
	id := mustResolve(t, netid.ReachableViaCellular, "pdp_ip0")

	rec, err := s.RecordAttempt(id, true, []byte("params-v1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Successes)
	connected := c.t

	c.advance(time.Hour)
	rec, err = s.RecordAttempt(id, false, []byte("params-v2"))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), rec.Attempts)
	assert.Equal(t, uint64(1), rec.Successes)
	assert.Equal(t, uint64(1), rec.Failures)
	assert.True(t, rec.LastConnected.Equal(connected))
	assert.Equal(t, []byte("params-v1"), rec.DialParameters, "failed attempt must not replace dial parameters")

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, rec.Attempts, got.Attempts)
	assert.Equal(t, rec.DialParameters, got.DialParameters)
}

func TestStore_KeysAreDigests(t *testing.T) {
	s, _ := openTestStore(t)
	id := mustResolve(t, netid.ReachableViaWired, "eth0")

	_, err := s.Touch(id, netid.ReachableViaWired)
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	d := id.Digest(s.Secret())
	assert.Equal(t, hex.EncodeToString(d[:]), entries[0].Digest)
	assert.NotContains(t, entries[0].Digest, "eth0")

	unkeyed := sha256.Sum256([]byte(id.Key()))
	assert.NotEqual(t, hex.EncodeToString(unkeyed[:]), entries[0].Digest)
}

func TestStore_SecretPerInstall(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	defer second.Close()

	require.Len(t, first.Secret(), netid.SecretSize)
	assert.NotEqual(t, first.Secret(), second.Secret())

	q := &bssidQuerier{bssid: "f0:9f:c2:5a:17:e3"}
	a, err := (&netid.Resolver{Querier: q, Secret: first.Secret()}).Resolve(netid.ReachableViaWiFi, "wlan0")
	require.NoError(t, err)
	b, err := (&netid.Resolver{Querier: q, Secret: second.Secret()}).Resolve(netid.ReachableViaWiFi, "wlan0")
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	_, err = first.Touch(a, netid.ReachableViaWiFi)
	require.NoError(t, err)
	_, err = second.Touch(b, netid.ReachableViaWiFi)
	require.NoError(t, err)

	ea, err := first.List()
	require.NoError(t, err)
	eb, err := second.List()
	require.NoError(t, err)
	require.Len(t, ea, 1)
	require.Len(t, eb, 1)
	assert.NotEqual(t, ea[0].Digest, eb[0].Digest)
}

type bssidQuerier struct{ bssid string }

func (q *bssidQuerier) WiFiBSSID(string) (string, error) { return q.bssid, nil }

func (q *bssidQuerier) CellularCarrier() (netid.Carrier, error) {
	return netid.Carrier{}, netid.ErrNotAvailable
}

func (q *bssidQuerier) InterfaceAddress(string) (netip.Addr, error) {
	return netip.Addr{}, netid.ErrNotAvailable
}

func TestStore_ListOrder(t *testing.T) {
	s, c := openTestStore(t)
	wifi := mustResolve(t, netid.ReachableViaWiFi, "en0")
	wired := mustResolve(t, netid.ReachableViaWired, "en1")

	_, err := s.Touch(wifi, netid.ReachableViaWiFi)
	require.NoError(t, err)
	c.advance(time.Second)
	_, err = s.Touch(wired, netid.ReachableViaWired)
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "wired", entries[0].Record.Reachability)
	assert.Equal(t, "wifi", entries[1].Record.Reachability)
}

func TestStore_PruneAndDelete(t *testing.T) {
	s, c := openTestStore(t)
	old := mustResolve(t, netid.ReachableViaWiFi, "en0")
	recent := mustResolve(t, netid.ReachableViaWired, "eth0")

	_, err := s.Touch(old, netid.ReachableViaWiFi)
	require.NoError(t, err)
	c.advance(48 * time.Hour)
	_, err = s.Touch(recent, netid.ReachableViaWired)
	require.NoError(t, err)

	removed, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(old)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(recent))
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	id := mustResolve(t, netid.ReachableViaWiFi, "wlan0")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.RecordAttempt(id, true, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	secret := s.Secret()
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, secret, s.Secret())

	rec, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Successes)
}

func TestIDRefusesCBOR(t *testing.T) {
	id := mustResolve(t, netid.ReachableViaWiFi, "en0")

	_, err := cbor.Marshal(struct{ ID netid.ID }{ID: id})
	assert.Error(t, err)
}
