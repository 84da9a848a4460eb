// Package store persists per-network connection state keyed by network
// identifier.
//
// Keys are HMAC-SHA256 digests of the identifier under a random per-install
// secret kept in the database, so raw attachment data (BSSIDs, interface
// addresses) is never written to disk and cannot be recovered by hashing
// candidate identifiers. Values are CBOR encoded.
//
// A tunnel client records each connection attempt with RecordAttempt and
// reads the last working dial parameters back with Get:
//
//	st, err := store.Open(path)
//	...
//	resolver := &netid.Resolver{Secret: st.Secret()}
//	id, err := resolver.Resolve(r, iface)
//	if rec, err := st.Get(id); err == nil {
//	    reuse(rec.DialParameters)
//	}
package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/R167/netid/netid"
)

const (
	networksBucket = "networks"
	metaBucket     = "meta"
	secretKey      = "secret"
)

var (
	// ErrUnknownNetwork is returned when state is keyed by netid.UnknownID
	// or an unresolved ID.
	ErrUnknownNetwork = errors.New("store: cannot key state by an unknown network")

	ErrNotFound = errors.New("store: network not found")
)

// Record is the locally persisted state for one network.
type Record struct {
	FirstSeen      time.Time `cbor:"1,keyasint"`
	LastSeen       time.Time `cbor:"2,keyasint"`
	LastConnected  time.Time `cbor:"3,keyasint"`
	Reachability   string    `cbor:"4,keyasint"`
	Attempts       uint64    `cbor:"5,keyasint"`
	Successes      uint64    `cbor:"6,keyasint"`
	Failures       uint64    `cbor:"7,keyasint"`
	DialParameters []byte    `cbor:"8,keyasint,omitempty"`
}

// Entry is a record with the hex digest of its network key.
type Entry struct {
	Digest string
	Record Record
}

type Store struct {
	db     *bolt.DB
	enc    cbor.EncMode
	secret []byte
	now    func() time.Time
}

// Open opens or creates the state file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	var secret []byte
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(networksBucket)); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}
		if v := meta.Get([]byte(secretKey)); len(v) == netid.SecretSize {
			secret = append([]byte(nil), v...)
			return nil
		}
		if secret, err = netid.NewSecret(); err != nil {
			return err
		}
		return meta.Put([]byte(secretKey), secret)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize: %w", err)
	}

	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: cbor: %w", err)
	}

	return &Store{db: db, enc: enc, secret: secret, now: time.Now}, nil
}

// Secret returns the per-install secret. Pass it to netid.Resolver so
// fingerprints are keyed the same way as stored records.
func (s *Store) Secret() []byte {
	return append([]byte(nil), s.secret...)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) keyFor(id netid.ID) ([]byte, error) {
	if id.IsZero() || id.IsUnknown() {
		return nil, ErrUnknownNetwork
	}
	d := id.Digest(s.secret)
	return d[:], nil
}

func (s *Store) get(bkt *bolt.Bucket, k []byte) (Record, bool, error) {
	raw := bkt.Get(k)
	if raw == nil {
		return Record{}, false, nil
	}
	var rec Record
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("store: decode record: %w", err)
	}
	return rec, true, nil
}

func (s *Store) put(bkt *bolt.Bucket, k []byte, rec Record) error {
	raw, err := s.enc.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}
	return bkt.Put(k, raw)
}

// update runs fn on the record for id inside a write transaction, creating
// it if it does not exist.
func (s *Store) update(id netid.ID, fn func(rec *Record, now time.Time)) (Record, error) {
	k, err := s.keyFor(id)
	if err != nil {
		return Record{}, err
	}

	var out Record
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(networksBucket))
		rec, ok, err := s.get(bkt, k)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if !ok {
			rec.FirstSeen = now
		}
		fn(&rec, now)
		out = rec
		return s.put(bkt, k, rec)
	})
	return out, err
}

// Get returns the record for id.
func (s *Store) Get(id netid.ID) (Record, error) {
	k, err := s.keyFor(id)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	err = s.db.View(func(tx *bolt.Tx) error {
		r, ok, err := s.get(tx.Bucket([]byte(networksBucket)), k)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		rec = r
		return nil
	})
	return rec, err
}

// Touch records that the device is attached to id now.
func (s *Store) Touch(id netid.ID, reachability netid.Reachability) (Record, error) {
	return s.update(id, func(rec *Record, now time.Time) {
		rec.LastSeen = now
		rec.Reachability = reachability.String()
	})
}

// RecordAttempt records a tunnel connection attempt on id. Dial parameters
// are replaced only on success, so a failing attempt never overwrites the
// parameters that last worked.
func (s *Store) RecordAttempt(id netid.ID, success bool, dialParameters []byte) (Record, error) {
	return s.update(id, func(rec *Record, now time.Time) {
		rec.LastSeen = now
		rec.Attempts++
		if !success {
			rec.Failures++
			return
		}
		rec.Successes++
		rec.LastConnected = now
		if dialParameters != nil {
			rec.DialParameters = append([]byte(nil), dialParameters...)
		}
	})
}

func (s *Store) Delete(id netid.ID) error {
	k, err := s.keyFor(id)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(networksBucket)).Delete(k)
	})
}

// Prune deletes records not seen within maxAge and returns how many were
// removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(networksBucket))
		var stale [][]byte
		if err := bkt.ForEach(func(k, v []byte) error {
			var rec Record
			if err := cbor.Unmarshal(v, &rec); err != nil {
				// undecodable records are dropped
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if rec.LastSeen.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// List returns all records, most recently seen first.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(networksBucket)).ForEach(func(k, v []byte) error {
			var rec Record
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("store: decode record: %w", err)
			}
			entries = append(entries, Entry{Digest: hex.EncodeToString(k), Record: rec})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.LastSeen.After(entries[j].Record.LastSeen)
	})
	return entries, nil
}

func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(networksBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
