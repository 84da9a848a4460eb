package netid

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Unknown is the identifier key used when the device has no connectivity.
const Unknown = "unknown"

// UnknownID is the identifier returned for NotReachable.
var UnknownID = ID{key: Unknown}

// ID identifies a network attachment. It contains potential PII and must
// only be used locally, for example as a cache key. The zero value is not a
// valid identifier; use IsZero to detect it.
//
// Every standard encoding path fails with ErrConfidential. String, GoString
// and Fingerprint print a keyed digest computed with the resolver's secret,
// or a fixed placeholder when the resolver has none, so an ID placed in a log
// line or a message does not leak its key. The key has little entropy, so an
// unkeyed digest would not hide it.
type ID struct {
	key         string
	fingerprint string
}

// SecretSize is the length of a per-install secret.
const SecretSize = 32

// NewSecret returns a random per-install secret for keyed digests.
func NewSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("netid: generate secret: %w", err)
	}
	return secret, nil
}

func newID(key string, secret []byte) ID {
	id := ID{key: key}
	if len(secret) > 0 {
		d := id.Digest(secret)
		id.fingerprint = hex.EncodeToString(d[:4])
	}
	return id
}

// Key returns the raw identifier. Do not transmit it off the device.
func (id ID) Key() string {
	return id.key
}

// IsUnknown reports whether id is the no-connectivity sentinel.
func (id ID) IsUnknown() bool {
	return id.key == Unknown
}

// IsZero reports whether id was never resolved.
func (id ID) IsZero() bool {
	return id.key == ""
}

// Digest returns the HMAC-SHA256 of the key under secret. Callers must pass
// a secret from NewSecret.
func (id ID) Digest(secret []byte) [sha256.Size]byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id.key))

	var d [sha256.Size]byte
	copy(d[:], mac.Sum(nil))
	return d
}

// Fingerprint returns a short redacted form suitable for logs.
func (id ID) Fingerprint() string {
	if id.IsZero() {
		return "netid:none"
	}
	if id.IsUnknown() {
		return "netid:" + Unknown
	}
	if id.fingerprint == "" {
		return "netid:redacted"
	}
	return "netid:" + id.fingerprint
}

func (id ID) String() string {
	return id.Fingerprint()
}

func (id ID) GoString() string {
	return "netid.ID(" + id.Fingerprint() + ")"
}

func (id ID) MarshalJSON() ([]byte, error) {
	return nil, ErrConfidential
}

func (id ID) MarshalText() ([]byte, error) {
	return nil, ErrConfidential
}

func (id ID) MarshalBinary() ([]byte, error) {
	return nil, ErrConfidential
}

func (id ID) GobEncode() ([]byte, error) {
	return nil, ErrConfidential
}
