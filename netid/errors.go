package netid

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable is returned by a Querier when the requested attachment
	// detail simply does not exist (radio disconnected, tool missing). It is
	// not a resolution failure.
	ErrNotAvailable = errors.New("netid: attachment detail not available")

	// ErrConfidential is returned by every encoder method of ID.
	ErrConfidential = errors.New("netid: network identifier is local-only and cannot be serialized")
)

// ResolutionError reports a platform query failure while building an
// identifier.
type ResolutionError struct {
	Reachability Reachability
	Op           string
	Err          error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("netid: %s (%s)", e.Op, e.Reachability)
	}
	return fmt.Sprintf("netid: %s (%s): %v", e.Op, e.Reachability, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
