package netid

import (
	"errors"
	"net/netip"
	"strings"
)

// Carrier holds the mobile operator codes of the active cellular network.
type Carrier struct {
	MCC string
	MNC string
}

// Querier supplies attachment details used to refine an identifier.
// Implementations return ErrNotAvailable (possibly wrapped) when a detail
// does not exist; any other error aborts resolution.
type Querier interface {
	WiFiBSSID(iface string) (string, error)
	CellularCarrier() (Carrier, error)
	InterfaceAddress(iface string) (netip.Addr, error)
}

// Resolver builds identifiers. A nil Querier resolves at
// reachability/interface granularity only. Secret keys the fingerprint of
// resolved IDs; without one fingerprints are redacted placeholders. Resolver
// holds no mutable state and is safe for concurrent use.
type Resolver struct {
	Querier Querier
	Secret  []byte
}

// Resolve is shorthand for a Resolver without a Querier. It performs no
// I/O and cannot fail for a valid Reachability.
func Resolve(reachability Reachability, defaultInterface string) (ID, error) {
	return (&Resolver{}).Resolve(reachability, defaultInterface)
}

// Resolve returns the identifier for the given reachability and default
// route interface name. An empty defaultInterface means the interface could
// not be determined.
func (r *Resolver) Resolve(reachability Reachability, defaultInterface string) (ID, error) {
	if reachability == NotReachable {
		return UnknownID, nil
	}
	class, ok := reachabilityClasses[reachability]
	if !ok {
		return ID{}, &ResolutionError{Reachability: reachability, Op: "invalid reachability"}
	}

	detail, err := r.detail(reachability, defaultInterface)
	if err != nil {
		return ID{}, err
	}
	var secret []byte
	if r != nil {
		secret = r.Secret
	}
	return newID(composeKey(class, defaultInterface, detail), secret), nil
}

func (r *Resolver) detail(reachability Reachability, iface string) (string, error) {
	if r == nil || r.Querier == nil {
		return "", nil
	}

	switch reachability {
	case ReachableViaWiFi:
		bssid, err := r.Querier.WiFiBSSID(iface)
		if err != nil {
			return "", queryError(reachability, "query wifi bssid", err)
		}
		return strings.ToLower(bssid), nil

	case ReachableViaCellular:
		c, err := r.Querier.CellularCarrier()
		if err != nil {
			return "", queryError(reachability, "query cellular carrier", err)
		}
		if c.MCC == "" && c.MNC == "" {
			return "", nil
		}
		return c.MCC + "-" + c.MNC, nil

	case ReachableViaWired:
		if iface == "" {
			return "", nil
		}
		addr, err := r.Querier.InterfaceAddress(iface)
		if err != nil {
			return "", queryError(reachability, "query interface address", err)
		}
		if !addr.IsValid() {
			return "", nil
		}
		return addr.String(), nil
	}

	return "", nil
}

// queryError maps ErrNotAvailable to an absent detail.
func queryError(reachability Reachability, op string, err error) error {
	if errors.Is(err, ErrNotAvailable) {
		return nil
	}
	return &ResolutionError{Reachability: reachability, Op: op, Err: err}
}

var segmentEscaper = strings.NewReplacer("%", "%25", "-", "%2D", "/", "%2F")

// composeKey joins class, interface and detail as CLASS[-iface][/detail].
// Segments are escaped so distinct inputs never collide.
func composeKey(class, iface, detail string) string {
	var b strings.Builder
	b.WriteString(class)
	if iface != "" {
		b.WriteByte('-')
		b.WriteString(segmentEscaper.Replace(iface))
	}
	if detail != "" {
		b.WriteByte('/')
		b.WriteString(segmentEscaper.Replace(detail))
	}
	return b.String()
}
