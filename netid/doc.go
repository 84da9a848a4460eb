// Package netid derives a stable identifier for the device's current network
// attachment.
//
// The identifier is used as a local cache key by a tunnel client deciding
// whether connection state from an earlier session can be reused. It may
// contain personally identifying attachment data (interface names, Wi-Fi
// BSSIDs, carrier codes) and is therefore local-only: the ID type refuses
// every standard serialization path and its printable forms are redacted.
//
// Resolution is a pure function of its inputs:
//
//	id, err := netid.Resolve(netid.ReachableViaWiFi, "en0")
//	if err != nil {
//	    return err
//	}
//	if id.IsUnknown() {
//	    // no connectivity, nothing to reuse
//	}
//
// A Resolver with a Querier refines the identifier with platform attachment
// details. Querier failures other than ErrNotAvailable surface as a
// *ResolutionError and never as a partially built identifier.
package netid
