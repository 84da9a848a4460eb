// Package reachability samples the platform's network attachment state.
//
// A Provider finds the interface carrying the default route and classifies
// it as Wi-Fi, cellular, wired, loopback or VPN. The result is the input to
// netid.Resolver. Route discovery uses rtnetlink on Linux and the routing
// socket on darwin and the BSDs, falling back to parsing `ip route` or
// `netstat -rn` output when the native query fails. Other platforms use a
// connected UDP socket to a probe address; no packet is sent.
//
// SystemQuerier implements netid.Querier with host tools (iw, ipconfig,
// mmcli) and interface address lookup. Missing tools and disconnected radios
// are reported as netid.ErrNotAvailable.
package reachability
