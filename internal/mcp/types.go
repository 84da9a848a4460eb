package mcp

type StatusInput struct {
	// Refresh samples the platform instead of returning the last known
	// state. Refreshes are rate limited.
	Refresh bool `json:"refresh,omitempty" jsonschema:"sample the network now instead of returning the cached state"`
}

// StatusOutput describes the current network without its identifier key.
type StatusOutput struct {
	Reachability     string `json:"reachability"`
	Reachable        bool   `json:"reachable"`
	InterfacePresent bool   `json:"interface_present"`
	Known            bool   `json:"known"`
	Fingerprint      string `json:"fingerprint"`
	Cached           bool   `json:"cached"`
	Error            string `json:"error,omitempty"`
	Report           string `json:"report"`
}
