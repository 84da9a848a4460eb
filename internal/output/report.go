package output

import (
	"time"

	"github.com/R167/netid/netid"
	"github.com/R167/netid/reachability"
	"github.com/R167/netid/store"
)

// Status is one resolved network identity.
type Status struct {
	Snapshot reachability.Snapshot
	ID       netid.ID
	Err      error

	// Reveal prints the raw identifier key. Only set for local terminals.
	Reveal bool

	// Redact omits the interface name, for reports that leave the local
	// terminal.
	Redact bool
}

func WriteStatus(out Output, s Status) {
	out.Section("🌐", "Network Identity")

	if s.Err != nil {
		out.Error("Resolution failed: %v", s.Err)
		return
	}

	if !s.Snapshot.Reachability.Reachable() {
		out.Warning("No connectivity (reachability: %s)", s.Snapshot.Reachability)
		out.Detail("Network ID: %s", netid.Unknown)
		return
	}

	out.Success("Reachable via %s", s.Snapshot.Reachability)
	switch {
	case s.Snapshot.DefaultInterface != "" && s.Redact:
		out.Info("Default interface: present")
	case s.Snapshot.DefaultInterface != "":
		out.Info("Default interface: %s (index %d)", s.Snapshot.DefaultInterface, s.Snapshot.InterfaceIndex)
	default:
		out.Info("Default interface: unavailable")
	}
	out.Info("Fingerprint: %s", s.ID.Fingerprint())
	if s.Reveal {
		out.Detail("Network ID (local only): %s", s.ID.Key())
	}
}

func WriteRecords(out Output, entries []store.Entry, now time.Time) {
	out.Header("Known Networks")

	if len(entries) == 0 {
		out.Info("No networks recorded")
		return
	}

	for _, e := range entries {
		out.Info("%s  %-8s last seen %s ago", e.Digest[:12], e.Record.Reachability, now.Sub(e.Record.LastSeen).Round(time.Second))
		writeCounters(out, e.Record)
	}
}

// WriteRecord renders the state of the current network.
func WriteRecord(out Output, fingerprint string, rec store.Record, now time.Time) {
	out.Header("Network State")
	out.Info("%s  %s", fingerprint, rec.Reachability)
	out.Detail("first seen %s", rec.FirstSeen.Format(time.RFC3339))
	out.Detail("last seen %s ago", now.Sub(rec.LastSeen).Round(time.Second))
	writeCounters(out, rec)
	if len(rec.DialParameters) > 0 {
		out.Detail("dial parameters: %d bytes", len(rec.DialParameters))
	}
}

func writeCounters(out Output, rec store.Record) {
	out.Detail("attempts=%d successes=%d failures=%d", rec.Attempts, rec.Successes, rec.Failures)
	if !rec.LastConnected.IsZero() {
		out.Detail("last connected %s", rec.LastConnected.Format(time.RFC3339))
	}
}
