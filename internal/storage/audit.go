package storage

import (
	"context"
	"strings"
)

// FirewallReport is the result of scanning the whole backend for social-
// firewall breaches. Clean means the subsystem's data is fully contained:
// nothing of ours leaked outside the namespace, and (after a wipe) nothing
// of ours remains inside it either.
type FirewallReport struct {
	// NamespaceKeys counts keys currently under the namespace. Zero after
	// a full wipe.
	NamespaceKeys int

	// LeakedKeys lists keys outside the namespace that carry this
	// subsystem's identifier or key patterns. Always empty in a healthy
	// installation.
	LeakedKeys []string
}

// Clean reports whether no subsystem data leaked outside the namespace.
func (r *FirewallReport) Clean() bool { return len(r.LeakedKeys) == 0 }

// leakMarkers are substrings that identify this subsystem's data when
// found in a foreign key.
var leakMarkers = []string{"huecircle", "circle_", "conn_", "inv_"}

// FirewallAudit scans every key in the backend (not just the namespace)
// and reports any key pattern of ours that escaped into another domain,
// plus the residual key count under the namespace itself.
func (s *Store) FirewallAudit(ctx context.Context) (*FirewallReport, error) {
	all, err := s.b.List(ctx, "")
	if err != nil {
		return nil, err
	}
	report := &FirewallReport{LeakedKeys: make([]string, 0)}
	for _, key := range all {
		if strings.HasPrefix(key, Namespace) {
			report.NamespaceKeys++
			continue
		}
		for _, marker := range leakMarkers {
			if strings.Contains(key, marker) {
				report.LeakedKeys = append(report.LeakedKeys, key)
				break
			}
		}
	}
	return report, nil
}

// Summary counts the records currently held, per kind. It is a read-only
// convenience for debug surfaces.
type Summary struct {
	Users       int
	Connections int
	Signals     int
	Invites     int
	Blocked     int
	TotalKeys   int
}

// Summarize tallies namespace keys by kind.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	keys, err := s.ListKeys(ctx, PrefixAll())
	if err != nil {
		return nil, err
	}
	sum := &Summary{TotalKeys: len(keys)}
	for _, key := range keys {
		rest := strings.TrimPrefix(key, Namespace)
		switch {
		case strings.HasPrefix(rest, "user/"):
			sum.Users++
		case strings.HasPrefix(rest, "conn/"):
			sum.Connections++
		case strings.HasPrefix(rest, "signal/"):
			sum.Signals++
		case strings.HasPrefix(rest, "invite/"):
			sum.Invites++
		case strings.HasPrefix(rest, "blocked/"):
			sum.Blocked++
		}
	}
	return sum, nil
}
