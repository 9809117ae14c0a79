package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/models"
)

// Finding is one integrity problem discovered by a read-time scan.
// Findings are reported, never thrown: read paths used for display must
// not crash on a divergent index, only write paths hard-stop.
type Finding struct {
	Kind   string
	Key    string
	Detail string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s at %s: %s", f.Kind, f.Key, f.Detail)
}

const (
	FindingDanglingIndexEntry = "dangling-index-entry"
	FindingUnindexedRecord    = "unindexed-record"
	FindingMalformedKey       = "malformed-key"
	FindingCeilingExceeded    = "ceiling-exceeded"
)

// IntegrityCheck verifies that secondary indexes agree with their records,
// that identifier segments embedded in keys are well-formed, and that no
// stored connection set exceeds the aggregation ceiling. It returns the
// complete list of findings; an empty list means the namespace is
// consistent.
func (s *Store) IntegrityCheck(ctx context.Context) ([]Finding, error) {
	findings := make([]Finding, 0)

	f, err := s.checkConnections(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, f...)

	f, err = s.checkInvites(ctx)
	if err != nil {
		return nil, err
	}
	findings = append(findings, f...)

	return findings, nil
}

func (s *Store) checkConnections(ctx context.Context) ([]Finding, error) {
	findings := make([]Finding, 0)

	recordKeys, err := s.ListKeys(ctx, PrefixAllConnections())
	if err != nil {
		return nil, err
	}
	// owner -> set of connection ids actually stored
	records := make(map[identity.CircleID]map[identity.ConnectionID]bool)
	active := make(map[identity.CircleID]int)
	for _, key := range recordKeys {
		owner, connID, ok := splitConnKey(key)
		if !ok {
			findings = append(findings, Finding{
				Kind: FindingMalformedKey, Key: key,
				Detail: "connection key does not parse into valid owner and connection ids",
			})
			continue
		}
		if records[owner] == nil {
			records[owner] = make(map[identity.ConnectionID]bool)
		}
		records[owner][connID] = true

		var conn models.Connection
		if found, err := s.Get(ctx, KeyConnection(owner, connID), &conn); err == nil && found {
			if conn.Status == models.ConnectionActive {
				active[owner]++
			}
		}
	}

	for owner, count := range active {
		if err := laws.AssertNoAggregation(count); err != nil {
			findings = append(findings, Finding{
				Kind: FindingCeilingExceeded, Key: KeyConnectionIndex(owner).String(),
				Detail: fmt.Sprintf("%d active connections stored for %s", count, owner),
			})
		}
	}

	indexKeys, err := s.ListKeys(ctx, PrefixConnectionIndexes())
	if err != nil {
		return nil, err
	}
	indexed := make(map[identity.CircleID]map[identity.ConnectionID]bool)
	for _, key := range indexKeys {
		owner := identity.CircleID(strings.TrimPrefix(key, Namespace+"connidx/"))
		if err := identity.ValidateCircleID(owner); err != nil {
			findings = append(findings, Finding{
				Kind: FindingMalformedKey, Key: key,
				Detail: "connection index key carries a malformed owner id",
			})
			continue
		}
		var ids []identity.ConnectionID
		if _, err := s.Get(ctx, KeyConnectionIndex(owner), &ids); err != nil {
			findings = append(findings, Finding{
				Kind: FindingMalformedKey, Key: key, Detail: err.Error(),
			})
			continue
		}
		indexed[owner] = make(map[identity.ConnectionID]bool, len(ids))
		for _, id := range ids {
			indexed[owner][id] = true
			if !records[owner][id] {
				findings = append(findings, Finding{
					Kind: FindingDanglingIndexEntry, Key: key,
					Detail: fmt.Sprintf("index lists %s but no record exists", id),
				})
			}
		}
	}
	for owner, ids := range records {
		for id := range ids {
			if !indexed[owner][id] {
				findings = append(findings, Finding{
					Kind: FindingUnindexedRecord, Key: KeyConnection(owner, id).String(),
					Detail: "record exists but the owner's index does not list it",
				})
			}
		}
	}

	return findings, nil
}

func (s *Store) checkInvites(ctx context.Context) ([]Finding, error) {
	findings := make([]Finding, 0)

	recordKeys, err := s.ListKeys(ctx, PrefixInvites())
	if err != nil {
		return nil, err
	}
	records := make(map[identity.InviteToken]bool, len(recordKeys))
	for _, key := range recordKeys {
		tok := identity.InviteToken(strings.TrimPrefix(key, Namespace+"invite/"))
		if err := identity.ValidateInviteToken(tok); err != nil {
			findings = append(findings, Finding{
				Kind: FindingMalformedKey, Key: key,
				Detail: "invite key carries a malformed token",
			})
			continue
		}
		records[tok] = true
	}

	var tokens []identity.InviteToken
	found, err := s.Get(ctx, KeyInviteIndex(), &tokens)
	if err != nil {
		return nil, err
	}
	indexed := make(map[identity.InviteToken]bool, len(tokens))
	if found {
		for _, tok := range tokens {
			indexed[tok] = true
			if !records[tok] {
				findings = append(findings, Finding{
					Kind: FindingDanglingIndexEntry, Key: KeyInviteIndex().String(),
					Detail: fmt.Sprintf("index lists %s but no record exists", tok),
				})
			}
		}
	}
	for tok := range records {
		if !indexed[tok] {
			findings = append(findings, Finding{
				Kind: FindingUnindexedRecord, Key: KeyInvite(tok).String(),
				Detail: "record exists but the invite index does not list it",
			})
		}
	}

	return findings, nil
}

// splitConnKey parses "huecircle/v1/conn/<owner>/<connId>".
func splitConnKey(key string) (identity.CircleID, identity.ConnectionID, bool) {
	rest := strings.TrimPrefix(key, Namespace+"conn/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	owner := identity.CircleID(parts[0])
	connID := identity.ConnectionID(parts[1])
	if identity.ValidateCircleID(owner) != nil || identity.ValidateConnectionID(connID) != nil {
		return "", "", false
	}
	return owner, connID, true
}
