package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lumela/huecircle/internal/logging"
)

// Store is the namespaced persistence wrapper every other component goes
// through. Records are JSON-encoded; multi-key mutations run through a
// single atomic Apply so an index and its records cannot diverge.
type Store struct {
	b   Backend
	log logging.Logger
}

// New wraps a backend. The logger may not be nil; use logging.NewNop in
// tests.
func New(b Backend, log logging.Logger) *Store {
	return &Store{b: b, log: log.With("component", "storage")}
}

// Write pairs a typed key with the record to encode under it.
type Write struct {
	Key   Key
	Value any
}

func (s *Store) guard(raw string) error {
	if !inNamespace(raw) {
		return fmt.Errorf("storage: key %q escapes namespace %q", raw, Namespace)
	}
	return nil
}

// Get decodes the record at k into out. found is false when the key is
// absent; out is untouched in that case.
func (s *Store) Get(ctx context.Context, k Key, out any) (found bool, err error) {
	if err := s.guard(k.raw); err != nil {
		return false, err
	}
	raw, found, err := s.b.Get(ctx, k.raw)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", k.raw, err)
	}
	return true, nil
}

// Set encodes and stores a single record. It is sugar over Apply.
func (s *Store) Set(ctx context.Context, k Key, v any) error {
	return s.Apply(ctx, []Write{{Key: k, Value: v}}, nil)
}

// Remove deletes the given keys. It is sugar over Apply.
func (s *Store) Remove(ctx context.Context, keys ...Key) error {
	return s.Apply(ctx, nil, keys)
}

// Apply performs one atomic multi-key mutation: every write is encoded and
// stored and every remove deleted, or nothing changes. Cross-entity
// mutations (record + index, status change + signal deletion) must go
// through a single Apply call.
func (s *Store) Apply(ctx context.Context, writes []Write, removes []Key) error {
	set := make(map[string][]byte, len(writes))
	for _, w := range writes {
		if err := s.guard(w.Key.raw); err != nil {
			return err
		}
		raw, err := json.Marshal(w.Value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", w.Key.raw, err)
		}
		set[w.Key.raw] = raw
	}
	removed := make([]string, 0, len(removes))
	for _, k := range removes {
		if err := s.guard(k.raw); err != nil {
			return err
		}
		removed = append(removed, k.raw)
	}
	if err := s.b.Apply(ctx, set, removed); err != nil {
		return err
	}
	s.log.Debug(ctx, "applied batch", "sets", len(set), "removes", len(removed))
	return nil
}

// ListKeys returns every raw key under p, sorted.
func (s *Store) ListKeys(ctx context.Context, p Prefix) ([]string, error) {
	if !strings.HasPrefix(p.raw, Namespace) {
		return nil, fmt.Errorf("storage: prefix %q escapes namespace %q", p.raw, Namespace)
	}
	return s.b.List(ctx, p.raw)
}

// Wipe removes every key under the namespace in one pass. FirewallAudit
// verifies zero residue afterwards.
func (s *Store) Wipe(ctx context.Context) error {
	if err := s.b.DropPrefix(ctx, Namespace); err != nil {
		return fmt.Errorf("wipe namespace: %w", err)
	}
	s.log.Info(ctx, "namespace wiped")
	return nil
}
