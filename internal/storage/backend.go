package storage

import "context"

// Backend is the raw key-value engine underneath the namespaced store.
// The store never hands it a key outside the namespace; the badger and
// in-memory implementations are both safe for the cooperative
// single-writer discipline this subsystem assumes.
//
// Apply is the only mutation primitive. It must commit every set and
// remove in one atomic step or none at all; that is what keeps an index
// and its referenced records from diverging under interruption.
type Backend interface {
	// Get returns the value for key, with found=false when absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Apply atomically writes every entry of set and deletes every key in
	// remove. Either all mutations become visible or none do.
	Apply(ctx context.Context, set map[string][]byte, remove []string) error

	// List returns every key under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// DropPrefix removes every key under prefix in one pass.
	DropPrefix(ctx context.Context, prefix string) error

	// Close releases backend resources.
	Close() error
}
