package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/lumela/huecircle/internal/logging"
)

// BadgerBackend persists the namespace in an embedded BadgerDB. Badger
// transactions give Apply its all-or-nothing guarantee, prefix iteration
// serves the audit scans, and DropPrefix implements the full wipe.
type BadgerBackend struct {
	db *badger.DB
}

// BadgerConfig controls how the backing database is opened.
type BadgerConfig struct {
	// Path is the database directory. Created if missing. Ignored when
	// InMemory is set.
	Path string

	// InMemory skips disk persistence entirely. Used by tests and the
	// CLI's ephemeral mode.
	InMemory bool

	// Logger receives badger's own diagnostics. Nil disables them.
	Logger logging.Logger
}

// OpenBadger opens (and if needed creates) the backing database.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("storage: path is required for a persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogAdapter{log: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *BadgerBackend) Apply(ctx context.Context, set map[string][]byte, remove []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for k, v := range set {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		for _, k := range remove {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply batch (%d sets, %d removes): %w", len(set), len(remove), err)
	}
	return nil
}

func (b *BadgerBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

func (b *BadgerBackend) DropPrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.DropPrefix([]byte(prefix)); err != nil {
		return fmt.Errorf("drop prefix %s: %w", prefix, err)
	}
	return nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// badgerLogAdapter routes badger's printf-style diagnostics into the
// subsystem logger.
type badgerLogAdapter struct {
	log logging.Logger
}

func (a *badgerLogAdapter) Errorf(format string, args ...any) {
	a.log.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Warningf(format string, args ...any) {
	a.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Infof(format string, args ...any) {
	a.log.Info(context.Background(), fmt.Sprintf(format, args...))
}

func (a *badgerLogAdapter) Debugf(format string, args ...any) {
	a.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}
