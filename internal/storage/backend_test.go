package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendContract exercises the Backend semantics every implementation
// must satisfy.
func backendContract(t *testing.T, b Backend) {
	ctx := context.Background()

	t.Run("get absent", func(t *testing.T) {
		_, found, err := b.Get(ctx, "contract/none")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("apply and get", func(t *testing.T) {
		require.NoError(t, b.Apply(ctx, map[string][]byte{
			"contract/a": []byte("1"),
			"contract/b": []byte("2"),
		}, nil))
		v, found, err := b.Get(ctx, "contract/a")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte("1"), v)
	})

	t.Run("list is prefix-scoped and sorted", func(t *testing.T) {
		require.NoError(t, b.Apply(ctx, map[string][]byte{
			"other/z": []byte("x"),
		}, nil))
		keys, err := b.List(ctx, "contract/")
		require.NoError(t, err)
		assert.Equal(t, []string{"contract/a", "contract/b"}, keys)
	})

	t.Run("apply removes", func(t *testing.T) {
		require.NoError(t, b.Apply(ctx, map[string][]byte{
			"contract/c": []byte("3"),
		}, []string{"contract/a"}))
		_, found, err := b.Get(ctx, "contract/a")
		require.NoError(t, err)
		assert.False(t, found)
		_, found, err = b.Get(ctx, "contract/c")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("removing absent keys is fine", func(t *testing.T) {
		require.NoError(t, b.Apply(ctx, nil, []string{"contract/never-there"}))
	})

	t.Run("drop prefix", func(t *testing.T) {
		require.NoError(t, b.DropPrefix(ctx, "contract/"))
		keys, err := b.List(ctx, "contract/")
		require.NoError(t, err)
		assert.Empty(t, keys)
		_, found, err := b.Get(ctx, "other/z")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := b.Get(cctx, "contract/a")
		assert.Error(t, err)
		assert.Error(t, b.Apply(cctx, nil, nil))
	})
}

func TestMemoryBackend(t *testing.T) {
	backendContract(t, NewMemoryBackend())
}

func TestBadgerBackend(t *testing.T) {
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer b.Close()
	backendContract(t, b)
}

func TestMemoryBackend_ValueIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	original := []byte("value")
	require.NoError(t, m.Apply(ctx, map[string][]byte{"k": original}, nil))
	original[0] = 'X'

	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("value"), got, "backend must copy on write")

	got[0] = 'Y'
	again, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again, "backend must copy on read")
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestOpenBadger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, b.Apply(ctx, map[string][]byte{"k": []byte("v")}, nil))
	require.NoError(t, b.Close())

	b, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer b.Close()
	v, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), v)
}
