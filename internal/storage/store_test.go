package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(NewMemoryBackend(), logging.NewNop())
}

type rec struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := KeyUser(identity.NewCircleID())

	var out rec
	found, err := s.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, key, &rec{Name: "a", Count: 2}))
	found, err = s.Get(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec{Name: "a", Count: 2}, out)

	require.NoError(t, s.Remove(ctx, key))
	found, err = s.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_ApplyIsAtomicBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()
	connID := identity.NewConnectionID()

	// One Apply carrying record + index + a removal.
	stale := KeySignal(owner)
	require.NoError(t, s.Set(ctx, stale, &rec{Name: "stale"}))

	writes := []Write{
		{Key: KeyConnection(owner, connID), Value: &rec{Name: "conn"}},
		{Key: KeyConnectionIndex(owner), Value: []identity.ConnectionID{connID}},
	}
	require.NoError(t, s.Apply(ctx, writes, []Key{stale}))

	var got rec
	found, err := s.Get(ctx, KeyConnection(owner, connID), &got)
	require.NoError(t, err)
	require.True(t, found)

	var ids []identity.ConnectionID
	found, err = s.Get(ctx, KeyConnectionIndex(owner), &ids)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []identity.ConnectionID{connID}, ids)

	found, err = s.Get(ctx, stale, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_ApplyRejectsUnencodableWithoutPartialWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()

	writes := []Write{
		{Key: KeyUser(owner), Value: &rec{Name: "ok"}},
		{Key: KeySignal(owner), Value: make(chan int)}, // not JSON-encodable
	}
	require.Error(t, s.Apply(ctx, writes, nil))

	var out rec
	found, err := s.Get(ctx, KeyUser(owner), &out)
	require.NoError(t, err)
	assert.False(t, found, "failed batch must not leave partial writes")
}

func TestStore_ListKeysSorted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a, b := identity.CircleID("circle_b"), identity.CircleID("circle_a")
	require.NoError(t, s.Set(ctx, KeySignal(a), &rec{}))
	require.NoError(t, s.Set(ctx, KeySignal(b), &rec{}))
	require.NoError(t, s.Set(ctx, KeyInviteIndex(), []string{}))

	keys, err := s.ListKeys(ctx, PrefixSignals())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, KeySignal(b).String(), keys[0])
	assert.Equal(t, KeySignal(a).String(), keys[1])
}

func TestStore_WipeLeavesZeroResidue(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend, logging.NewNop())

	owner := identity.NewCircleID()
	require.NoError(t, s.Set(ctx, KeyUser(owner), &rec{Name: "me"}))
	require.NoError(t, s.Set(ctx, KeySignal(owner), &rec{Name: "sig"}))
	require.NoError(t, s.Set(ctx, KeyInviteIndex(), []string{"x"}))

	require.NoError(t, s.Wipe(ctx))

	report, err := s.FirewallAudit(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Zero(t, report.NamespaceKeys)
}

func TestStore_WipeDoesNotTouchForeignKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend, logging.NewNop())

	// A foreign subsystem's data shares the backend.
	require.NoError(t, backend.Apply(ctx, map[string][]byte{
		"journal/v2/entry": []byte(`{}`),
	}, nil))
	require.NoError(t, s.Set(ctx, KeyUser(identity.NewCircleID()), &rec{}))

	require.NoError(t, s.Wipe(ctx))

	_, found, err := backend.Get(ctx, "journal/v2/entry")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFirewallAudit_FlagsLeakedKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend, logging.NewNop())

	// One foreign key is unrelated, two carry our identifier patterns.
	require.NoError(t, backend.Apply(ctx, map[string][]byte{
		"journal/v2/entry":            []byte(`{}`),
		"journal/v2/conn_leaked-here": []byte(`{}`),
		"export/huecircle-dump":       []byte(`{}`),
	}, nil))

	report, err := s.FirewallAudit(ctx)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.ElementsMatch(t, []string{
		"journal/v2/conn_leaked-here",
		"export/huecircle-dump",
	}, report.LeakedKeys)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()
	peer := identity.NewCircleID()

	require.NoError(t, s.Set(ctx, KeyUser(owner), &rec{}))
	require.NoError(t, s.Set(ctx, KeyUser(peer), &rec{}))
	require.NoError(t, s.Set(ctx, KeyConnection(owner, identity.NewConnectionID()), &rec{}))
	require.NoError(t, s.Set(ctx, KeySignal(owner), &rec{}))
	require.NoError(t, s.Set(ctx, KeyInvite(identity.NewInviteToken()), &rec{}))
	require.NoError(t, s.Set(ctx, KeyBlocked(owner, peer), &rec{}))

	sum, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Users)
	assert.Equal(t, 1, sum.Connections)
	assert.Equal(t, 1, sum.Signals)
	assert.Equal(t, 1, sum.Invites)
	assert.Equal(t, 1, sum.Blocked)
	assert.Equal(t, 6, sum.TotalKeys)
}

func TestSignalKeyOwner(t *testing.T) {
	owner := identity.NewCircleID()
	got, ok := SignalKeyOwner(KeySignal(owner).String())
	require.True(t, ok)
	assert.Equal(t, owner, got)

	_, ok = SignalKeyOwner(Namespace + "signal/not-a-circle-id")
	assert.False(t, ok)
	_, ok = SignalKeyOwner("foreign/signal/x")
	assert.False(t, ok)
}
