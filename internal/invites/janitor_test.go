package invites

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumela/huecircle/internal/logging"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/storage"
)

func TestJanitorRunsSweeps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.user(t, "Alice")

	creds, err := h.invites.Create(ctx, alice)
	require.NoError(t, err)
	h.clock.Advance(25 * time.Hour)

	var extraCalls atomic.Int64
	j := NewJanitor(h.invites, 5*time.Millisecond, logging.NewNop(), func(context.Context) (int, error) {
		extraCalls.Add(1)
		return 0, nil
	})
	j.Start()

	deadline := time.After(2 * time.Second)
	for extraCalls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("janitor never ran its sweeps")
		case <-time.After(5 * time.Millisecond):
		}
	}
	j.Stop()

	var inv models.Invite
	found, err := h.store.Get(ctx, storage.KeyInvite(creds.Token), &inv)
	require.NoError(t, err)
	assert.False(t, found, "expired invite should have been swept")
}

func TestJanitorStopTerminates(t *testing.T) {
	h := newHarness(t)
	j := NewJanitor(h.invites, time.Hour, logging.NewNop())
	j.Start()

	done := make(chan struct{})
	go func() {
		j.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
