package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/logging"
	"github.com/lumela/huecircle/internal/models"
)

func findingKinds(findings []Finding) []string {
	kinds := make([]string, 0, len(findings))
	for _, f := range findings {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

func TestIntegrityCheck_CleanStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()
	connID := identity.NewConnectionID()

	require.NoError(t, s.Apply(ctx, []Write{
		{Key: KeyConnection(owner, connID), Value: &models.Connection{ID: connID, Status: models.ConnectionActive}},
		{Key: KeyConnectionIndex(owner), Value: []identity.ConnectionID{connID}},
	}, nil))

	tok := identity.NewInviteToken()
	require.NoError(t, s.Apply(ctx, []Write{
		{Key: KeyInvite(tok), Value: &models.Invite{Token: tok}},
		{Key: KeyInviteIndex(), Value: []identity.InviteToken{tok}},
	}, nil))

	findings, err := s.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestIntegrityCheck_DanglingIndexEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()

	// Index lists a connection that has no record.
	ghost := identity.NewConnectionID()
	require.NoError(t, s.Set(ctx, KeyConnectionIndex(owner), []identity.ConnectionID{ghost}))

	findings, err := s.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.Contains(t, findingKinds(findings), FindingDanglingIndexEntry)
}

func TestIntegrityCheck_UnindexedRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()
	connID := identity.NewConnectionID()

	require.NoError(t, s.Set(ctx, KeyConnection(owner, connID),
		&models.Connection{ID: connID, Status: models.ConnectionActive}))

	findings, err := s.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.Contains(t, findingKinds(findings), FindingUnindexedRecord)
}

func TestIntegrityCheck_MalformedKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend, logging.NewNop())

	require.NoError(t, backend.Apply(ctx, map[string][]byte{
		Namespace + "conn/not-an-owner/conn_x": []byte(`{}`),
		Namespace + "invite/not-a-token":       []byte(`{}`),
	}, nil))

	findings, err := s.IntegrityCheck(ctx)
	require.NoError(t, err)
	kinds := findingKinds(findings)
	count := 0
	for _, k := range kinds {
		if k == FindingMalformedKey {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestIntegrityCheck_CeilingExceeded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := identity.NewCircleID()

	ids := make([]identity.ConnectionID, 0, 26)
	writes := make([]Write, 0, 27)
	for i := 0; i < 26; i++ {
		id := identity.NewConnectionID()
		ids = append(ids, id)
		writes = append(writes, Write{
			Key:   KeyConnection(owner, id),
			Value: &models.Connection{ID: id, Status: models.ConnectionActive},
		})
	}
	writes = append(writes, Write{Key: KeyConnectionIndex(owner), Value: ids})
	require.NoError(t, s.Apply(ctx, writes, nil))

	findings, err := s.IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.Contains(t, findingKinds(findings), FindingCeilingExceeded)
}
