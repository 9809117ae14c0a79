package circle

import (
	"context"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/security"
	"github.com/lumela/huecircle/internal/storage"
)

// ConnectionView is the timestamp-free connection shape exposed to the UI
// layer.
type ConnectionView struct {
	ConnectionID      identity.ConnectionID   `json:"connectionId"`
	RemoteDisplayHint string                  `json:"remoteDisplayHint,omitempty"`
	Status            models.ConnectionStatus `json:"status"`
}

// Connections loads every connection record of owner via the index.
func (s *Service) Connections(ctx context.Context, owner identity.CircleID) ([]models.Connection, error) {
	if err := identity.ValidateCircleID(owner); err != nil {
		return nil, badInput(err)
	}
	var ids []identity.ConnectionID
	found, err := s.store.Get(ctx, storage.KeyConnectionIndex(owner), &ids)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	conns := make([]models.Connection, 0, len(ids))
	for _, id := range ids {
		if err := identity.ValidateConnectionID(id); err != nil {
			// Reported by IntegrityCheck; a read path must not crash on it.
			s.log.Warn(ctx, "skipping malformed connection id in index", "owner", owner, "id", id)
			continue
		}
		var conn models.Connection
		found, err := s.store.Get(ctx, storage.KeyConnection(owner, id), &conn)
		if err != nil {
			return nil, err
		}
		if !found {
			s.log.Warn(ctx, "connection index entry has no record", "owner", owner, "id", id)
			continue
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

func (s *Service) activeConnections(ctx context.Context, owner identity.CircleID) ([]models.Connection, error) {
	conns, err := s.Connections(ctx, owner)
	if err != nil {
		return nil, err
	}
	active := conns[:0]
	for _, c := range conns {
		if c.Status == models.ConnectionActive {
			active = append(active, c)
		}
	}
	return active, nil
}

// ActiveConnectionCount returns the number of active connections of owner.
func (s *Service) ActiveConnectionCount(ctx context.Context, owner identity.CircleID) (int, error) {
	active, err := s.activeConnections(ctx, owner)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// ListConnections returns owner's active connections in the UI shape;
// no timestamps appear in it.
func (s *Service) ListConnections(ctx context.Context, owner identity.CircleID) ([]ConnectionView, error) {
	active, err := s.activeConnections(ctx, owner)
	if err != nil {
		return nil, err
	}
	views := make([]ConnectionView, 0, len(active))
	for _, c := range active {
		view := ConnectionView{
			ConnectionID:      c.ID,
			RemoteDisplayHint: c.RemoteDisplayHint,
			Status:            c.Status,
		}
		if err := laws.AssertNoHistory(view); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// connection loads one record of owner, or a security error when absent.
func (s *Service) connection(ctx context.Context, owner identity.CircleID, id identity.ConnectionID) (*models.Connection, error) {
	if err := identity.ValidateConnectionID(id); err != nil {
		return nil, badInput(err)
	}
	var conn models.Connection
	found, err := s.store.Get(ctx, storage.KeyConnection(owner, id), &conn)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, security.New(security.CodeUnauthorized, "no connection %s for %s", id, owner)
	}
	return &conn, nil
}

// NewConnectionWrites builds the atomic writes that persist one side of a
// connection and its index update. It validates the aggregation ceiling
// against the owner's current active set and the symmetry sentinel before
// returning anything, so no caller can assemble an over-limit or
// asymmetric batch. The invite service folds these writes into the
// confirmation batch so connection, index, and invite status commit
// together.
func (s *Service) NewConnectionWrites(ctx context.Context, owner identity.CircleID, conn models.Connection, relationshipTag string) ([]storage.Write, error) {
	if err := identity.ValidateCircleID(owner); err != nil {
		return nil, badInput(err)
	}
	if err := identity.ValidateConnectionID(conn.ID); err != nil {
		return nil, badInput(err)
	}
	count, err := s.ActiveConnectionCount(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := laws.Screen(laws.Count(count+1), laws.Relation(relationshipTag)); err != nil {
		return nil, err
	}

	var ids []identity.ConnectionID
	if _, err := s.store.Get(ctx, storage.KeyConnectionIndex(owner), &ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id == conn.ID {
			return nil, security.New(security.CodeAlreadyConfirmed, "connection %s already exists for %s", conn.ID, owner)
		}
	}
	ids = append(ids, conn.ID)

	return []storage.Write{
		{Key: storage.KeyConnection(owner, conn.ID), Value: conn},
		{Key: storage.KeyConnectionIndex(owner), Value: ids},
	}, nil
}

// RevokeConnection marks both mirror records revoked in one atomic batch,
// so a revoked-but-still-visible state can never be observed: signal
// visibility is gated on active status, and the counterpart's stored
// signal record is removed in the same batch once no active connection of
// theirs remains. A peer's signal toward their other connections is never
// touched. Revoking an already-revoked connection is a no-op.
func (s *Service) RevokeConnection(ctx context.Context, owner identity.CircleID, id identity.ConnectionID) error {
	return s.endConnection(ctx, owner, id, models.ConnectionRevoked)
}

func (s *Service) endConnection(ctx context.Context, owner identity.CircleID, id identity.ConnectionID, status models.ConnectionStatus) error {
	if err := identity.ValidateCircleID(owner); err != nil {
		return badInput(err)
	}
	conn, err := s.connection(ctx, owner, id)
	if err != nil {
		return err
	}
	if conn.Status != models.ConnectionActive {
		return nil
	}
	now := s.now()
	conn.Status = status
	conn.StatusChangedAt = now

	writes := []storage.Write{{Key: storage.KeyConnection(owner, id), Value: conn}}
	var removes []storage.Key

	// The mirror record is revoked in the same batch; blocking is not
	// disclosed to the other side.
	mirror, err := s.mirrorConnection(ctx, conn.RemoteUserID, owner)
	if err != nil {
		return err
	}
	remaining, err := s.ActiveConnectionCount(ctx, conn.RemoteUserID)
	if err != nil {
		return err
	}
	if mirror != nil && mirror.Status == models.ConnectionActive {
		remaining--
		mirror.Status = models.ConnectionRevoked
		mirror.StatusChangedAt = now
		writes = append(writes, storage.Write{Key: storage.KeyConnection(conn.RemoteUserID, mirror.ID), Value: mirror})
	}
	// The counterpart's stored signal is deleted only when this was their
	// last active connection; otherwise it stays visible to their other
	// peers.
	if remaining <= 0 {
		removes = append(removes, storage.KeySignal(conn.RemoteUserID))
	}

	if err := s.store.Apply(ctx, writes, removes); err != nil {
		return err
	}
	s.log.Info(ctx, "connection ended", "owner", owner, "connection", id, "status", status)
	return nil
}

// mirrorConnection finds remote's record referencing owner, if any.
func (s *Service) mirrorConnection(ctx context.Context, remote, owner identity.CircleID) (*models.Connection, error) {
	conns, err := s.Connections(ctx, remote)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if conns[i].RemoteUserID == owner {
			return &conns[i], nil
		}
	}
	return nil, nil
}
