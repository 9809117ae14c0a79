package circle

import (
	"context"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/storage"
)

// BlockConnection blocks the user behind an existing connection: the
// owner's record turns blocked, the mirror is revoked, the peer's signal
// disappears, and a BlockedUser record is written, all in atomic steps
// ordered so no blocked-but-visible state is observable.
func (s *Service) BlockConnection(ctx context.Context, owner identity.CircleID, id identity.ConnectionID) error {
	conn, err := s.connection(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.blockRecord(ctx, owner, conn.RemoteUserID); err != nil {
		return err
	}
	return s.endConnection(ctx, owner, id, models.ConnectionBlocked)
}

// BlockUser blocks an identity regardless of whether a connection exists,
// preventing future connection and signal exchange with it. Existing
// connections to that identity are blocked as well.
func (s *Service) BlockUser(ctx context.Context, owner, remote identity.CircleID) error {
	if err := identity.ValidateCircleID(owner); err != nil {
		return badInput(err)
	}
	if err := identity.ValidateCircleID(remote); err != nil {
		return badInput(err)
	}
	if err := s.blockRecord(ctx, owner, remote); err != nil {
		return err
	}
	conns, err := s.Connections(ctx, owner)
	if err != nil {
		return err
	}
	for _, c := range conns {
		if c.RemoteUserID == remote && c.Status == models.ConnectionActive {
			if err := s.endConnection(ctx, owner, c.ID, models.ConnectionBlocked); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) blockRecord(ctx context.Context, owner, remote identity.CircleID) error {
	rec := &models.BlockedUser{BlockedUserID: remote, BlockedAt: s.now()}
	return s.store.Set(ctx, storage.KeyBlocked(owner, remote), rec)
}

// Unblock removes the block record. It does not resurrect any connection;
// a new handshake is required.
func (s *Service) Unblock(ctx context.Context, owner, remote identity.CircleID) error {
	if err := identity.ValidateCircleID(owner); err != nil {
		return badInput(err)
	}
	if err := identity.ValidateCircleID(remote); err != nil {
		return badInput(err)
	}
	return s.store.Remove(ctx, storage.KeyBlocked(owner, remote))
}

// IsBlocked reports whether either party has blocked the other.
func (s *Service) IsBlocked(ctx context.Context, a, b identity.CircleID) (bool, error) {
	var rec models.BlockedUser
	found, err := s.store.Get(ctx, storage.KeyBlocked(a, b), &rec)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}
	found, err = s.store.Get(ctx, storage.KeyBlocked(b, a), &rec)
	if err != nil {
		return false, err
	}
	return found, nil
}
