package invites

import (
	"context"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/security"
	"github.com/lumela/huecircle/internal/storage"
)

// PendingConfirmation is one redemption awaiting the creator's decision.
// The handshake label is read from the invite record itself, never from
// caller-supplied parameters, and the shape carries no timestamps.
type PendingConfirmation struct {
	InviteID       identity.InviteToken `json:"inviteId"`
	HandshakeLabel string               `json:"handshakeLabel,omitempty"`
}

// ListPendingConfirmations returns the creator's LOCKED, unexpired invites.
func (s *Service) ListPendingConfirmations(ctx context.Context, creator identity.CircleID) ([]PendingConfirmation, error) {
	tokens, err := s.inviteIndex(ctx)
	if err != nil {
		return nil, err
	}
	now := s.circle.Now()
	out := make([]PendingConfirmation, 0)
	for _, token := range tokens {
		var inv models.Invite
		found, err := s.store.Get(ctx, storage.KeyInvite(token), &inv)
		if err != nil {
			return nil, err
		}
		if !found || inv.CreatorID != creator || inv.Status != models.InviteLocked || inv.ExpiredBy(now) {
			continue
		}
		entry := PendingConfirmation{InviteID: inv.Token, HandshakeLabel: inv.RedeemerDisplayHint}
		if err := laws.AssertNoHistory(entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// ConfirmResult describes the connection created on the creator's side.
type ConfirmResult struct {
	ConnectionID identity.ConnectionID
	RemoteUserID identity.CircleID
}

// Confirm is the only path that creates Connections. It validates the
// creator's aggregation ceiling and the bidirectional sentinel, then
// commits both mirror connection records, both index updates, and the
// CONFIRMED invite status in a single atomic batch, so the 26th
// connection fails before any storage mutation occurs.
//
// The confirmation is addressed by invite identifier only; the handshake
// label plays no part in it and is dropped with the invite at cleanup.
func (s *Service) Confirm(ctx context.Context, creator identity.CircleID, token identity.InviteToken) (*ConfirmResult, error) {
	inv, err := s.invite(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.CreatorID != creator {
		return nil, security.ErrUnauthorized
	}
	if inv.Status == models.InvitePending {
		return nil, security.New(security.CodeInviteNotFound, "invite %s has no redemption awaiting confirmation", token)
	}
	if err := s.gateLifecycle(inv); err != nil {
		return nil, err
	}
	blocked, err := s.circle.IsBlocked(ctx, creator, inv.RedeemerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, security.ErrBlockedUser
	}

	now := s.circle.Now()
	creatorConn := models.Connection{
		ID:                identity.NewConnectionID(),
		RemoteUserID:      inv.RedeemerID,
		RemoteDisplayHint: s.displayHint(ctx, inv.RedeemerID),
		Status:            models.ConnectionActive,
		StatusChangedAt:   now,
	}
	redeemerConn := models.Connection{
		ID:                identity.NewConnectionID(),
		RemoteUserID:      creator,
		RemoteDisplayHint: s.displayHint(ctx, creator),
		Status:            models.ConnectionActive,
		StatusChangedAt:   now,
	}

	writes, err := s.circle.NewConnectionWrites(ctx, creator, creatorConn, laws.RelationBidirectional)
	if err != nil {
		return nil, err
	}
	mirror, err := s.circle.NewConnectionWrites(ctx, inv.RedeemerID, redeemerConn, laws.RelationBidirectional)
	if err != nil {
		return nil, err
	}
	writes = append(writes, mirror...)

	inv.Status = models.InviteConfirmed
	writes = append(writes, storage.Write{Key: storage.KeyInvite(inv.Token), Value: inv})

	if err := s.store.Apply(ctx, writes, nil); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "handshake confirmed", "invite", token, "creator", creator, "redeemer", inv.RedeemerID)
	return &ConfirmResult{ConnectionID: creatorConn.ID, RemoteUserID: inv.RedeemerID}, nil
}

// Reject invalidates a locked handshake. The invite does not become
// re-redeemable; the redeemer observes the outcome via HandshakeOutcome.
func (s *Service) Reject(ctx context.Context, creator identity.CircleID, token identity.InviteToken) error {
	inv, err := s.invite(ctx, token)
	if err != nil {
		return err
	}
	if inv.CreatorID != creator {
		return security.ErrUnauthorized
	}
	if inv.Status == models.InvitePending {
		return security.New(security.CodeInviteNotFound, "invite %s has no redemption to reject", token)
	}
	if err := s.gateLifecycle(inv); err != nil {
		return err
	}
	inv.Status = models.InviteRevoked
	inv.RedeemerDisplayHint = ""
	if err := s.store.Set(ctx, storage.KeyInvite(inv.Token), inv); err != nil {
		return err
	}
	s.log.Info(ctx, "handshake rejected", "invite", token)
	return nil
}

// HandshakeOutcome tells a redeemer how their locked redemption ended:
// nil once confirmed, handshake-rejected after a rejection, invite-locked
// while the creator has not decided, and the usual lifecycle errors
// otherwise.
func (s *Service) HandshakeOutcome(ctx context.Context, redeemer identity.CircleID, token identity.InviteToken) error {
	inv, err := s.invite(ctx, token)
	if err != nil {
		return err
	}
	if inv.RedeemerID != redeemer {
		return security.ErrUnauthorized
	}
	switch inv.Status {
	case models.InviteConfirmed:
		return nil
	case models.InviteRevoked:
		return security.ErrHandshakeRejected
	case models.InviteLocked:
		if inv.ExpiredBy(s.circle.Now()) {
			return security.ErrInviteExpired
		}
		return security.ErrInviteLocked
	default:
		return security.ErrInviteExpired
	}
}

// Cleanup deletes every invite that is expired-by-time or already used
// (confirmed, revoked, or marked expired), updating the index in the same
// atomic batch. It is idempotent and safe to run on any schedule; the
// index lock keeps its rewrite from dropping a token a concurrent Create
// appends.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	tokens, err := s.inviteIndex(ctx)
	if err != nil {
		return 0, err
	}
	now := s.circle.Now()
	keep := make([]identity.InviteToken, 0, len(tokens))
	removes := make([]storage.Key, 0)
	for _, token := range tokens {
		var inv models.Invite
		found, err := s.store.Get(ctx, storage.KeyInvite(token), &inv)
		if err != nil {
			return 0, err
		}
		if !found {
			continue // dangling index entry, drop it
		}
		if inv.Terminal() || inv.ExpiredBy(now) {
			removes = append(removes, storage.KeyInvite(token))
			continue
		}
		keep = append(keep, token)
	}
	if len(removes) == 0 && len(keep) == len(tokens) {
		return 0, nil
	}
	err = s.store.Apply(ctx, []storage.Write{
		{Key: storage.KeyInviteIndex(), Value: keep},
	}, removes)
	if err != nil {
		return 0, err
	}
	s.log.Debug(ctx, "invite cleanup", "removed", len(removes))
	return len(removes), nil
}

// displayHint resolves a consent-gated display name through the circle
// service, fail-closed.
func (s *Service) displayHint(ctx context.Context, userID identity.CircleID) string {
	return s.circle.DisplayHintFor(ctx, userID)
}
