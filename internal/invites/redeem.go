package invites

import (
	"context"

	"github.com/lumela/huecircle/internal/cryptox"
	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/security"
	"github.com/lumela/huecircle/internal/storage"
)

// RedeemByLink locks an invite via the structured deep-link payload. The
// optional handshake label is an ephemeral identity hint surfaced to the
// creator at confirmation time; it is stored only on the invite record and
// never copied into a Connection.
func (s *Service) RedeemByLink(ctx context.Context, redeemer identity.CircleID, scheme, rawLink, label string) (*models.Invite, error) {
	token, secret, err := ParseLink(scheme, rawLink)
	if err != nil {
		return nil, err
	}
	if !s.allowAttempt("link:" + string(token)) {
		return nil, security.ErrRateLimited
	}
	inv, err := s.invite(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.redeem(ctx, redeemer, inv, label, func(inv *models.Invite) bool {
		return cryptox.VerifySecret(secret, inv.SecretHash)
	})
}

// RedeemByCode locks an invite via the legacy display-code + 4-digit PIN
// pair, an equivalent proof of possession to the deep link.
func (s *Service) RedeemByCode(ctx context.Context, redeemer identity.CircleID, code, pin, label string) (*models.Invite, error) {
	code = identity.NormalizeDisplayCode(code)
	if !identity.IsDisplayCodeFormat(code) || !identity.IsPINFormat(pin) {
		return nil, security.ErrInvalidCredentials
	}
	if !s.allowAttempt("code:" + code) {
		return nil, security.ErrRateLimited
	}
	inv, err := s.inviteByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.redeem(ctx, redeemer, inv, label, func(inv *models.Invite) bool {
		return cryptox.VerifySecret(pin, inv.PINHash)
	})
}

// redeem runs the PENDING→LOCKED transition. Failure modes are distinct,
// enumerable security codes; the self-redeem check precedes credential
// verification so redeeming one's own invite always reports self-redeem.
func (s *Service) redeem(ctx context.Context, redeemer identity.CircleID, inv *models.Invite, label string, proof func(*models.Invite) bool) (*models.Invite, error) {
	if _, err := s.circle.LocalUser(ctx, redeemer); err != nil {
		return nil, err
	}
	if inv.CreatorID == redeemer {
		return nil, security.ErrSelfRedeem
	}
	if inv.Status == models.InviteLocked {
		return nil, security.ErrInviteLocked
	}
	if err := s.gateLifecycle(inv); err != nil {
		return nil, err
	}
	if !proof(inv) {
		return nil, security.ErrInvalidCredentials
	}
	blocked, err := s.circle.IsBlocked(ctx, inv.CreatorID, redeemer)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, security.ErrBlockedUser
	}
	count, err := s.circle.ActiveConnectionCount(ctx, inv.CreatorID)
	if err != nil {
		return nil, err
	}
	if count >= laws.MaxConnections {
		return nil, security.ErrConnectionLimit
	}

	inv.Status = models.InviteLocked
	inv.RedeemerID = redeemer
	inv.RedeemerDisplayHint = truncateLabel(label)
	if err := s.store.Set(ctx, storage.KeyInvite(inv.Token), inv); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "invite locked", "invite", inv.Token, "redeemer", redeemer)
	return inv, nil
}

// inviteByCode resolves a normalized display code to its invite record.
func (s *Service) inviteByCode(ctx context.Context, code string) (*models.Invite, error) {
	tokens, err := s.inviteIndex(ctx)
	if err != nil {
		return nil, err
	}
	for _, token := range tokens {
		var inv models.Invite
		found, err := s.store.Get(ctx, storage.KeyInvite(token), &inv)
		if err != nil {
			return nil, err
		}
		if found && inv.DisplayCode == code {
			return &inv, nil
		}
	}
	return nil, security.ErrInviteNotFound
}
