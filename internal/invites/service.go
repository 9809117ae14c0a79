// Package invites implements the two-party consent handshake that turns an
// unauthenticated "I want to connect" action into a confirmed bidirectional
// connection.
//
// State machine (the creator alone owns terminal transitions):
//
//	PENDING --(redeem by peer)--> LOCKED --(creator confirms)--> CONFIRMED
//	PENDING --(TTL elapsed)-----> EXPIRED
//	PENDING --(creator cancels)-> REVOKED
//	LOCKED  --(creator rejects)-> REVOKED  (not re-redeemable)
//	LOCKED  --(TTL elapsed)-----> EXPIRED
package invites

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumela/huecircle/internal/circle"
	"github.com/lumela/huecircle/internal/cryptox"
	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/logging"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/security"
	"github.com/lumela/huecircle/internal/storage"
)

const (
	// DefaultInviteTTL is how long a fresh invite stays redeemable.
	DefaultInviteTTL = 24 * time.Hour

	// ExtensionTTL is the single allowed extension.
	ExtensionTTL = 30 * time.Minute

	// maxLabelLength bounds the ephemeral handshake label.
	maxLabelLength = 64
)

// Service drives the invite lifecycle. It shares the circle service's
// store and clock so confirmation can commit connections, indexes, and the
// invite status in one atomic batch.
type Service struct {
	store  *storage.Store
	circle *circle.Service
	log    logging.Logger

	// indexMu serializes read-modify-write of the invite index between
	// foreground creates and the janitor's cleanup, so a token appended
	// mid-sweep is never dropped by the sweep's index rewrite.
	indexMu sync.Mutex

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
	every    time.Duration
	burst    int
}

// Option configures a Service.
type Option func(*Service)

// WithRedemptionLimit tunes the per-source redemption rate limit.
func WithRedemptionLimit(every time.Duration, burst int) Option {
	return func(s *Service) {
		s.every = every
		s.burst = burst
	}
}

// NewService wires an invite service on top of the circle service.
func NewService(store *storage.Store, circleSvc *circle.Service, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		circle:   circleSvc,
		log:      log.With("component", "invites"),
		limiters: make(map[string]*rate.Limiter),
		every:    10 * time.Second,
		burst:    5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Credentials is the one-time creation response. The PIN and secret token
// exist in plaintext only here; storage keeps argon2 hashes.
type Credentials struct {
	Token       identity.InviteToken
	DisplayCode string
	PIN         string
	SecretToken string
	ExpiresAt   time.Time
}

// Create issues a new PENDING invite owned by creator.
func (s *Service) Create(ctx context.Context, creator identity.CircleID) (*Credentials, error) {
	if _, err := s.circle.LocalUser(ctx, creator); err != nil {
		return nil, err
	}

	code, err := identity.NewDisplayCode()
	if err != nil {
		return nil, err
	}
	pin, err := identity.NewPIN()
	if err != nil {
		return nil, err
	}
	secret, err := identity.NewSecretToken()
	if err != nil {
		return nil, err
	}
	pinHash, err := cryptox.HashSecret(pin)
	if err != nil {
		return nil, err
	}
	secretHash, err := cryptox.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	now := s.circle.Now()
	inv := &models.Invite{
		Token:       identity.NewInviteToken(),
		CreatorID:   creator,
		DisplayCode: code,
		PINHash:     pinHash,
		SecretHash:  secretHash,
		Status:      models.InvitePending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultInviteTTL),
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	tokens, err := s.inviteIndex(ctx)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, inv.Token)

	err = s.store.Apply(ctx, []storage.Write{
		{Key: storage.KeyInvite(inv.Token), Value: inv},
		{Key: storage.KeyInviteIndex(), Value: tokens},
	}, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "invite created", "invite", inv.Token, "creator", creator)

	return &Credentials{
		Token:       inv.Token,
		DisplayCode: code,
		PIN:         pin,
		SecretToken: secret,
		ExpiresAt:   inv.ExpiresAt,
	}, nil
}

// Extend pushes the invite's expiry out by ExtensionTTL, once. A second
// extension fails, and extension at or after expiry is a normal expired
// error; it never silently succeeds.
func (s *Service) Extend(ctx context.Context, caller identity.CircleID, token identity.InviteToken) (*models.Invite, error) {
	inv, err := s.invite(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.CreatorID != caller {
		return nil, security.ErrUnauthorized
	}
	if err := s.gateLifecycle(inv); err != nil {
		return nil, err
	}
	if inv.Extended {
		return nil, security.ErrInviteExtended
	}
	inv.ExpiresAt = inv.ExpiresAt.Add(ExtensionTTL)
	inv.Extended = true
	if err := s.store.Set(ctx, storage.KeyInvite(inv.Token), inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Revoke cancels a PENDING invite. Revoking an already-revoked invite is a
// no-op; a LOCKED invite must be rejected instead.
func (s *Service) Revoke(ctx context.Context, caller identity.CircleID, token identity.InviteToken) error {
	inv, err := s.invite(ctx, token)
	if err != nil {
		return err
	}
	if inv.CreatorID != caller {
		return security.ErrUnauthorized
	}
	switch {
	case inv.Status == models.InviteRevoked:
		return nil
	case inv.Status == models.InviteConfirmed:
		return security.ErrAlreadyConfirmed
	case inv.Status == models.InviteLocked:
		return security.ErrInviteLocked
	case inv.Status == models.InviteExpired || inv.ExpiredBy(s.circle.Now()):
		return security.ErrInviteExpired
	}
	inv.Status = models.InviteRevoked
	if err := s.store.Set(ctx, storage.KeyInvite(inv.Token), inv); err != nil {
		return err
	}
	s.log.Info(ctx, "invite revoked", "invite", token)
	return nil
}

// gateLifecycle maps a non-PENDING or expired invite to its security error.
func (s *Service) gateLifecycle(inv *models.Invite) error {
	switch inv.Status {
	case models.InviteRevoked:
		return security.ErrInviteRevoked
	case models.InviteConfirmed:
		return security.ErrAlreadyConfirmed
	case models.InviteExpired:
		return security.ErrInviteExpired
	}
	if inv.ExpiredBy(s.circle.Now()) {
		return security.ErrInviteExpired
	}
	return nil
}

// invite loads and format-validates a record, mapping absence to the
// not-found security error.
func (s *Service) invite(ctx context.Context, token identity.InviteToken) (*models.Invite, error) {
	if err := identity.ValidateInviteToken(token); err != nil {
		return nil, security.ErrInviteNotFound
	}
	var inv models.Invite
	found, err := s.store.Get(ctx, storage.KeyInvite(token), &inv)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, security.ErrInviteNotFound
	}
	return &inv, nil
}

func (s *Service) inviteIndex(ctx context.Context) ([]identity.InviteToken, error) {
	var tokens []identity.InviteToken
	if _, err := s.store.Get(ctx, storage.KeyInviteIndex(), &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// allowAttempt enforces the per-source redemption rate limit.
func (s *Service) allowAttempt(source string) bool {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()
	lim, ok := s.limiters[source]
	if !ok {
		lim = rate.NewLimiter(rate.Every(s.every), s.burst)
		s.limiters[source] = lim
	}
	return lim.Allow()
}

func truncateLabel(label string) string {
	if len(label) > maxLabelLength {
		return label[:maxLabelLength]
	}
	return label
}
