// Package circle implements the signal and connection model: the device's
// local identity, the ephemeral TTL-bound presence signal, and the
// symmetric connection records. Every mutation validates identifiers and
// runs the relevant guardrails before touching storage; multi-key changes
// go through a single atomic batch.
package circle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumela/huecircle/internal/consent"
	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/logging"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/security"
	"github.com/lumela/huecircle/internal/storage"
)

// Service exposes signal and connection operations. All state lives in the
// injected store; the clock is injected so TTL behavior is testable.
type Service struct {
	store     *storage.Store
	consent   consent.Service
	directory consent.Directory
	log       logging.Logger
	now       func() time.Time

	// signalMu serializes the background expiry sweep with foreground
	// signal writes. Without it the sweep could judge a signal expired,
	// lose the race to an overwrite, and then delete the fresh record.
	signalMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a circle service. consentSvc and directory may be nil;
// display hints then resolve to empty (fail-closed).
func NewService(store *storage.Store, consentSvc consent.Service, directory consent.Directory, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		consent:   consentSvc,
		directory: directory,
		log:       log.With("component", "circle"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service's current time. Exposed so sibling services
// share the same injected clock.
func (s *Service) Now() time.Time { return s.now() }

// InitDeviceIdentity loads the device's LocalUser, creating it lazily on
// first use. The identity is never deleted except by a full wipe.
func (s *Service) InitDeviceIdentity(ctx context.Context, displayHint string) (*models.LocalUser, error) {
	var id identity.CircleID
	found, err := s.store.Get(ctx, storage.KeyDeviceUser(), &id)
	if err != nil {
		return nil, err
	}
	if found {
		return s.LocalUser(ctx, id)
	}

	user := &models.LocalUser{
		ID:          identity.NewCircleID(),
		DisplayHint: displayHint,
		CreatedAt:   s.now(),
	}
	err = s.store.Apply(ctx, []storage.Write{
		{Key: storage.KeyDeviceUser(), Value: user.ID},
		{Key: storage.KeyUser(user.ID), Value: user},
	}, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "device identity created", "user", user.ID)
	return user, nil
}

// CreateLocalUser creates an additional local identity. The CLI uses it to
// simulate the remote party of a handshake; production devices hold
// exactly one identity via InitDeviceIdentity.
func (s *Service) CreateLocalUser(ctx context.Context, displayHint string) (*models.LocalUser, error) {
	user := &models.LocalUser{
		ID:          identity.NewCircleID(),
		DisplayHint: displayHint,
		CreatedAt:   s.now(),
	}
	if err := s.store.Set(ctx, storage.KeyUser(user.ID), user); err != nil {
		return nil, err
	}
	return user, nil
}

// LocalUser loads a user record, validating the id format before trusting
// it.
func (s *Service) LocalUser(ctx context.Context, id identity.CircleID) (*models.LocalUser, error) {
	if err := identity.ValidateCircleID(id); err != nil {
		return nil, err
	}
	var user models.LocalUser
	found, err := s.store.Get(ctx, storage.KeyUser(id), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, security.New(security.CodeUnauthorized, "no local user %s", id)
	}
	return &user, nil
}

// DisplayHintFor returns the display name to share for userID, resolved
// fail-closed through the consent collaborators: any resolution error
// yields no hint, never a default-to-shared.
func (s *Service) DisplayHintFor(ctx context.Context, userID identity.CircleID) string {
	return consent.ResolveDisplayHint(ctx, s.consent, s.directory, userID)
}

func badInput(err error) error {
	return fmt.Errorf("invalid input: %w", err)
}
