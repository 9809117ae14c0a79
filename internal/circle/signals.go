package circle

import (
	"context"
	"time"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/laws"
	"github.com/lumela/huecircle/internal/models"
	"github.com/lumela/huecircle/internal/storage"
)

// SetSignal overwrites the owner's signal with the given color. The TTL is
// computed at write time as now + clamp(requested, 15m, 60m); pass zero to
// use the default TTL.
func (s *Service) SetSignal(ctx context.Context, owner identity.CircleID, color models.SignalColor, requestedTTL time.Duration) (*models.StoredSignal, error) {
	if err := identity.ValidateCircleID(owner); err != nil {
		return nil, badInput(err)
	}
	if _, err := models.ParseColor(string(color)); err != nil {
		return nil, badInput(err)
	}
	if requestedTTL == 0 {
		requestedTTL = models.DefaultSignalTTL
	}
	s.signalMu.Lock()
	defer s.signalMu.Unlock()
	now := s.now()
	sig := &models.StoredSignal{
		OwnerID:      owner,
		Color:        color,
		CreatedAt:    now,
		TTLExpiresAt: now.Add(models.ClampSignalTTL(requestedTTL)),
	}
	if err := s.store.Set(ctx, storage.KeySignal(owner), sig); err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "signal set", "owner", owner, "color", color)
	return sig, nil
}

// ClearSignal removes the owner's signal. Clearing an absent signal is a
// no-op.
func (s *Service) ClearSignal(ctx context.Context, owner identity.CircleID) error {
	if err := identity.ValidateCircleID(owner); err != nil {
		return badInput(err)
	}
	s.signalMu.Lock()
	defer s.signalMu.Unlock()
	return s.store.Remove(ctx, storage.KeySignal(owner))
}

// Signal returns the owner's live signal, or nil when none exists.
// Expiration is evaluated lazily: a signal whose TTL has elapsed is absent
// even though the record may persist until a sweep removes it.
func (s *Service) Signal(ctx context.Context, owner identity.CircleID) (*models.StoredSignal, error) {
	if err := identity.ValidateCircleID(owner); err != nil {
		return nil, badInput(err)
	}
	var sig models.StoredSignal
	found, err := s.store.Get(ctx, storage.KeySignal(owner), &sig)
	if err != nil {
		return nil, err
	}
	if !found || sig.Expired(s.now()) {
		return nil, nil
	}
	return &sig, nil
}

// SignalsForMe resolves each connected peer's signal independently and
// returns viewer-safe projections, one per active connection. Peers with
// no live signal appear with color "unknown". The batch size is bounded by
// the aggregation guardrail, and every projection is screened before it is
// returned.
func (s *Service) SignalsForMe(ctx context.Context, owner identity.CircleID) ([]map[string]any, error) {
	conns, err := s.activeConnections(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := laws.AssertNoAggregation(len(conns)); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(conns))
	for _, conn := range conns {
		color := models.ColorUnknown
		sig, err := s.Signal(ctx, conn.RemoteUserID)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			color = sig.Color
		}
		payload := models.ToViewerPayload(conn.ID, color, s.DisplayHintFor(ctx, conn.RemoteUserID))
		if err := laws.Screen(laws.Viewer(payload), laws.Payload(payload)); err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, nil
}

// SweepExpiredSignals deletes signals whose TTL has elapsed. Lazy reads
// remain authoritative; the sweep is storage hygiene. It is idempotent,
// removes everything in one atomic batch, and holds the signal lock for
// the whole scan so it never deletes a record written after its expiry
// judgment.
func (s *Service) SweepExpiredSignals(ctx context.Context) (int, error) {
	s.signalMu.Lock()
	defer s.signalMu.Unlock()
	keys, err := s.store.ListKeys(ctx, storage.PrefixSignals())
	if err != nil {
		return 0, err
	}
	now := s.now()
	stale := make([]storage.Key, 0)
	for _, raw := range keys {
		owner, ok := storage.SignalKeyOwner(raw)
		if !ok {
			continue
		}
		var sig models.StoredSignal
		found, err := s.store.Get(ctx, storage.KeySignal(owner), &sig)
		if err != nil {
			return 0, err
		}
		if found && sig.Expired(now) {
			stale = append(stale, storage.KeySignal(owner))
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := s.store.Remove(ctx, stale...); err != nil {
		return 0, err
	}
	s.log.Debug(ctx, "swept expired signals", "count", len(stale))
	return len(stale), nil
}
