// Package consent defines the collaborator interfaces this subsystem
// consumes to decide whether a display name may be shared, and the
// fail-closed resolution helper every sharing path goes through.
package consent

import (
	"context"

	"github.com/lumela/huecircle/internal/identity"
)

// Service answers whether a user opted in to sharing their display name
// within the presence-signal subsystem.
type Service interface {
	DisplayNameSharingEnabled(ctx context.Context, userID identity.CircleID) (bool, error)
}

// Directory resolves a user's display name.
type Directory interface {
	DisplayName(ctx context.Context, userID identity.CircleID) (string, error)
}

// ResolveDisplayHint returns the display name to share for userID, or ""
// when the user has not opted in. Resolution is fail-closed: any error
// from either collaborator results in no hint being shared, never a
// default-to-shared.
func ResolveDisplayHint(ctx context.Context, svc Service, dir Directory, userID identity.CircleID) string {
	if svc == nil || dir == nil {
		return ""
	}
	enabled, err := svc.DisplayNameSharingEnabled(ctx, userID)
	if err != nil || !enabled {
		return ""
	}
	name, err := dir.DisplayName(ctx, userID)
	if err != nil {
		return ""
	}
	return name
}

// Static is a fixed-answer Service and Directory, used by the CLI and by
// tests. Names maps user ids to display names; Enabled gates sharing for
// every user uniformly.
type Static struct {
	Enabled bool
	Names   map[identity.CircleID]string
}

func (s *Static) DisplayNameSharingEnabled(ctx context.Context, userID identity.CircleID) (bool, error) {
	return s.Enabled, nil
}

func (s *Static) DisplayName(ctx context.Context, userID identity.CircleID) (string, error) {
	return s.Names[userID], nil
}
