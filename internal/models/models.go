// Package models defines the records persisted by the presence-signal
// subsystem and the viewer-safe projection shared with peers. All records
// live exclusively under the subsystem's storage namespace.
package models

import (
	"fmt"
	"time"

	"github.com/lumela/huecircle/internal/identity"
)

// SignalColor is the single ephemeral capacity value a user shares.
type SignalColor string

const (
	ColorCyan    SignalColor = "cyan"
	ColorAmber   SignalColor = "amber"
	ColorRed     SignalColor = "red"
	ColorUnknown SignalColor = "unknown"
)

// ParseColor validates a user-supplied color value.
func ParseColor(s string) (SignalColor, error) {
	switch SignalColor(s) {
	case ColorCyan, ColorAmber, ColorRed, ColorUnknown:
		return SignalColor(s), nil
	}
	return "", fmt.Errorf("unknown signal color %q", s)
}

// LocalUser is the device-local identity. Created lazily on first use and
// never deleted except by a full wipe.
type LocalUser struct {
	ID          identity.CircleID `json:"id"`
	DisplayHint string            `json:"displayHint,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ConnectionStatus is the lifecycle state of a connection record.
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionRevoked ConnectionStatus = "revoked"
	ConnectionBlocked ConnectionStatus = "blocked"
)

// Connection is one side of a confirmed bidirectional relationship. Both
// parties hold a mirror record referencing each other; the two records are
// created in the same atomic mutation. Revoked connections lose the
// associated signal but keep the record.
type Connection struct {
	ID                identity.ConnectionID `json:"id"`
	RemoteUserID      identity.CircleID     `json:"remoteUserId"`
	RemoteDisplayHint string                `json:"remoteDisplayHint,omitempty"`
	Status            ConnectionStatus      `json:"status"`
	StatusChangedAt   time.Time             `json:"statusChangedAt"`
}

// Signal TTL bounds. A requested TTL is clamped into this window at write
// time; DefaultSignalTTL applies when the caller does not ask for one.
const (
	SignalTTLMin     = 15 * time.Minute
	SignalTTLMax     = 60 * time.Minute
	DefaultSignalTTL = 60 * time.Minute
)

// ClampSignalTTL folds a requested TTL into [SignalTTLMin, SignalTTLMax].
func ClampSignalTTL(requested time.Duration) time.Duration {
	if requested < SignalTTLMin {
		return SignalTTLMin
	}
	if requested > SignalTTLMax {
		return SignalTTLMax
	}
	return requested
}

// StoredSignal is the ephemeral presence signal. Exactly one live signal
// exists per user (overwrite semantics). An elapsed TTL makes the signal
// absent at read time; physical deletion is left to the sweep.
type StoredSignal struct {
	OwnerID      identity.CircleID `json:"ownerId"`
	Color        SignalColor       `json:"color"`
	CreatedAt    time.Time         `json:"createdAt"`
	TTLExpiresAt time.Time         `json:"ttlExpiresAt"`
}

// Expired reports whether the signal's TTL has elapsed at now.
func (s *StoredSignal) Expired(now time.Time) bool {
	return now.After(s.TTLExpiresAt)
}

// InviteStatus is the handshake state machine position of an invite.
type InviteStatus string

const (
	InvitePending   InviteStatus = "PENDING"
	InviteLocked    InviteStatus = "LOCKED"
	InviteConfirmed InviteStatus = "CONFIRMED"
	InviteExpired   InviteStatus = "EXPIRED"
	InviteRevoked   InviteStatus = "REVOKED"
)

// Invite is a pending consent exchange. Credentials are stored hashed;
// plaintext exists only in the creation response. The redeemer's handshake
// label lives here and only here; it must never be persisted into the
// resulting Connection records.
type Invite struct {
	Token       identity.InviteToken `json:"token"`
	CreatorID   identity.CircleID    `json:"creatorId"`
	DisplayCode string               `json:"displayCode"`
	PINHash     string               `json:"pinHash"`
	SecretHash  string               `json:"secretHash"`
	Status      InviteStatus         `json:"status"`

	RedeemerID          identity.CircleID `json:"redeemerId,omitempty"`
	RedeemerDisplayHint string            `json:"redeemerDisplayHint,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Extended  bool      `json:"extended"`
}

// ExpiredBy reports whether the invite's TTL has elapsed at now.
func (i *Invite) ExpiredBy(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Terminal reports whether the invite can never transition again.
func (i *Invite) Terminal() bool {
	switch i.Status {
	case InviteConfirmed, InviteExpired, InviteRevoked:
		return true
	}
	return false
}

// BlockedUser records that future connection and signal exchange with an
// identity is refused. It erases no history, there is none to erase.
type BlockedUser struct {
	BlockedUserID identity.CircleID `json:"blockedUserId"`
	BlockedAt     time.Time         `json:"blockedAt"`
}
