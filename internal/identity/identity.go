// Package identity generates and validates the cryptographically-random,
// prefix-tagged identifiers used by the presence-signal subsystem. Every
// storage and protocol operation validates identifier format before
// trusting it, so a corrupted or foreign key cannot silently enter
// protocol logic.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedID is wrapped by every validation failure in this package.
var ErrMalformedID = errors.New("malformed identifier")

const (
	circlePrefix     = "circle_"
	connectionPrefix = "conn_"
	invitePrefix     = "inv_"
)

// CircleID identifies a user within the subsystem.
type CircleID string

// ConnectionID identifies a confirmed bidirectional connection.
type ConnectionID string

// InviteToken identifies an invite throughout its lifecycle.
type InviteToken string

// NewCircleID returns a fresh, prefix-tagged user identifier.
func NewCircleID() CircleID {
	return CircleID(circlePrefix + uuid.NewString())
}

// NewConnectionID returns a fresh, prefix-tagged connection identifier.
func NewConnectionID() ConnectionID {
	return ConnectionID(connectionPrefix + uuid.NewString())
}

// NewInviteToken returns a fresh, prefix-tagged invite token.
func NewInviteToken() InviteToken {
	return InviteToken(invitePrefix + uuid.NewString())
}

// IsCircleIDFormat reports whether s is a well-formed CircleID.
func IsCircleIDFormat(s string) bool {
	return hasValidSuffix(s, circlePrefix)
}

// IsConnectionIDFormat reports whether s is a well-formed ConnectionID.
func IsConnectionIDFormat(s string) bool {
	return hasValidSuffix(s, connectionPrefix)
}

// IsInviteTokenFormat reports whether s is a well-formed InviteToken.
func IsInviteTokenFormat(s string) bool {
	return hasValidSuffix(s, invitePrefix)
}

// ValidateCircleID returns an error wrapping ErrMalformedID unless id is a
// well-formed CircleID.
func ValidateCircleID(id CircleID) error {
	if !IsCircleIDFormat(string(id)) {
		return fmt.Errorf("%w: %q is not a circle id", ErrMalformedID, id)
	}
	return nil
}

// ValidateConnectionID returns an error wrapping ErrMalformedID unless id
// is a well-formed ConnectionID.
func ValidateConnectionID(id ConnectionID) error {
	if !IsConnectionIDFormat(string(id)) {
		return fmt.Errorf("%w: %q is not a connection id", ErrMalformedID, id)
	}
	return nil
}

// ValidateInviteToken returns an error wrapping ErrMalformedID unless tok
// is a well-formed InviteToken.
func ValidateInviteToken(tok InviteToken) error {
	if !IsInviteTokenFormat(string(tok)) {
		return fmt.Errorf("%w: %q is not an invite token", ErrMalformedID, tok)
	}
	return nil
}

func hasValidSuffix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(s, prefix))
	return err == nil
}
