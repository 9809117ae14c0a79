// Package security defines the typed, user-recoverable protocol errors of
// the presence-signal subsystem. Every error carries a stable, machine-
// readable code suitable for audit logs and UI error mapping. Callers match
// them with errors.Is against the exported sentinel values.
//
// These are the expected failures of normal usage (wrong PIN, expired
// invite, connection ceiling reached). They are disjoint from guardrail
// violations (see the laws package), which are programmer errors and must
// never be caught and suppressed.
package security

import "fmt"

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeRateLimited        Code = "rate-limited"
	CodeInviteExpired      Code = "invite-expired"
	CodeInviteLocked       Code = "invite-locked"
	CodeInviteRevoked      Code = "invite-revoked"
	CodeInviteNotFound     Code = "invite-not-found"
	CodeInviteExtended     Code = "invite-already-extended"
	CodeInvalidCredentials Code = "invalid-credentials"
	CodeInvalidLinkFormat  Code = "invalid-link-format"
	CodeSelfRedeem         Code = "self-redeem"
	CodeHandshakeRejected  Code = "handshake-rejected"
	CodeAlreadyConfirmed   Code = "already-confirmed"
	CodeUnauthorized       Code = "unauthorized"
	CodeConnectionLimit    Code = "connection-limit-reached"
	CodeBlockedUser        Code = "connection-blocked-user"
)

// Error is a protocol-level security error. It is expected, recoverable,
// and mapped to its Code at the UI boundary.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is a security Error with the same code, so
// errors.Is(err, security.ErrRateLimited) matches wrapped and annotated
// instances alike.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns an Error with the given code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinel values for errors.Is matching. Each operation that can fail in
// one of these ways returns either the sentinel itself or an Error created
// via New with the same code.
var (
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "too many attempts, try again later"}
	ErrInviteExpired      = &Error{Code: CodeInviteExpired, Message: "invite has expired"}
	ErrInviteLocked       = &Error{Code: CodeInviteLocked, Message: "invite is already locked by another redemption"}
	ErrInviteRevoked      = &Error{Code: CodeInviteRevoked, Message: "invite was revoked"}
	ErrInviteNotFound     = &Error{Code: CodeInviteNotFound, Message: "invite not found"}
	ErrInviteExtended     = &Error{Code: CodeInviteExtended, Message: "invite was already extended once"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid invite credentials"}
	ErrInvalidLinkFormat  = &Error{Code: CodeInvalidLinkFormat, Message: "malformed invite link"}
	ErrSelfRedeem         = &Error{Code: CodeSelfRedeem, Message: "cannot redeem your own invite"}
	ErrHandshakeRejected  = &Error{Code: CodeHandshakeRejected, Message: "handshake was rejected"}
	ErrAlreadyConfirmed   = &Error{Code: CodeAlreadyConfirmed, Message: "invite is already confirmed"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "caller is not authorized for this operation"}
	ErrConnectionLimit    = &Error{Code: CodeConnectionLimit, Message: "connection limit reached"}
	ErrBlockedUser        = &Error{Code: CodeBlockedUser, Message: "user is blocked"}
)
