// Package storage implements the namespace-isolated, atomically-mutated
// key-value layer of the presence-signal subsystem. Every key is produced
// by a typed builder that guarantees the single namespace prefix; the
// store additionally re-checks the prefix at runtime as a defense-in-depth
// backstop before any read or write touches the backend.
package storage

import (
	"strings"

	"github.com/lumela/huecircle/internal/identity"
)

// Namespace is the single prefix under which every subsystem key lives.
// Nothing outside it may be read, written, or referenced (the social
// firewall invariant).
const Namespace = "huecircle/v1/"

// Key is a validated, namespace-guaranteed storage key. The only way to
// obtain one is through the typed builders below.
type Key struct {
	raw string
}

func (k Key) String() string { return k.raw }

func makeKey(parts ...string) Key {
	return Key{raw: Namespace + strings.Join(parts, "/")}
}

// inNamespace is the runtime backstop behind the type-level guarantee.
func inNamespace(raw string) bool {
	return strings.HasPrefix(raw, Namespace) && len(raw) > len(Namespace)
}

// KeyDeviceUser points at the device's own LocalUser id.
func KeyDeviceUser() Key { return makeKey("device", "user") }

// KeyUser stores a LocalUser record.
func KeyUser(id identity.CircleID) Key { return makeKey("user", string(id)) }

// KeyConnection stores one side of a connection, scoped to its owner.
func KeyConnection(owner identity.CircleID, id identity.ConnectionID) Key {
	return makeKey("conn", string(owner), string(id))
}

// KeyConnectionIndex stores the owner's connection-id list. The index is a
// cache over the records, never the source of truth.
func KeyConnectionIndex(owner identity.CircleID) Key {
	return makeKey("connidx", string(owner))
}

// KeySignal stores the owner's single live signal.
func KeySignal(owner identity.CircleID) Key { return makeKey("signal", string(owner)) }

// KeyInvite stores an invite record.
func KeyInvite(tok identity.InviteToken) Key { return makeKey("invite", string(tok)) }

// KeyInviteIndex stores the invite-token list.
func KeyInviteIndex() Key { return makeKey("inviteidx") }

// KeyBlocked stores one blocked-user record, scoped to who did the blocking.
func KeyBlocked(owner, blocked identity.CircleID) Key {
	return makeKey("blocked", string(owner), string(blocked))
}

// SignalKeyOwner extracts and validates the owner id embedded in a raw
// signal key, for audit and sweep scans.
func SignalKeyOwner(raw string) (identity.CircleID, bool) {
	const p = Namespace + "signal/"
	if !strings.HasPrefix(raw, p) {
		return "", false
	}
	owner := identity.CircleID(strings.TrimPrefix(raw, p))
	if identity.ValidateCircleID(owner) != nil {
		return "", false
	}
	return owner, true
}

// Prefix is a validated, namespace-guaranteed key prefix for range scans.
type Prefix struct {
	raw string
}

func (p Prefix) String() string { return p.raw }

func makePrefix(parts ...string) Prefix {
	return Prefix{raw: Namespace + strings.Join(parts, "/") + "/"}
}

// PrefixAll spans the whole namespace.
func PrefixAll() Prefix { return Prefix{raw: Namespace} }

// PrefixUsers spans all LocalUser records.
func PrefixUsers() Prefix { return makePrefix("user") }

// PrefixConnections spans one owner's connection records.
func PrefixConnections(owner identity.CircleID) Prefix {
	return makePrefix("conn", string(owner))
}

// PrefixAllConnections spans every connection record.
func PrefixAllConnections() Prefix { return makePrefix("conn") }

// PrefixConnectionIndexes spans every connection index.
func PrefixConnectionIndexes() Prefix { return makePrefix("connidx") }

// PrefixSignals spans all stored signals.
func PrefixSignals() Prefix { return makePrefix("signal") }

// PrefixInvites spans all invite records.
func PrefixInvites() Prefix { return makePrefix("invite") }

// PrefixBlocked spans one owner's blocked-user records.
func PrefixBlocked(owner identity.CircleID) Prefix {
	return makePrefix("blocked", string(owner))
}

// PrefixAllBlocked spans every blocked-user record.
func PrefixAllBlocked() Prefix { return makePrefix("blocked") }
