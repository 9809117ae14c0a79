package invites

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/security"
)

// DefaultScheme is the deep-link scheme the mobile shell registers.
const DefaultScheme = "huecircle"

// linkAuthority is the fixed authority segment of an invite link.
const linkAuthority = "invite"

// BuildLink renders the structured deep link for an invite:
// scheme://invite/{inviteId}/{secretToken}.
func BuildLink(scheme string, token identity.InviteToken, secret string) string {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, linkAuthority, token, secret)
}

// ParseLink parses a deep link strictly: the expected scheme, the fixed
// "invite" authority, and exactly two non-empty path segments. Anything
// else is a distinct invalid-format error; a malformed link never falls
// through to the legacy code path.
func ParseLink(scheme, raw string) (identity.InviteToken, string, error) {
	if scheme == "" {
		scheme = DefaultScheme
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", security.New(security.CodeInvalidLinkFormat, "unparseable link: %v", err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return "", "", security.New(security.CodeInvalidLinkFormat, "unexpected scheme %q", u.Scheme)
	}
	if !strings.EqualFold(u.Host, linkAuthority) {
		return "", "", security.New(security.CodeInvalidLinkFormat, "unexpected authority %q", u.Host)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", security.New(security.CodeInvalidLinkFormat, "expected exactly two path segments")
	}
	token := identity.InviteToken(segments[0])
	if err := identity.ValidateInviteToken(token); err != nil {
		return "", "", security.New(security.CodeInvalidLinkFormat, "first segment is not an invite token")
	}
	return token, segments[1], nil
}
