package invites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumela/huecircle/internal/identity"
	"github.com/lumela/huecircle/internal/security"
)

func TestBuildAndParseLink(t *testing.T) {
	token := identity.NewInviteToken()
	link := BuildLink("", token, "deadbeef")
	assert.Equal(t, "huecircle://invite/"+string(token)+"/deadbeef", link)

	gotToken, gotSecret, err := ParseLink(DefaultScheme, link)
	require.NoError(t, err)
	assert.Equal(t, token, gotToken)
	assert.Equal(t, "deadbeef", gotSecret)
}

func TestParseLink_CaseInsensitiveSchemeAndAuthority(t *testing.T) {
	token := identity.NewInviteToken()
	_, _, err := ParseLink(DefaultScheme, "HueCircle://Invite/"+string(token)+"/s3cret")
	require.NoError(t, err)
}

func TestParseLink_Rejections(t *testing.T) {
	token := string(identity.NewInviteToken())
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"wrong scheme", "https://invite/" + token + "/s"},
		{"wrong authority", "huecircle://join/" + token + "/s"},
		{"one segment", "huecircle://invite/" + token},
		{"three segments", "huecircle://invite/" + token + "/s/extra"},
		{"empty secret", "huecircle://invite/" + token + "/"},
		{"bad token", "huecircle://invite/not-a-token/s"},
		{"unparseable", "huecircle://invite/%zz/s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseLink(DefaultScheme, tc.raw)
			assert.ErrorIs(t, err, security.ErrInvalidLinkFormat)
		})
	}
}

func TestParseLink_CustomScheme(t *testing.T) {
	token := identity.NewInviteToken()
	link := BuildLink("wellness-dev", token, "s")
	_, _, err := ParseLink("wellness-dev", link)
	require.NoError(t, err)
	_, _, err = ParseLink(DefaultScheme, link)
	assert.ErrorIs(t, err, security.ErrInvalidLinkFormat)
}
