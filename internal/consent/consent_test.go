package consent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumela/huecircle/internal/identity"
)

type erring struct {
	enabled    bool
	enabledErr error
	name       string
	nameErr    error
}

func (e *erring) DisplayNameSharingEnabled(ctx context.Context, userID identity.CircleID) (bool, error) {
	return e.enabled, e.enabledErr
}

func (e *erring) DisplayName(ctx context.Context, userID identity.CircleID) (string, error) {
	return e.name, e.nameErr
}

func TestResolveDisplayHint(t *testing.T) {
	ctx := context.Background()
	u := identity.NewCircleID()

	t.Run("opted in", func(t *testing.T) {
		c := &erring{enabled: true, name: "Jo"}
		assert.Equal(t, "Jo", ResolveDisplayHint(ctx, c, c, u))
	})

	t.Run("opted out", func(t *testing.T) {
		c := &erring{enabled: false, name: "Jo"}
		assert.Equal(t, "", ResolveDisplayHint(ctx, c, c, u))
	})

	t.Run("consent lookup error fails closed", func(t *testing.T) {
		c := &erring{enabled: true, enabledErr: errors.New("down"), name: "Jo"}
		assert.Equal(t, "", ResolveDisplayHint(ctx, c, c, u))
	})

	t.Run("directory error fails closed", func(t *testing.T) {
		c := &erring{enabled: true, name: "Jo", nameErr: errors.New("down")}
		assert.Equal(t, "", ResolveDisplayHint(ctx, c, c, u))
	})

	t.Run("nil collaborators fail closed", func(t *testing.T) {
		c := &erring{enabled: true, name: "Jo"}
		assert.Equal(t, "", ResolveDisplayHint(ctx, nil, c, u))
		assert.Equal(t, "", ResolveDisplayHint(ctx, c, nil, u))
	})
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	u := identity.NewCircleID()
	s := &Static{Enabled: true, Names: map[identity.CircleID]string{u: "Jo"}}

	enabled, err := s.DisplayNameSharingEnabled(ctx, u)
	assert.NoError(t, err)
	assert.True(t, enabled)

	name, err := s.DisplayName(ctx, u)
	assert.NoError(t, err)
	assert.Equal(t, "Jo", name)

	name, err = s.DisplayName(ctx, identity.NewCircleID())
	assert.NoError(t, err)
	assert.Equal(t, "", name)
}
