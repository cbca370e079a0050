package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	user := &model.User{ID: uuid.New(), Role: model.RoleVendor}

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	identity, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, model.RoleVendor, identity.Role)
}

func TestTokenIssuer_RejectsForeignAndExpiredTokens(t *testing.T) {
	user := &model.User{ID: uuid.New(), Role: model.RoleCustomer}

	token, _, err := NewTokenIssuer("other", time.Hour).Issue(user)
	require.NoError(t, err)
	_, err = NewTokenIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	expired, _, err := NewTokenIssuer("secret", -time.Minute).Issue(user)
	require.NoError(t, err)
	_, err = NewTokenIssuer("secret", time.Hour).Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	_, err = NewTokenIssuer("secret", time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}
