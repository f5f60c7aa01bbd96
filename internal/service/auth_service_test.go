package service

import (
	"testing"

	"pilotopos/internal/model"
	"pilotopos/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)

	created, err := f.auth.EnsureAdmin(ctx, tenant, "admin", "first")
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, f.db.Gorm().Model(&model.User{}).Where("username = ?", "admin").Update("activo", false).Error)

	created, err = f.auth.EnsureAdmin(ctx, tenant, "admin", "second")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), f.count(t, &model.User{}))

	res, err := f.auth.Login(ctx, tenant, "admin", "second")
	require.NoError(t, err)
	assert.True(t, res.User.Active)

	_, err = f.auth.EnsureAdmin(ctx, tenant, "", "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.EnsureAdmin(ctx, tenant, "admin", "s3cret")
	require.NoError(t, err)
	_, err = f.auth.EnsureAdmin(ctx, tenant, "cajero", "s3cret")
	require.NoError(t, err)
	require.NoError(t, f.db.Gorm().Model(&model.User{}).Where("username = ?", "cajero").Update("activo", false).Error)

	tests := []struct{ name, user, pass string }{
		{"unknown user", "nadie", "s3cret"},
		{"wrong password", "admin", "nope"},
		{"inactive user", "cajero", "s3cret"},
		{"empty password", "admin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tenant, tt.user, tt.pass)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
		})
	}
}

func TestLoginRecordsAccessAndIssuesToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.EnsureAdmin(ctx, tenant, "admin", "s3cret")
	require.NoError(t, err)

	first, err := f.auth.Login(ctx, tenant, "admin", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, first.Token)

	var stored model.User
	require.NoError(t, f.db.Gorm().First(&stored, "username = ?", "admin").Error)
	require.NotNil(t, stored.LastAccess)

	user, err := f.auth.Authenticate(ctx, tenant, first.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, err = f.auth.Authenticate(ctx, "shop2", first.Token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	second, err := f.auth.Login(ctx, tenant, "admin", "s3cret")
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx, tenant, first.Token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken, "older token is revoked by a new login")
	_, err = f.auth.Authenticate(ctx, tenant, second.Token)
	assert.NoError(t, err)
}

func TestUserHidesInactive(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.EnsureAdmin(ctx, tenant, "admin", "s3cret")
	require.NoError(t, err)

	var stored model.User
	require.NoError(t, f.db.Gorm().First(&stored, "username = ?", "admin").Error)

	u, err := f.auth.User(ctx, tenant, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)

	require.NoError(t, f.db.Gorm().Model(&model.User{}).Where("id = ?", stored.ID).Update("activo", false).Error)
	_, err = f.auth.User(ctx, tenant, stored.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.auth.User(ctx, tenant, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
