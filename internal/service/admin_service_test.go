package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
	"github.com/ChristopherDuggan/django-rest-framework/internal/testutil"
)

func TestAdminService(t *testing.T) {
	ctx := context.Background()
	svc := NewAdminService(testutil.NewDB(t))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.UpsertSuperuser(ctx, " ", "")
	assert.Len(t, fieldErrors(t, err), 2)

	user, err := svc.UpsertSuperuser(ctx, " Admin ", "first")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.True(t, user.IsActive)

	// upsert again resets the password instead of duplicating the user
	again, err := svc.UpsertSuperuser(ctx, "admin", "second")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = svc.Authenticate(ctx, "admin", "first")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	got, err := svc.Authenticate(ctx, "ADMIN", "second")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, fixed.Equal(*got.LastLogin))

	require.NoError(t, svc.SetPassword(ctx, "admin", "third"))
	_, err = svc.Authenticate(ctx, "admin", "third")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(ctx, "nobody", "x"), ErrNotFound)
	_, err = svc.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	require.NoError(t, svc.Deactivate(ctx, "admin"))
	_, err = svc.Authenticate(ctx, "admin", "third")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
	assert.ErrorIs(t, svc.Deactivate(ctx, "nobody"), ErrNotFound)
}

func TestAuthenticateThrottlesLastLogin(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewAdminService(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.UpsertSuperuser(ctx, "admin", "secret")
	require.NoError(t, err)

	stored := func() time.Time {
		var u model.AdminUser
		require.NoError(t, db.Where("username = ?", "admin").First(&u).Error)
		require.NotNil(t, u.LastLogin)
		return *u.LastLogin
	}

	_, err = svc.Authenticate(ctx, "admin", "secret")
	require.NoError(t, err)
	first := now
	assert.True(t, first.Equal(stored()))

	now = now.Add(lastLoginInterval - time.Second)
	got, err := svc.Authenticate(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.True(t, first.Equal(*got.LastLogin))
	assert.True(t, first.Equal(stored()))

	now = now.Add(time.Second)
	got, err = svc.Authenticate(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.True(t, now.Equal(*got.LastLogin))
	assert.True(t, now.Equal(stored()))
}
