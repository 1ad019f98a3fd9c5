package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopnest/user-service/internal/models"
)

func TestStorage_CreateUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	created, err := storage.CreateUser(ctx, models.User{
		Email:        "first@example.com",
		PasswordHash: "hash1",
		Role:         models.RoleUser,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "first@example.com", created.Email)
	assert.False(t, created.Verified)
	assert.Nil(t, created.EmailVerificationToken)
	assert.Nil(t, created.PasswordResetToken)
	assert.Nil(t, created.PasswordResetExpiresAt)

	// Повторная регистрация того же email
	_, err = storage.CreateUser(ctx, models.User{
		Email:        "first@example.com",
		PasswordHash: "hash2",
		Role:         models.RoleUser,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmailTaken))

	// Первая запись не пострадала
	got, err := storage.GetUserByEmail(ctx, "first@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.UID, got.UID)
	assert.Equal(t, "hash1", got.PasswordHash)
}

func TestStorage_GetUserByEmail_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetUserByEmail(context.Background(), "absent@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_VerificationTokenLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := uuid.New().String()
	token := uuid.New().String()
	factory.CreateUserWithVerificationToken(t, uid, "verify@example.com", token)

	got, err := storage.GetUserByVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uid, got.UID)

	require.NoError(t, storage.ConsumeVerificationToken(ctx, token))

	verified, err := storage.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Nil(t, verified.EmailVerificationToken)

	// Повторное погашение того же токена
	err = storage.ConsumeVerificationToken(ctx, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_ResetTokenLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := uuid.New().String()
	factory.CreateUser(t, uid, "reset@example.com", "oldhash", models.RoleUser)

	token := uuid.New().String()
	expiresAt := time.Now().Add(time.Hour).UTC()
	require.NoError(t, storage.SetResetToken(ctx, uid, token, expiresAt))

	got, err := storage.GetUserByResetToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got.PasswordResetToken)
	require.NotNil(t, got.PasswordResetExpiresAt)
	assert.WithinDuration(t, expiresAt, *got.PasswordResetExpiresAt, time.Second)

	// Повторный запрос перекрывает предыдущий токен
	newToken := uuid.New().String()
	require.NoError(t, storage.SetResetToken(ctx, uid, newToken, expiresAt))
	_, err = storage.GetUserByResetToken(ctx, token)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	require.NoError(t, storage.ConsumeResetToken(ctx, newToken, "newhash"))

	after, err := storage.GetUserByUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "newhash", after.PasswordHash)
	assert.Nil(t, after.PasswordResetToken)
	assert.Nil(t, after.PasswordResetExpiresAt)

	// Токен одноразовый
	err = storage.ConsumeResetToken(ctx, newToken, "anotherhash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_UpdateUserProfile(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := uuid.New().String()
	factory.CreateUser(t, uid, "before@example.com", "oldhash", models.RoleUser)
	otherUID := uuid.New().String()
	factory.CreateUser(t, otherUID, "taken@example.com", "hash", models.RoleUser)

	updated, err := storage.UpdateUserProfile(ctx, uid, "after@example.com", "newhash")
	require.NoError(t, err)
	assert.Equal(t, "after@example.com", updated.Email)
	assert.Equal(t, "newhash", updated.PasswordHash)

	// Чужой email занят
	_, err = storage.UpdateUserProfile(ctx, uid, "taken@example.com", "newhash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmailTaken))

	// Несуществующий uid
	_, err = storage.UpdateUserProfile(ctx, uuid.New().String(), "ghost@example.com", "hash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_AssignRoleAndDelete(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := uuid.New().String()
	factory.CreateUser(t, uid, "admin2be@example.com", "hash", models.RoleUser)

	updated, err := storage.UpdateRole(ctx, uid, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, "admin2be@example.com", updated.Email)

	require.NoError(t, storage.DeleteUser(ctx, uid))

	_, err = storage.GetUserByUID(ctx, uid)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	err = storage.DeleteUser(ctx, uid)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestStorage_ListUsers(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	got, err := storage.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 0)

	factory.CreateUser(t, uuid.New().String(), "a@example.com", "hash", models.RoleUser)
	factory.CreateUser(t, uuid.New().String(), "b@example.com", "hash", models.RoleAdmin)

	got, err = storage.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
