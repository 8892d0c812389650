package database

import (
	"context"
	"testing"

	"unitbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	got, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	newEmail := "alice@work.example.com"
	updated, err := db.UpdateUser(ctx, user.ID, UserUpdate{Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, newEmail, updated.Email)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, db.DeleteUser(ctx, user.ID))
	_, err = db.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	name := "ghost"
	_, err = db.UpdateUser(ctx, 42, UserUpdate{Username: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, db.DeleteUser(ctx, 42), ErrUserNotFound)
}
