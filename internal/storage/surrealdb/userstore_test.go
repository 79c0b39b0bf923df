package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twbot/supportsite/internal/models"
)

func TestGetUser(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db, testLogger())
	ctx := context.Background()

	user := &models.User{
		ID:            "100200300",
		Username:      "somebody",
		Discriminator: "0",
		GlobalName:    "Somebody",
		Admin:         true,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveUser(ctx, user))

	got, err := store.GetUser(ctx, "100200300")
	require.NoError(t, err)
	assert.Equal(t, "100200300", got.ID)
	assert.Equal(t, "somebody", got.Username)
	assert.True(t, got.Admin)
}

func TestGetUserNotFound(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db, testLogger())

	_, err := store.GetUser(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveUserOverwritesAdminFlag(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db, testLogger())
	ctx := context.Background()

	user := &models.User{ID: "42", Username: "flip", Admin: true}
	require.NoError(t, store.SaveUser(ctx, user))

	user.Admin = false
	user.Username = "flipped"
	require.NoError(t, store.SaveUser(ctx, user))

	got, err := store.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.False(t, got.Admin)
	assert.Equal(t, "flipped", got.Username)
}

func TestDeleteUser(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "del1", Username: "gone"}))
	require.NoError(t, store.DeleteUser(ctx, "del1"))

	_, err := store.GetUser(ctx, "del1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Deleting a missing user is not an error.
	require.NoError(t, store.DeleteUser(ctx, "del1"))
}

func TestListUsers(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "u1", Username: "one"}))
	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "u2", Username: "two", Admin: true}))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	byID := make(map[string]*models.User)
	for _, u := range users {
		byID[u.ID] = u
	}
	require.Contains(t, byID, "u1")
	require.Contains(t, byID, "u2")
	assert.True(t, byID["u2"].Admin)
}
