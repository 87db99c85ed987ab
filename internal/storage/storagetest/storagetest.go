// Package storagetest holds the behaviour every storage.Storage backend
// must share. Backend test files call Run with a constructor for a clean
// store.
package storagetest

import (
	"context"
	"testing"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend describes a backend under test.
type Backend struct {
	// New returns an empty store. Cleanup is the caller's job (t.Cleanup).
	New func(t *testing.T) storage.Storage
	// UnknownID returns a well-formed id that matches no record.
	UnknownID func() string
	// MalformedID is an id the backend cannot parse.
	MalformedID string
}

func ptr[T any](v T) *T { return &v }

// Run executes the shared suite against b.
func Run(t *testing.T, b Backend) {
	ctx := context.Background()

	t.Run("create assigns id and echoes fields", func(t *testing.T) {
		s := b.New(t)

		user, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "Ann", Email: "a@x.com", Age: 30})
		require.NoError(t, err)

		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "Ann", user.Name)
		assert.Equal(t, "a@x.com", user.Email)
		assert.Equal(t, 30, user.Age)

		got, err := s.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("ids are unique", func(t *testing.T) {
		s := b.New(t)

		a, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "A", Email: "same@x.com"})
		require.NoError(t, err)
		c, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "B", Email: "same@x.com"})
		require.NoError(t, err, "email is not unique")

		assert.NotEqual(t, a.ID, c.ID)
	})

	t.Run("list empty store returns empty slice", func(t *testing.T) {
		s := b.New(t)

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("list returns every created record in insertion order", func(t *testing.T) {
		s := b.New(t)

		var created []types.User
		for _, name := range []string{"Ann", "Bob", "Cy"} {
			u, err := s.CreateUser(ctx, types.CreateUserRequest{Name: name, Email: name + "@x.com", Age: 20})
			require.NoError(t, err)
			created = append(created, u)
		}

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, created, users)
	})

	t.Run("update merges only provided fields", func(t *testing.T) {
		s := b.New(t)

		user, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "Ann", Email: "a@x.com", Age: 30})
		require.NoError(t, err)

		updated, err := s.UpdateUserByID(ctx, user.ID, types.UserPatch{Age: ptr(31)})
		require.NoError(t, err)
		assert.Equal(t, types.User{ID: user.ID, Name: "Ann", Email: "a@x.com", Age: 31}, updated)

		updated, err = s.UpdateUserByID(ctx, user.ID, types.UserPatch{Name: ptr("Anna"), Email: ptr("anna@x.com")})
		require.NoError(t, err)
		assert.Equal(t, types.User{ID: user.ID, Name: "Anna", Email: "anna@x.com", Age: 31}, updated)

		got, err := s.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("update with empty patch returns current record", func(t *testing.T) {
		s := b.New(t)

		user, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "Ann", Email: "a@x.com", Age: 30})
		require.NoError(t, err)

		got, err := s.UpdateUserByID(ctx, user.ID, types.UserPatch{})
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("update unknown id", func(t *testing.T) {
		s := b.New(t)

		_, err := s.UpdateUserByID(ctx, b.UnknownID(), types.UserPatch{Age: ptr(1)})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.UpdateUserByID(ctx, b.UnknownID(), types.UserPatch{})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		s := b.New(t)

		keep, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "Keep", Email: "k@x.com"})
		require.NoError(t, err)
		gone, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "Gone", Email: "g@x.com"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteUserByID(ctx, gone.ID))

		_, err = s.GetUserByID(ctx, gone.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.User{keep}, users)

		err = s.DeleteUserByID(ctx, gone.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound, "second delete finds nothing")
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := b.New(t)

		_, err := s.GetUserByID(ctx, b.UnknownID())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		s := b.New(t)

		_, err := s.GetUserByID(ctx, b.MalformedID)
		assert.ErrorIs(t, err, storage.ErrInvalidID)

		_, err = s.UpdateUserByID(ctx, b.MalformedID, types.UserPatch{Age: ptr(1)})
		assert.ErrorIs(t, err, storage.ErrInvalidID)

		err = s.DeleteUserByID(ctx, b.MalformedID)
		assert.ErrorIs(t, err, storage.ErrInvalidID)
	})

	t.Run("ping", func(t *testing.T) {
		s := b.New(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
