// Package storage defines the Storage interface, a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on this interface:
//
//   - Switching databases = set storage.driver in the config.
//     Zero handler changes.
//
//   - Writing tests = pass the memory backend (or any fake) that
//     satisfies the interface. No real database needed for unit tests.
//
// Backends translate driver errors into the sentinel errors below so the
// HTTP layer can map them to status codes without knowing the driver.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/users-api/internal/types"
)

// Sentinel errors shared by every backend. Backends wrap them with %w,
// callers test with errors.Is.
var (
	// ErrNotFound means no record matched the identifier.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidID means the identifier does not parse in the backend's
	// id format (ObjectID hex for MongoDB, UUID for the others).
	ErrInvalidID = errors.New("invalid user id")

	// ErrInvalidEntity means the store rejected the record itself,
	// e.g. a schema validator or a NOT NULL / CHECK constraint.
	ErrInvalidEntity = errors.New("invalid user entity")

	// ErrDuplicate means a unique index rejected the write.
	ErrDuplicate = errors.New("user already exists")

	// ErrUnavailable means the store could not be reached in time.
	ErrUnavailable = errors.New("storage unavailable")
)

// Storage is the database contract.
// Any concrete type that implements ALL of these methods automatically
// satisfies this interface.
//
// Every method performs a single round-trip to the store.
type Storage interface {
	// CreateUser inserts a new record and returns it with the
	// identifier assigned by the backend.
	CreateUser(ctx context.Context, req types.CreateUserRequest) (types.User, error)

	// ListUsers returns every record in the store's natural order.
	// Returns an empty slice (not nil) if there are none.
	ListUsers(ctx context.Context) ([]types.User, error)

	// GetUserByID fetches a single record.
	// Returns ErrNotFound if nothing matches.
	GetUserByID(ctx context.Context, id string) (types.User, error)

	// UpdateUserByID merges the non-nil fields of patch into the record
	// and returns the record as it is after the update.
	// Returns ErrNotFound if nothing matches.
	UpdateUserByID(ctx context.Context, id string, patch types.UserPatch) (types.User, error)

	// DeleteUserByID removes a record permanently.
	// Returns ErrNotFound if nothing matched.
	DeleteUserByID(ctx context.Context, id string) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection. The Storage must not be used after.
	Close(ctx context.Context) error
}
