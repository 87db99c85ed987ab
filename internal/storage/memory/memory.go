// Package memory provides an in-process implementation of
// storage.Storage. Records live in a map guarded by a RWMutex and are
// lost on exit; the backend exists for tests and for running the API
// without a database (storage.driver: memory).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/google/uuid"
)

// Memory is the in-memory storage.Storage.
// The zero value is not usable; call New.
type Memory struct {
	mu    sync.RWMutex
	users map[string]types.User
	// order keeps insertion order so ListUsers is stable, like the
	// natural order of a document collection.
	order []string
}

var _ storage.Storage = (*Memory)(nil)

// New returns an empty store.
func New() *Memory {
	return &Memory{users: make(map[string]types.User)}
}

func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return parsed.String(), nil
}

func (m *Memory) CreateUser(_ context.Context, req types.CreateUserRequest) (types.User, error) {
	user := types.NewUser(uuid.NewString(), req)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[user.ID] = user
	m.order = append(m.order, user.ID)
	return user, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]types.User, 0, len(m.users))
	for _, id := range m.order {
		users = append(users, m.users[id])
	}
	return users, nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (types.User, error) {
	key, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[key]
	if !ok {
		return types.User{}, fmt.Errorf("GetUserByID %s: %w", key, storage.ErrNotFound)
	}
	return user, nil
}

func (m *Memory) UpdateUserByID(_ context.Context, id string, patch types.UserPatch) (types.User, error) {
	key, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[key]
	if !ok {
		return types.User{}, fmt.Errorf("UpdateUserByID %s: %w", key, storage.ErrNotFound)
	}
	user = patch.Apply(user)
	m.users[key] = user
	return user, nil
}

func (m *Memory) DeleteUserByID(_ context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[key]; !ok {
		return fmt.Errorf("DeleteUserByID %s: %w", key, storage.ErrNotFound)
	}
	delete(m.users, key)
	for i, existing := range m.order {
		if existing == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }
