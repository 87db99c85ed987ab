package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/storage/storagetest"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	storagetest.Run(t, storagetest.Backend{
		New:         func(t *testing.T) storage.Storage { return New() },
		UnknownID:   uuid.NewString,
		MalformedID: "not-a-uuid",
	})
}

func TestMemory_ConcurrentCreates(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(ctx, types.CreateUserRequest{Name: "n", Email: "e@x.com"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 50)
}
