package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestUserPatch_Apply(t *testing.T) {
	base := User{ID: "abc", Name: "Ann", Email: "a@x.com", Age: 30}

	tests := []struct {
		name  string
		patch UserPatch
		want  User
	}{
		{"empty patch keeps everything", UserPatch{}, base},
		{"age only", UserPatch{Age: ptr(31)}, User{ID: "abc", Name: "Ann", Email: "a@x.com", Age: 31}},
		{"zero age is a value", UserPatch{Age: ptr(0)}, User{ID: "abc", Name: "Ann", Email: "a@x.com", Age: 0}},
		{
			"all fields",
			UserPatch{Name: ptr("Bob"), Email: ptr("b@x.com"), Age: ptr(40)},
			User{ID: "abc", Name: "Bob", Email: "b@x.com", Age: 40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.patch.Apply(base))
		})
	}
}

func TestUserPatch_IsEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.IsEmpty())
	assert.False(t, UserPatch{Email: ptr("")}.IsEmpty())
}

func TestNewUser(t *testing.T) {
	u := NewUser("id-1", CreateUserRequest{Name: "Ann", Email: "a@x.com", Age: 30})
	assert.Equal(t, User{ID: "id-1", Name: "Ann", Email: "a@x.com", Age: 30}, u)
}
