package service

import (
	"context"
	"testing"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeUserStore struct {
	users map[string]*models.User
}

func NewFakeUserStore() *FakeUserStore {
	return &FakeUserStore{users: map[string]*models.User{}}
}

func (f *FakeUserStore) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return nil, store.ErrDuplicate
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Username] = &user
	return &user, nil
}

func (f *FakeUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *FakeUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func TestUserService_SignupAndLogin(t *testing.T) {
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	s := NewUserService(NewFakeUserStore(), tokenAuth)
	ctx := context.Background()

	user, token, err := s.Signup(ctx, "  Ada_99 ", "hunter22", "")
	require.NoError(t, err)
	assert.Equal(t, "ada_99", user.Username)
	assert.Equal(t, "ada_99", user.DisplayName)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.NotEmpty(t, token)

	decoded, err := tokenAuth.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "1", decoded.Subject())

	_, _, err = s.Signup(ctx, "ada_99", "hunter22", "")
	assert.ErrorIs(t, err, ErrConflict)

	_, token, err = s.Login(ctx, "ADA_99", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = s.Login(ctx, "ada_99", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = s.Login(ctx, "nobody", "hunter22")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserService_SignupValidation(t *testing.T) {
	s := NewUserService(NewFakeUserStore(), jwtauth.New("HS256", []byte("k"), nil))

	tests := []struct {
		name     string
		username string
		password string
		display  string
	}{
		{"short username", "ab", "secret1", ""},
		{"bad chars", "ada!", "secret1", ""},
		{"short password", "ada", "123", ""},
		{"long display name", "ada", "secret1", "abcdefghijklmnopqrstuvwxyz0123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Signup(context.Background(), tt.username, tt.password, tt.display)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
