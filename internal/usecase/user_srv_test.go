package usecase

import (
	"context"
	"testing"
	"time"

	"library-service/internal/data/entity"
	"library-service/internal/dto/request"
	"library-service/pkg/cache"
	"library-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Profile(t *testing.T) {
	s := newStore()
	sessions := newMemorySessionCache()
	users := NewUserService(s.repository(), sessions, nopLogger())
	ctx := context.Background()

	reader := entity.User{Base: entity.NewBase(fixedNow), Email: "reader@library.test", FirstName: "Ada"}
	taken := entity.User{Base: entity.NewBase(fixedNow), Email: "taken@library.test"}
	s.users[reader.ID] = reader
	s.users[taken.ID] = taken

	live := entity.Session{UserID: reader.ID, Token: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	other := entity.Session{UserID: taken.ID, Token: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	s.sessions[live.Token.String()] = live
	s.sessions[other.Token.String()] = other
	sessions.entries[live.Token.String()] = cache.SessionData{UserID: reader.ID}

	profile, err := users.GetProfile(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.False(t, profile.IsStaff)

	last := " Lovelace "
	password := "new-password"
	updated, err := users.UpdateProfile(ctx, reader.ID, &request.UpdateProfileRequest{LastName: &last, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName, "absent fields are left alone")
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.True(t, utils.CheckPassword(s.users[reader.ID].PasswordHash, "new-password"))
	assert.NotNil(t, s.sessions[live.Token.String()].RevokedAt, "a new password signs the reader out")
	assert.NotContains(t, sessions.entries, live.Token.String())
	assert.Nil(t, s.sessions[other.Token.String()].RevokedAt)

	email := " TAKEN@library.test "
	_, err = users.UpdateProfile(ctx, reader.ID, &request.UpdateProfileRequest{Email: &email})
	assert.ErrorIs(t, err, ErrConflict)

	email = "  Ada@Library.test "
	updated, err = users.UpdateProfile(ctx, reader.ID, &request.UpdateProfileRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "ada@library.test", updated.Email)

	_, err = users.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
