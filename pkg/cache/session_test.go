package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEntryTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 10*time.Minute, entryTTL(10*time.Minute, now, now.Add(24*time.Hour)))
	assert.Equal(t, 2*time.Minute, entryTTL(10*time.Minute, now, now.Add(2*time.Minute)))
	assert.True(t, entryTTL(10*time.Minute, now, now.Add(-time.Second)) < 0)
}

func TestNopSessionCache(t *testing.T) {
	c := NewSessionCache(nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token", &SessionData{UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}))

	data, err := c.Get(ctx, "token")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, c.Delete(ctx, "token"))
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}
