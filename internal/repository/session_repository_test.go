package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/note-service/internal/domain"
)

func newSessionRepo(t *testing.T) (SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionRepository(client), mr
}

func TestSessionCreateAndLookup(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	created := &domain.Session{ID: "s1", Username: "alice", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, repo.Create(ctx, created, time.Minute))

	found, err := repo.Lookup(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "s1", found.ID)
	assert.Equal(t, "alice", found.Username)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
}

func TestSessionLookupUnknown(t *testing.T) {
	repo, _ := newSessionRepo(t)

	found, err := repo.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSessionExpiry(t *testing.T) {
	repo, mr := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s1", Username: "alice"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	found, err := repo.Lookup(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSessionTouchExtendsTTL(t *testing.T) {
	repo, mr := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s1", Username: "alice"}, 30*time.Second))
	require.NoError(t, repo.Touch(ctx, "s1", 5*time.Minute))

	assert.Equal(t, 5*time.Minute, mr.TTL("session:s1"))

	mr.FastForward(time.Minute)
	found, err := repo.Lookup(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestSessionDelete(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s1", Username: "alice"}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "s1"))

	found, err := repo.Lookup(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, repo.Delete(ctx, "s1"))
}
