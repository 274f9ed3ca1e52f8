package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, time.Minute), mr
}

func TestAcquireExclusive(t *testing.T) {
	l, mr := newRedis(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "tagger")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"tagger"))

	_, err = l.Acquire(ctx, "tagger")
	assert.ErrorIs(t, err, ErrHeld)

	other, err := l.Acquire(ctx, "summarizer")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists(keyPrefix+"tagger"))

	release, err = l.Acquire(ctx, "tagger")
	require.NoError(t, err)
	release()
}

func TestReleaseKeepsForeignLease(t *testing.T) {
	l, mr := newRedis(t)

	release, err := l.Acquire(context.Background(), "publisher")
	require.NoError(t, err)

	// Lease expired and another run took it over.
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"publisher", "someone-else"))

	release()
	got, err := mr.Get(keyPrefix + "publisher")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLeaseExpires(t *testing.T) {
	l, mr := newRedis(t)

	_, err := l.Acquire(context.Background(), "collector")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	release, err := l.Acquire(context.Background(), "collector")
	require.NoError(t, err)
	release()
}

func TestAcquireRedisDown(t *testing.T) {
	l, mr := newRedis(t)
	mr.Close()

	_, err := l.Acquire(context.Background(), "collector")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHeld))
}

func TestLocal(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "tagger")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "tagger")
	assert.ErrorIs(t, err, ErrHeld)

	other, err := l.Acquire(ctx, "publisher")
	require.NoError(t, err)
	other()

	release()
	release()

	release, err = l.Acquire(ctx, "tagger")
	require.NoError(t, err)
	release()
}
