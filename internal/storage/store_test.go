package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "test:", time.Minute)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func entry(gen int64, ids ...string) Entry {
	e := Entry{Generation: gen, FetchedAt: time.Unix(gen, 0).UTC()}
	for i, id := range ids {
		e.Records = append(e.Records, models.Record{
			ID:        id,
			Source:    models.SourceSolar,
			Timestamp: models.Timestamp{Raw: id, UnixMs: int64(i)},
			Current:   float64(i) + 0.5,
		})
	}
	return e
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStore_MissThenHit(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "solar-all")
			assert.ErrorIs(t, err, ErrCacheMiss)

			ok, err := s.Put(ctx, "solar-all", entry(1, "a", "b"))
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := s.Get(ctx, "solar-all")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.Generation)
			require.Len(t, got.Records, 2)
			assert.Equal(t, "b", got.Records[1].ID)
			assert.Equal(t, 1.5, got.Records[1].Current)
		})
	}
}

func TestStore_OlderGenerationIsRejected(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Put(ctx, "wind-all", entry(5, "new"))
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = s.Put(ctx, "wind-all", entry(3, "old"))
			require.NoError(t, err)
			assert.False(t, ok)

			got, err := s.Get(ctx, "wind-all")
			require.NoError(t, err)
			assert.Equal(t, "new", got.Records[0].ID)

			ok, err = s.Put(ctx, "wind-all", entry(7))
			require.NoError(t, err)
			assert.True(t, ok)

			got, err = s.Get(ctx, "wind-all")
			require.NoError(t, err)
			assert.Empty(t, got.Records)
		})
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Put(ctx, "solar-all", entry(9, "s"))
			require.NoError(t, err)

			ok, err := s.Put(ctx, "wind-all", entry(1, "w"))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "solar-all", entry(1, "a"))
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:solar-all"))
	assert.Equal(t, time.Minute, mr.TTL("test:solar-all"))

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "solar-all")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, mr.Set("test:solar-all", "not msgpack"))

	_, err := s.Get(context.Background(), "solar-all")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	// a corrupt entry never blocks a fresh result
	ok, err := s.Put(context.Background(), "solar-all", entry(1, "a"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_Ping(t *testing.T) {
	s, _ := newRedisStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
