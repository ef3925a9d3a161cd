package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const maxTxAttempts = 5

// RedisStore keeps entries in Redis as msgpack blobs so several dashboard
// instances can share one cache.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps entries forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Entry{}, ErrCacheMiss
		}
		return Entry{}, err
	}
	e, err := decodeEntry(b)
	if err != nil {
		return Entry{}, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return e, nil
}

// Put compares generations under WATCH so concurrent writers from other
// instances cannot overwrite a newer entry.
func (s *RedisStore) Put(ctx context.Context, key string, e Entry) (bool, error) {
	payload, err := encodeEntry(e)
	if err != nil {
		return false, fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	k := s.key(key)
	accepted := false
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, k).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			cur, err := decodeEntry(b)
			if err == nil && cur.Generation > e.Generation {
				accepted = false
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl)
			return nil
		})
		if err == nil {
			accepted = true
		}
		return err
	}

	for i := 0; i < maxTxAttempts; i++ {
		err = s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return accepted, err
	}
	return false, fmt.Errorf("cache entry %s: too much contention", key)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
