// Package storage caches the last accepted fetch result of each polling key.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// ErrCacheMiss is returned when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// Entry is one accepted fetch result.
type Entry struct {
	Generation int64           `msgpack:"generation"`
	FetchedAt  time.Time       `msgpack:"fetchedAt"`
	Records    []models.Record `msgpack:"records"`
}

// Store holds entries keyed by polling key. Put only replaces an entry whose
// generation is not newer than the incoming one, and reports whether the
// incoming entry was accepted.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, e Entry) (bool, error)
	Close() error
}

func encodeEntry(e Entry) ([]byte, error) {
	return msgpack.Marshal(&e)
}

func decodeEntry(b []byte) (Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}
