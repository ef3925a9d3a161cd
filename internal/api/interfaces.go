// interfaces.go - Dependencies the handlers consume, so tests can swap them
package api

import (
	"context"
	"time"

	"github.com/siddheshvrane/solar-dashboard/internal/archive"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// Poller is the live state the dashboard is built from.
type Poller interface {
	Snapshot() models.Snapshot
	Refresh(srcs ...models.Source) (string, error)
	Interval() time.Duration
	Subscribe() (<-chan struct{}, func())
}

// History answers paged queries over archived records.
type History interface {
	Query(ctx context.Context, q archive.HistoryQuery) ([]models.Record, int, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
