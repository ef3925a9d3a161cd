// mock_fetcher.go - Fakes for the fetch and archive paths
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// FetchFunc answers the n-th (1-based) fetch of a source.
type FetchFunc func(ctx context.Context, src models.Source, n int) ([]models.Record, error)

// MockFetcher implements telemetry.Fetcher for testing
type MockFetcher struct {
	mu    sync.Mutex
	fn    FetchFunc
	calls map[models.Source]int
}

// NewMockFetcher creates a fetcher that delegates to fn.
func NewMockFetcher(fn FetchFunc) *MockFetcher {
	return &MockFetcher{fn: fn, calls: make(map[models.Source]int)}
}

// StaticFetcher always returns the given records.
func StaticFetcher(solar, wind []models.Record) *MockFetcher {
	return NewMockFetcher(func(_ context.Context, src models.Source, _ int) ([]models.Record, error) {
		if src == models.SourceWind {
			return wind, nil
		}
		return solar, nil
	})
}

func (m *MockFetcher) Fetch(ctx context.Context, src models.Source) ([]models.Record, error) {
	m.mu.Lock()
	m.calls[src]++
	n := m.calls[src]
	m.mu.Unlock()
	return m.fn(ctx, src, n)
}

// Calls returns how many fetches of src have started.
func (m *MockFetcher) Calls(src models.Source) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[src]
}

// MockSink records what was archived.
type MockSink struct {
	mu     sync.Mutex
	stored map[models.Source][][]models.Record
	Err    error
}

func NewMockSink() *MockSink {
	return &MockSink{stored: make(map[models.Source][][]models.Record)}
}

func (s *MockSink) Store(_ context.Context, src models.Source, records []models.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.stored[src] = append(s.stored[src], records)
	return len(records), nil
}

// Batches returns every batch archived for src.
func (s *MockSink) Batches(src models.Source) [][]models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]models.Record(nil), s.stored[src]...)
}

// fixtureStart is the first timestamp of generated fixtures.
var fixtureStart = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

// Records generates n ascending records of src, five minutes apart.
// Solar records carry an LDR reading.
func Records(src models.Source, n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		ts := fixtureStart.Add(time.Duration(i) * 5 * time.Minute)
		r := models.Record{
			ID:        fmt.Sprintf("%s-%03d", src, i),
			Source:    src,
			Timestamp: models.Timestamp{Raw: ts.Format("2006-01-02 15:04:05"), UnixMs: ts.UnixMilli()},
			Angle:     float64(10 * i),
			Current:   1.5 + float64(i),
			Voltage:   12 + float64(i)/10,
		}
		if src == models.SourceSolar {
			r.LDR = models.Float(float64(700 + i))
		}
		records[i] = r
	}
	return records
}
