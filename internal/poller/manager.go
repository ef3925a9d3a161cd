// Package poller keeps the per-source record state fresh by fetching on a
// fixed interval and caching the newest accepted result.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/metrics"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
	"github.com/siddheshvrane/solar-dashboard/internal/storage"
	"github.com/siddheshvrane/solar-dashboard/internal/telemetry"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultFetchTimeout = 20 * time.Second
)

// ErrNotRunning is returned by Refresh before Start or after Stop.
var ErrNotRunning = errors.New("poller not running")

// Sink receives every accepted fetch result, e.g. the history archive.
type Sink interface {
	Store(ctx context.Context, src models.Source, records []models.Record) (int, error)
}

// Config holds the polling cadence.
type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// keyState is what the manager knows about one polling key.
type keyState struct {
	records    []models.Record
	hasData    bool
	fetchedAt  time.Time
	generation int64

	inflight int
	// generation of the latest fetch whose outcome was applied
	outcomeGen int64
	err        string
	errAt      time.Time
}

// Manager runs one independent polling loop per source. Every fetch carries
// a generation taken from its start time; the cache keeps only the newest
// generation, so a slow fetch finishing after a newer one is discarded.
type Manager struct {
	fetcher telemetry.Fetcher
	cache   storage.Store
	sink    Sink
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	states  map[models.Source]*keyState
	lastGen int64
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewManager creates a manager. sink and m may be nil.
func NewManager(f telemetry.Fetcher, cache storage.Store, sink Sink, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	states := make(map[models.Source]*keyState, len(models.Sources))
	for _, src := range models.Sources {
		states[src] = &keyState{}
	}
	return &Manager{
		fetcher: f,
		cache:   cache,
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		states:  states,
		subs:    make(map[int]chan struct{}),
	}
}

// Interval returns the configured polling interval.
func (m *Manager) Interval() time.Duration {
	return m.cfg.Interval
}

// Start primes the state from the cache and launches the polling loops.
// Each loop fetches immediately and then once per interval until ctx is
// cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.runCtx != nil {
		m.mu.Unlock()
		return errors.New("poller already started")
	}
	m.runCtx, m.cancel = context.WithCancel(ctx)
	runCtx := m.runCtx
	m.mu.Unlock()

	for _, src := range models.Sources {
		m.prime(runCtx, src)
	}

	for _, src := range models.Sources {
		m.wg.Add(1)
		go m.loop(runCtx, src)
	}
	m.logger.Info("poller started", zap.Duration("interval", m.cfg.Interval))
	return nil
}

// Stop cancels the loops and waits for in-flight fetches to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.runCtx, m.cancel = nil, nil
	m.mu.Unlock()
	m.logger.Info("poller stopped")
}

func (m *Manager) prime(ctx context.Context, src models.Source) {
	e, err := m.cache.Get(ctx, src.PollKey())
	if err != nil {
		if !errors.Is(err, storage.ErrCacheMiss) {
			m.logger.Warn("reading cached state", zap.String("key", src.PollKey()), zap.Error(err))
		}
		return
	}
	if m.apply(src, e) {
		m.logger.Info("restored cached state",
			zap.String("key", src.PollKey()),
			zap.Int("records", len(e.Records)),
			zap.Time("fetched_at", e.FetchedAt))
	}
}

func (m *Manager) loop(ctx context.Context, src models.Source) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.trigger(ctx, src, "startup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.trigger(ctx, src, "interval")
		}
	}
}

// Refresh starts an immediate fetch of each source (both when none are
// given) and returns the id of the refresh for correlation in logs.
func (m *Manager) Refresh(srcs ...models.Source) (string, error) {
	m.mu.RLock()
	ctx := m.runCtx
	m.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return "", ErrNotRunning
	}
	if len(srcs) == 0 {
		srcs = models.Sources
	}

	id := uuid.New().String()
	for _, src := range srcs {
		m.trigger(ctx, src, "refresh:"+id)
	}
	return id, nil
}

// trigger starts a fetch without waiting for, or cancelling, any earlier
// fetch of the same source.
func (m *Manager) trigger(ctx context.Context, src models.Source, reason string) {
	gen := m.begin(src)
	m.notify()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runFetch(ctx, src, gen, reason)
	}()
}

// begin allocates a generation and marks a fetch in flight.
func (m *Manager) begin(src models.Source) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen := time.Now().UnixNano()
	if gen <= m.lastGen {
		gen = m.lastGen + 1
	}
	m.lastGen = gen
	m.states[src].inflight++
	return gen
}

func (m *Manager) runFetch(ctx context.Context, src models.Source, gen int64, reason string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("fetch panicked", zap.String("source", string(src)), zap.Any("panic", r))
			m.finish(src, gen, fmt.Errorf("fetch panicked: %v", r))
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	records, err := m.fetcher.Fetch(fetchCtx, src)
	if err != nil {
		m.logger.Warn("fetch failed",
			zap.String("source", string(src)),
			zap.String("reason", reason),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		m.finish(src, gen, err)
		return
	}

	entry := storage.Entry{Generation: gen, FetchedAt: time.Now(), Records: records}
	accepted, err := m.cache.Put(ctx, src.PollKey(), entry)
	if err != nil {
		m.logger.Error("caching fetch result", zap.String("key", src.PollKey()), zap.Error(err))
		m.finish(src, gen, fmt.Errorf("caching result: %w", err))
		return
	}

	if !accepted {
		m.metrics.IncStale(src)
		m.logger.Debug("discarding stale result",
			zap.String("source", string(src)),
			zap.Int64("generation", gen))
		// another writer holds something newer; mirror it
		if newer, err := m.cache.Get(ctx, src.PollKey()); err == nil {
			m.apply(src, newer)
		}
		m.finish(src, gen, nil)
		return
	}

	m.apply(src, entry)
	m.metrics.SetRecords(src, len(records))
	m.logger.Info("fetch complete",
		zap.String("source", string(src)),
		zap.String("reason", reason),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	if m.sink != nil {
		if _, err := m.sink.Store(ctx, src, records); err != nil {
			m.logger.Warn("archiving records", zap.String("source", string(src)), zap.Error(err))
		}
	}
	m.finish(src, gen, nil)
}

// apply copies a cache entry into the local state unless the state
// already holds a newer generation.
func (m *Manager) apply(src models.Source, e storage.Entry) bool {
	m.mu.Lock()
	st := m.states[src]
	if st.hasData && st.generation > e.Generation {
		m.mu.Unlock()
		return false
	}
	st.records = e.Records
	if st.records == nil {
		st.records = []models.Record{}
	}
	st.hasData = true
	st.fetchedAt = e.FetchedAt
	st.generation = e.Generation
	if e.Generation > m.lastGen {
		m.lastGen = e.Generation
	}
	m.mu.Unlock()
	return true
}

// finish ends one fetch. The error of the most recently started fetch
// wins; a success clears an error recorded by an older fetch.
func (m *Manager) finish(src models.Source, gen int64, err error) {
	m.mu.Lock()
	st := m.states[src]
	st.inflight--
	if gen > st.outcomeGen {
		st.outcomeGen = gen
		if err != nil {
			st.err = err.Error()
			st.errAt = time.Now()
		} else {
			st.err = ""
			st.errAt = time.Time{}
		}
	}
	m.mu.Unlock()
	m.notify()
}

// State returns the current state of src.
func (m *Manager) State(src models.Source) models.SourceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked(src)
}

func (m *Manager) stateLocked(src models.Source) models.SourceState {
	st := m.states[src]
	records := st.records
	if records == nil {
		records = []models.Record{}
	}
	return models.SourceState{
		Source:     src,
		Key:        src.PollKey(),
		Records:    records,
		HasData:    st.hasData,
		FetchedAt:  st.fetchedAt,
		Generation: st.generation,
		Loading:    st.inflight > 0 && !st.hasData,
		Validating: st.inflight > 0,
		Error:      st.err,
		ErrorAt:    st.errAt,
	}
}

// Snapshot returns both sources' state at one instant.
func (m *Manager) Snapshot() models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.Snapshot{
		Solar:   m.stateLocked(models.SourceSolar),
		Wind:    m.stateLocked(models.SourceWind),
		TakenAt: time.Now(),
	}
}

// Subscribe returns a channel that receives a signal after every state
// change. Signals coalesce when the reader is slow. Call the returned
// func to unsubscribe.
func (m *Manager) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
