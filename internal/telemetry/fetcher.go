// Package telemetry fetches and parses every record of a source.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/docstore"
	"github.com/siddheshvrane/solar-dashboard/internal/metrics"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
	"github.com/siddheshvrane/solar-dashboard/internal/parser"
)

// Fetcher retrieves the full record sequence of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src models.Source) ([]models.Record, error)
}

// StoreFetcher runs the parser's query against a document store. Records
// keep the order the store returned them in.
type StoreFetcher struct {
	querier docstore.Querier
	parser  parser.Parser
	strict  bool
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStoreFetcher creates a fetcher. With strict set, one malformed
// document fails the whole fetch; otherwise it is skipped and logged.
func NewStoreFetcher(q docstore.Querier, p parser.Parser, strict bool, logger *zap.Logger, m *metrics.Metrics) *StoreFetcher {
	return &StoreFetcher{
		querier: q,
		parser:  p,
		strict:  strict,
		logger:  logger,
		metrics: m,
	}
}

func (f *StoreFetcher) Fetch(ctx context.Context, src models.Source) ([]models.Record, error) {
	start := time.Now()
	records, err := f.fetch(ctx, src)

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	f.metrics.ObserveFetch(src, result, time.Since(start).Seconds())
	return records, err
}

func (f *StoreFetcher) fetch(ctx context.Context, src models.Source) ([]models.Record, error) {
	q := f.parser.Query(src)
	docs, err := f.querier.RunQuery(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}

	records := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := f.parser.Parse(doc, src)
		if err != nil {
			if f.strict || !errors.Is(err, parser.ErrMalformedRecord) {
				return nil, fmt.Errorf("fetching %s: %w", src, err)
			}
			f.metrics.IncMalformed(src)
			f.logger.Warn("skipping malformed document",
				zap.String("source", string(src)),
				zap.String("document", doc.ID()),
				zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	f.logger.Debug("fetched records",
		zap.String("source", string(src)),
		zap.String("query", q.String()),
		zap.Int("documents", len(docs)),
		zap.Int("records", len(records)))
	return records, nil
}
