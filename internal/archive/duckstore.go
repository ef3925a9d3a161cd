// Package archive keeps every record the dashboard has fetched in a local
// DuckDB file, so history survives documents being removed upstream.
package archive

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/models"
)

// ErrDisabled is returned by callers that hold no archive.
var ErrDisabled = errors.New("archive disabled")

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// Options configures the DuckDB connection.
type Options struct {
	Path        string
	Threads     int
	MemoryLimit string
}

// Archive stores records keyed by (source, document id). Re-archiving a
// document replaces its previous row. The table carries no secondary
// index because DuckDB refuses upserts that rewrite indexed columns.
type Archive struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	// limits concurrent history queries
	querySem chan struct{}
}

// Open creates or reopens the archive file at opts.Path.
func Open(opts Options, logger *zap.Logger) (*Archive, error) {
	if opts.Path == "" {
		return nil, errors.New("archive path is required")
	}
	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "256MB"
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA memory_limit='%s'", strings.ReplaceAll(opts.MemoryLimit, "'", "")),
		fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
		"PRAGMA enable_progress_bar=false",
	}
	connector, err := duckdb.NewConnector(opts.Path, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			source      VARCHAR NOT NULL,
			id          VARCHAR NOT NULL,
			ts_ms       BIGINT NOT NULL,
			label       VARCHAR NOT NULL,
			angle_deg   DOUBLE NOT NULL,
			current_a   DOUBLE NOT NULL,
			voltage_v   DOUBLE NOT NULL,
			ldr         DOUBLE,
			PRIMARY KEY (source, id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("archive opened", zap.String("path", opts.Path), zap.Int("threads", opts.Threads))
	return &Archive{
		db:       db,
		path:     opts.Path,
		logger:   logger,
		querySem: make(chan struct{}, 3),
	}, nil
}

// Store upserts records of src in one transaction and returns how many
// rows were written.
func (a *Archive) Store(ctx context.Context, src models.Source, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (source, id, ts_ms, label, angle_deg, current_a, voltage_v, ldr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var ldr sql.NullFloat64
		if r.LDR != nil {
			ldr = sql.NullFloat64{Float64: *r.LDR, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			string(src),
			r.ID,
			r.Timestamp.UnixMs,
			r.Timestamp.Raw,
			r.Angle,
			r.Current,
			r.Voltage,
			ldr,
		)
		if err != nil {
			return 0, fmt.Errorf("archive row %d (%s): %w", i, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive tx: %w", err)
	}
	return len(records), nil
}

// HistoryQuery selects one page of archived records. Start and End are
// inclusive epoch milliseconds; zero leaves that side open.
type HistoryQuery struct {
	Source   models.Source
	Page     int
	PageSize int
	Start    int64
	End      int64
}

func (q *HistoryQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

func (q HistoryQuery) where() (string, []interface{}) {
	conds := []string{"source = ?"}
	args := []interface{}{string(q.Source)}
	if q.Start != 0 {
		conds = append(conds, "ts_ms >= ?")
		args = append(args, q.Start)
	}
	if q.End != 0 {
		conds = append(conds, "ts_ms <= ?")
		args = append(args, q.End)
	}
	return strings.Join(conds, " AND "), args
}

// Query returns the requested page in ascending timestamp order together
// with the total number of matching rows.
func (a *Archive) Query(ctx context.Context, q HistoryQuery) ([]models.Record, int, error) {
	select {
	case a.querySem <- struct{}{}:
		defer func() { <-a.querySem }()
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	q.normalize()
	where, args := q.where()

	var total int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}
	if total == 0 {
		return []models.Record{}, 0, nil
	}

	offset := (q.Page - 1) * q.PageSize
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, ts_ms, label, angle_deg, current_a, voltage_v, ldr
		FROM records WHERE `+where+`
		ORDER BY ts_ms ASC, id ASC
		LIMIT ? OFFSET ?
	`, append(args, q.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("history query failed: %w", err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, q.PageSize)
	for rows.Next() {
		r := models.Record{Source: q.Source}
		var ldr sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Timestamp.UnixMs, &r.Timestamp.Raw, &r.Angle, &r.Current, &r.Voltage, &ldr); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		if ldr.Valid {
			r.LDR = models.Float(ldr.Float64)
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// Count returns the number of archived rows of src.
func (a *Archive) Count(ctx context.Context, src models.Source) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE source = ?", string(src)).Scan(&n)
	return n, err
}

// Path returns the database file path.
func (a *Archive) Path() string {
	return a.path
}

// Close releases the database. The file is kept.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
