package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/gqlcompose/dialect"
)

// DefaultSlowQuery is the duration above which a statement counts as slow.
const DefaultSlowQuery = 100 * time.Millisecond

// StatsSnapshot holds the statement counts of a StatsDriver at one point.
type StatsSnapshot struct {
	Queries int64
	Execs   int64
	Errors  int64
	Slow    int64
	Elapsed time.Duration
}

// Avg returns the mean duration of a statement.
func (s StatsSnapshot) Avg() time.Duration {
	n := s.Queries + s.Execs
	if n == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(n)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d errors=%d slow=%d elapsed=%s avg=%s",
		s.Queries, s.Execs, s.Errors, s.Slow, s.Elapsed, s.Avg())
}

// StatsDriver counts the statements run through a Driver and logs the slow
// ones.
type StatsDriver struct {
	*Driver
	queries, execs, errors, slow atomic.Int64
	elapsed                      atomic.Int64
	threshold                    time.Duration
	log                          *slog.Logger
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
)

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold. Non-positive values
// keep DefaultSlowQuery.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		if d > 0 {
			s.threshold = d
		}
	}
}

// WithSlowQueryLog logs slow statements to log, or to the default logger
// when log is nil.
func WithSlowQueryLog(log *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		if log == nil {
			log = slog.Default()
		}
		s.log = log
	}
}

// NewStatsDriver wraps drv.
//
//	store, err := sql.NewStore(sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	))
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, threshold: DefaultSlowQuery}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counts so far.
func (d *StatsDriver) Stats() StatsSnapshot {
	return StatsSnapshot{
		Queries: d.queries.Load(),
		Execs:   d.execs.Load(),
		Errors:  d.errors.Load(),
		Slow:    d.slow.Load(),
		Elapsed: time.Duration(d.elapsed.Load()),
	}
}

// Query implements dialect.Driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, &d.queries, query, args, start, err)
	return err
}

// Exec implements dialect.Driver.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, &d.execs, query, args, start, err)
	return err
}

// Tx starts a transaction whose statements are counted as well.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, drv: d}, nil
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, start time.Time, err error) {
	elapsed := time.Since(start)
	counter.Add(1)
	d.elapsed.Add(int64(elapsed))
	if err != nil {
		d.errors.Add(1)
	}
	if elapsed <= d.threshold {
		return
	}
	d.slow.Add(1)
	if d.log != nil {
		n := 0
		if a, ok := args.([]any); ok {
			n = len(a)
		}
		d.log.LogAttrs(ctx, slog.LevelWarn, "slow query",
			slog.Duration("duration", elapsed),
			slog.String("query", query),
			slog.Int("args", n),
		)
	}
}

type statsTx struct {
	dialect.Tx
	drv *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.drv.observe(ctx, &tx.drv.queries, query, args, start, err)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.drv.observe(ctx, &tx.drv.execs, query, args, start, err)
	return err
}
