// Package loader persists a run's batch so that it always lands somewhere.
package loader

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/user/gpumon/internal/domain"
	"github.com/user/gpumon/internal/monitoring"
	"github.com/user/gpumon/internal/report"
)

// Sink is the primary, table-oriented destination.
type Sink interface {
	Append(ctx context.Context, table string, columns []string, rows [][]any) error
}

// Destination is where a batch ended up.
type Destination string

const (
	DestinationNone     Destination = "none"
	DestinationSink     Destination = "sink"
	DestinationFallback Destination = "fallback"
	DestinationLost     Destination = "lost"
)

// Loader writes to the sink and falls back to a local csv file named after the table.
type Loader struct {
	sink        Sink
	table       string
	fallbackDir string
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

func New(sink Sink, table, fallbackDir string, m *monitoring.Metrics, l *zap.Logger) *Loader {
	return &Loader{sink: sink, table: table, fallbackDir: fallbackDir, metrics: m, logger: l}
}

// Table returns the target table for a batch.
func (l *Loader) Table(cleaned bool) string {
	if cleaned {
		return l.table
	}
	return l.table + "_uncleaned"
}

// FallbackPath returns the csv file used when table cannot be written.
func (l *Loader) FallbackPath(table string) string {
	return filepath.Join(l.fallbackDir, table+".csv")
}

func (l *Loader) Load(ctx context.Context, ds Dataset, rep *report.Report) Destination {
	n := ds.Len()
	if n == 0 {
		rep.Addf("No data was collected")
		return DestinationNone
	}

	table := l.Table(ds.Cleaned)
	err := l.sink.Append(ctx, table, domain.Columns, ds.Rows())
	if err == nil {
		if ds.Cleaned {
			rep.Addf("Successfully loaded %d rows to database", n)
		} else {
			rep.Addf("Successfully loaded %d rows to database (uncleaned table)", n)
		}
		l.metrics.AddRows(string(DestinationSink), n)
		return DestinationSink
	}

	l.logger.Warn("sink append failed, using csv fallback", zap.String("table", table), zap.Error(err))
	rep.Addf("Data couldn't be loaded to database - %v, it was saved to csv file", err)

	path := l.FallbackPath(table)
	if err := appendCSV(path, domain.Columns, ds.Strings()); err != nil {
		l.logger.Error("csv fallback failed", zap.String("path", path), zap.Int("rows", n), zap.Error(err))
		rep.Addf("Saving %d rows to %s failed - %v", n, path, err)
		l.metrics.AddRows(string(DestinationLost), n)
		return DestinationLost
	}
	l.metrics.AddRows(string(DestinationFallback), n)
	return DestinationFallback
}
