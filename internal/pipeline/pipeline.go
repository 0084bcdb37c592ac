// Package pipeline runs one crawl → clean → load pass and hands the report off.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/gpumon/internal/cleaner"
	"github.com/user/gpumon/internal/crawler"
	"github.com/user/gpumon/internal/domain"
	"github.com/user/gpumon/internal/loader"
	"github.com/user/gpumon/internal/monitoring"
	"github.com/user/gpumon/internal/report"
)

var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Crawler collects raw records for a page range.
type Crawler interface {
	Crawl(ctx context.Context, cur domain.CrawlCursor, rep *report.Report) crawler.Result
}

// Loader persists a dataset.
type Loader interface {
	Load(ctx context.Context, ds loader.Dataset, rep *report.Report) loader.Destination
}

// Publisher hands the rendered report to the notifier.
type Publisher interface {
	Publish(ctx context.Context, report string) error
}

// Summary describes a finished run.
type Summary struct {
	Collected   int
	Cleaned     bool
	Destination loader.Destination
	Stop        domain.Kind
	Report      string
}

// Pipeline owns the run sequence. Runs never overlap.
type Pipeline struct {
	crawler   Crawler
	loader    Loader
	publisher Publisher
	startPage int
	pageCount int
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	now       func() time.Time

	running sync.Mutex
}

func New(c Crawler, l Loader, p Publisher, startPage, pageCount int, m *monitoring.Metrics, logger *zap.Logger, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		crawler:   c,
		loader:    l,
		publisher: p,
		startPage: startPage,
		pageCount: pageCount,
		metrics:   m,
		logger:    logger,
		now:       now,
	}
}

// Run executes one pass. It fails only with ErrRunInProgress; every other
// problem is recorded in the report.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if !p.running.TryLock() {
		return Summary{}, ErrRunInProgress
	}
	defer p.running.Unlock()

	start := p.now()
	rep := report.New(p.now, p.logger)
	rep.Addf("Data from %s", domain.DayOf(start).Format(domain.DateLayout))

	cur := domain.NewCursor(p.startPage, p.pageCount)
	cur.RunDate = domain.DayOf(start)
	res := p.crawler.Crawl(ctx, cur, rep)
	ds := p.clean(res.Records, rep)
	dest := p.loader.Load(ctx, ds, rep)

	sum := Summary{
		Collected:   len(res.Records),
		Cleaned:     ds.Cleaned,
		Destination: dest,
		Stop:        res.Stop,
		Report:      rep.String(),
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, sum.Report); err != nil {
			p.logger.Error("publishing report failed", zap.Error(err))
		}
	}
	p.metrics.RunDuration.Observe(p.now().Sub(start).Seconds())
	p.logger.Info("run finished",
		zap.Int("collected", sum.Collected),
		zap.Bool("cleaned", sum.Cleaned),
		zap.String("destination", string(sum.Destination)),
	)
	return sum, nil
}

// clean returns the cleaned dataset, or the raw one when cleaning is not possible.
func (p *Pipeline) clean(records []domain.RawRecord, rep *report.Report) loader.Dataset {
	if len(records) == 0 {
		return loader.Dataset{Cleaned: true}
	}
	cleaned, err := cleaner.Clean(records)
	if err == nil {
		p.metrics.IncCleaning("cleaned")
		return loader.Dataset{Cleaned: true, Records: cleaned}
	}

	var cf *cleaner.CleaningFailure
	if errors.As(err, &cf) {
		p.metrics.IncCleaning("shape_failure")
		p.logger.Warn("cleaning failed", zap.Int("record", cf.Index), zap.String("field", cf.Field), zap.Error(err))
		rep.Addf("Cleaning part of the script failed: %v", err)
	} else {
		p.metrics.IncCleaning("internal_error")
		p.logger.Error("cleaning crashed", zap.Error(err))
		rep.Addf("Cleaning part of the script failed with an internal error: %v", err)
	}
	return loader.Dataset{Raw: records}
}
