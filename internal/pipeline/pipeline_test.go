package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/gpumon/internal/crawler"
	"github.com/user/gpumon/internal/domain"
	"github.com/user/gpumon/internal/fetch"
	"github.com/user/gpumon/internal/identity"
	"github.com/user/gpumon/internal/loader"
	"github.com/user/gpumon/internal/monitoring"
	"github.com/user/gpumon/internal/pipeline"
	"github.com/user/gpumon/internal/report"
)

var (
	runTime = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	runDay  = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

const listingPage = `<html><body><div class="s-main-slot s-result-list s-search-results sg-row">
<div class="sg-col-20-of-24 s-result-item s-asin sg-col-0-of-12 sg-col-16-of-20 sg-col s-widget-spacing-small sg-col-12-of-16"><a href="/dp/FULL">RTX 4080</a></div>
<div class="sg-col-20-of-24 s-result-item s-asin sg-col-0-of-12 sg-col-16-of-20 sg-col s-widget-spacing-small sg-col-12-of-16"><a href="/dp/BARE">Mystery card</a></div>
</div></body></html>`

const fullOffer = `<html><body><span class="a-price-whole">1,299.</span>
<table class="a-normal a-spacing-micro">
<tr class="a-spacing-small po-graphics_coprocessor"><td>Graphics Coprocessor</td><td>NVIDIA GeForce RTX 4080</td></tr>
<tr class="a-spacing-small po-brand"><td>Brand</td><td>ASUS</td></tr>
<tr class="a-spacing-small po-graphics_ram.size"><td>Graphics Ram Size</td><td>16 GB</td></tr>
<tr class="a-spacing-small po-gpu_clock_speed"><td>GPU Clock Speed</td><td>2505 MHz</td></tr>
</table></body></html>`

const bareOffer = `<html><body><span class="a-price-whole">349.</span></body></html>`

func newSite(offerHTML map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/s" {
			if r.URL.Query().Get("page") == "1" {
				_, _ = w.Write([]byte(listingPage))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if html, ok := offerHTML[r.URL.Path]; ok {
			_, _ = w.Write([]byte(html))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

type noPause struct{}

func (noPause) Pause(context.Context, time.Duration, time.Duration) error { return nil }

type memorySink struct {
	err   error
	table string
	rows  [][]any
}

func (s *memorySink) Append(_ context.Context, table string, _ []string, rows [][]any) error {
	if s.err != nil {
		return s.err
	}
	s.table = table
	s.rows = append(s.rows, rows...)
	return nil
}

type memoryPublisher struct{ reports []string }

func (p *memoryPublisher) Publish(_ context.Context, r string) error {
	p.reports = append(p.reports, r)
	return nil
}

func newPipeline(t *testing.T, siteURL string, pages int, sink loader.Sink, pub pipeline.Publisher) *pipeline.Pipeline {
	t.Helper()
	return newPipelineAt(t, siteURL, pages, sink, pub, runTime)
}

func newPipelineAt(t *testing.T, siteURL string, pages int, sink loader.Sink, pub pipeline.Publisher, at time.Time) *pipeline.Pipeline {
	t.Helper()

	now := func() time.Time { return at }
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	f := fetch.NewHTTP(5*time.Second, 0, zap.NewNop())
	rot, err := identity.New(identity.DefaultUserAgents)
	require.NoError(t, err)
	c, err := crawler.NewCrawler(crawler.Options{ListingURL: siteURL + "/s?k=graphics+cards"},
		f, crawler.NewExtractor(f), rot, noPause{}, m, zap.NewNop())
	require.NoError(t, err)
	l := loader.New(sink, "gpu_info", t.TempDir(), m, zap.NewNop())
	return pipeline.New(c, l, pub, 1, pages, m, zap.NewNop(), now)
}

func TestRunTwoPagesSecondNotFound(t *testing.T) {
	srv := newSite(map[string]string{"/dp/FULL": fullOffer, "/dp/BARE": bareOffer})
	defer srv.Close()
	sink := &memorySink{}
	pub := &memoryPublisher{}

	sum, err := newPipeline(t, srv.URL, 2, sink, pub).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Collected)
	assert.True(t, sum.Cleaned)
	assert.Equal(t, loader.DestinationSink, sum.Destination)
	assert.Equal(t, domain.Retryable, sum.Stop)

	assert.Equal(t, "gpu_info", sink.table)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, []any{"NVIDIA GeForce RTX 4080", 1299.0, "ASUS", 16.0, 2505.0, runDay}, sink.rows[0])
	assert.Equal(t, []any{domain.Unknown, 349.0, domain.Unknown, nil, nil, runDay}, sink.rows[1])

	notFound := 0
	for _, line := range strings.Split(sum.Report, "\n") {
		if strings.Contains(line, "page 2 page not found") {
			notFound++
		}
	}
	assert.Equal(t, 1, notFound)
	assert.Contains(t, sum.Report, "Data from 2026-10-18")
	assert.Contains(t, sum.Report, "Successfully loaded 2 rows to database")
	assert.Equal(t, []string{sum.Report}, pub.reports)
}

func TestRunDatesRecordsWithLocalDay(t *testing.T) {
	srv := newSite(map[string]string{"/dp/FULL": fullOffer, "/dp/BARE": bareOffer})
	defer srv.Close()
	sink := &memorySink{}
	east := time.FixedZone("UTC+2", 2*60*60)
	justAfterMidnight := time.Date(2026, 10, 18, 0, 30, 0, 0, east)

	sum, err := newPipelineAt(t, srv.URL, 1, sink, nil, justAfterMidnight).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, sum.Report, "Data from 2026-10-18")
	require.Len(t, sink.rows, 2)
	for _, row := range sink.rows {
		date, ok := row[5].(time.Time)
		require.True(t, ok)
		assert.Equal(t, "2026-10-18", date.Format(domain.DateLayout))
	}
}

func TestRunPersistsRawWhenCleaningFails(t *testing.T) {
	broken := strings.Replace(fullOffer, "16 GB", "sixteen gigs", 1)
	srv := newSite(map[string]string{"/dp/FULL": broken, "/dp/BARE": bareOffer})
	defer srv.Close()
	sink := &memorySink{}

	sum, err := newPipeline(t, srv.URL, 1, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, sum.Cleaned)
	assert.Equal(t, "gpu_info_uncleaned", sink.table)
	assert.Equal(t, "sixteen gigs", sink.rows[0][3])
	assert.Contains(t, sum.Report, "Cleaning part of the script failed")
	assert.Contains(t, sum.Report, "(uncleaned table)")
}

func TestRunWithNothingCollected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	sink := &memorySink{}

	sum, err := newPipeline(t, srv.URL, 3, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Collected)
	assert.Equal(t, domain.Fatal, sum.Stop)
	assert.Equal(t, loader.DestinationNone, sum.Destination)
	assert.Contains(t, sum.Report, "access blocked by website (403)")
	assert.Contains(t, sum.Report, "No data was collected")
}

func TestRunFallsBackWhenSinkFails(t *testing.T) {
	srv := newSite(map[string]string{"/dp/FULL": fullOffer, "/dp/BARE": bareOffer})
	defer srv.Close()

	sum, err := newPipeline(t, srv.URL, 1, &memorySink{err: errors.New("connection refused")}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, loader.DestinationFallback, sum.Destination)
	assert.Contains(t, sum.Report, "Data couldn't be loaded to database - connection refused")
}

// blockingCrawler holds the run open until released.
type blockingCrawler struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCrawler) Crawl(_ context.Context, cur domain.CrawlCursor, _ *report.Report) crawler.Result {
	close(b.entered)
	<-b.release
	return crawler.Result{Cursor: cur}
}

func TestRunRejectsOverlap(t *testing.T) {
	bc := &blockingCrawler{entered: make(chan struct{}), release: make(chan struct{})}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	l := loader.New(&memorySink{}, "gpu_info", t.TempDir(), m, zap.NewNop())
	p := pipeline.New(bc, l, nil, 1, 1, m, zap.NewNop(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()
	<-bc.entered

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, pipeline.ErrRunInProgress)

	close(bc.release)
	assert.NoError(t, <-done)
}
