package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/gpumon/internal/domain"
	"github.com/user/gpumon/internal/fetch"
	"github.com/user/gpumon/internal/identity"
	"github.com/user/gpumon/internal/monitoring"
	"github.com/user/gpumon/internal/report"
)

const (
	DefaultListingSelector = "div.s-main-slot.s-result-list.s-search-results"
	// DefaultItemSelector matches organic results only; sponsored and widget
	// items carry a different column class set.
	DefaultItemSelector = `div[class="sg-col-20-of-24 s-result-item s-asin sg-col-0-of-12 sg-col-16-of-20 sg-col s-widget-spacing-small sg-col-12-of-16"]`
)

// Bounds is an inclusive pause range.
type Bounds struct {
	Min time.Duration
	Max time.Duration
}

// Options configures a Crawler.
type Options struct {
	ListingURL      string
	SiteOrigin      string // empty means the listing URL's scheme and host
	ListingSelector string
	ItemSelector    string
	PageDelay       Bounds
	OfferDelay      Bounds
}

// Result is what a crawl collected and why it stopped.
type Result struct {
	Records []domain.RawRecord
	Cursor  domain.CrawlCursor
	// Stop is Success when the page range was exhausted.
	Stop   domain.Kind
	Reason string
}

// Crawler walks listing pages strictly one after another.
type Crawler struct {
	opts      Options
	listing   *url.URL
	origin    *url.URL
	fetcher   fetch.Fetcher
	extractor *Extractor
	rotator   *identity.Rotator
	pacer     Pacer
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

func NewCrawler(opts Options, f fetch.Fetcher, ex *Extractor, rot *identity.Rotator, p Pacer, m *monitoring.Metrics, l *zap.Logger) (*Crawler, error) {
	listing, err := url.Parse(opts.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}
	origin := &url.URL{Scheme: listing.Scheme, Host: listing.Host}
	if opts.SiteOrigin != "" {
		if origin, err = url.Parse(opts.SiteOrigin); err != nil {
			return nil, fmt.Errorf("parse site origin: %w", err)
		}
	}
	if opts.ListingSelector == "" {
		opts.ListingSelector = DefaultListingSelector
	}
	if opts.ItemSelector == "" {
		opts.ItemSelector = DefaultItemSelector
	}
	if p == nil {
		p = RandomPacer{}
	}
	return &Crawler{
		opts:      opts,
		listing:   listing,
		origin:    origin,
		fetcher:   f,
		extractor: ex,
		rotator:   rot,
		pacer:     p,
		metrics:   m,
		logger:    l,
	}, nil
}

// Crawl visits the cursor's page range and returns every record collected,
// including on an early halt. It never fails: stop causes go to the report.
func (c *Crawler) Crawl(ctx context.Context, cur domain.CrawlCursor, rep *report.Report) Result {
	if cur.RunDate.IsZero() {
		cur.RunDate = domain.DayOf(time.Now())
	}
	res := Result{Cursor: cur, Stop: domain.Success}
	for !res.Cursor.Done() {
		step := c.crawlPage(ctx, res.Cursor, rep)
		res.Records = append(res.Records, step.records...)
		if step.stop != domain.Success {
			res.Stop, res.Reason = step.stop, step.reason
			break
		}
		res.Cursor = step.next
	}
	c.logger.Info("crawl finished",
		zap.Int("records", len(res.Records)),
		zap.Int("last_page", res.Cursor.CurrentPage),
		zap.Stringer("stop", res.Stop),
	)
	return res
}

type pageStep struct {
	next    domain.CrawlCursor
	records []domain.RawRecord
	stop    domain.Kind
	reason  string
}

func (c *Crawler) crawlPage(ctx context.Context, cur domain.CrawlCursor, rep *report.Report) pageStep {
	page := cur.CurrentPage
	userAgent := c.rotator.Next(cur.IdentityIndex)
	halt := func(kind domain.Kind, reason string) pageStep {
		rep.Addf("Iterate pages: page %d %s", page, reason)
		return pageStep{next: cur, stop: kind, reason: reason}
	}

	c.logger.Info("fetching listing page", zap.Int("page", page))
	out := c.fetcher.Fetch(ctx, c.PageURL(page), userAgent)
	c.metrics.IncPage(out.Kind.String())
	if !out.OK() {
		return halt(out.Kind, out.Reason)
	}
	if err := c.pacer.Pause(ctx, c.opts.PageDelay.Min, c.opts.PageDelay.Max); err != nil {
		return halt(domain.Fatal, fmt.Sprintf("interrupted: %v", err))
	}

	links, found, err := c.offerLinks(out.Value)
	if err != nil {
		return halt(domain.Retryable, fmt.Sprintf("parse error: %v", err))
	}
	if !found {
		return halt(domain.Retryable, "no results found")
	}

	step := pageStep{stop: domain.Success}
	for _, link := range links {
		if err := c.pacer.Pause(ctx, c.opts.OfferDelay.Min, c.opts.OfferDelay.Max); err != nil {
			rep.Addf("Iterate pages: page %d interrupted: %v", page, err)
			step.stop, step.reason = domain.Fatal, err.Error()
			return step
		}
		offer := c.extractor.Extract(ctx, link, userAgent, cur.RunDate)
		c.metrics.IncOffer(offer.Kind.String())
		switch offer.Kind {
		case domain.Success:
			step.records = append(step.records, offer.Value)
		case domain.Retryable:
			rep.Addf("%s", offer.Reason)
		case domain.Fatal:
			rep.Addf("%s", offer.Reason)
			step.stop, step.reason = domain.Fatal, offer.Reason
			return step
		}
	}

	step.next = cur.Advance()
	return step
}

// PageURL appends the page parameter to the listing URL. The rest of the
// query is kept byte for byte; a page parameter already present is replaced.
func (c *Crawler) PageURL(page int) string {
	u := *c.listing
	var params []string
	for _, p := range strings.Split(u.RawQuery, "&") {
		if p == "" || p == "page" || strings.HasPrefix(p, "page=") {
			continue
		}
		params = append(params, p)
	}
	u.RawQuery = strings.Join(append(params, "page="+strconv.Itoa(page)), "&")
	return u.String()
}

// offerLinks returns the absolute offer URLs of a listing page. found is false
// when the results container is absent.
func (c *Crawler) offerLinks(html []byte) (links []string, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false, err
	}
	container := doc.Find(c.opts.ListingSelector).First()
	if container.Length() == 0 {
		return nil, false, nil
	}
	container.Find(c.opts.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a[href]").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := toAbsoluteURL(c.origin, strings.TrimSpace(href))
		if err != nil {
			c.logger.Debug("skipping malformed offer link", zap.String("href", href), zap.Error(err))
			return
		}
		links = append(links, abs)
	})
	return links, true, nil
}

func toAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}
