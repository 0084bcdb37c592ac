package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/gpumon/internal/domain"
	"github.com/user/gpumon/internal/fetch"
)

const (
	priceSelector     = "span.a-price-whole"
	specTableSelector = "table.a-normal.a-spacing-micro"
)

// specRow is a labeled row of the offer's specification table.
type specRow struct {
	selector string
	label    string
	assign   func(rec *domain.RawRecord, value string)
}

var specRows = []specRow{
	{`tr.po-graphics_coprocessor`, "Graphics Coprocessor", func(r *domain.RawRecord, v string) { r.Model = v }},
	{`tr.po-brand`, "Brand", func(r *domain.RawRecord, v string) { r.Brand = v }},
	{`tr[class~="po-graphics_ram.size"]`, "Graphics Ram Size", func(r *domain.RawRecord, v string) { r.RAM = v }},
	{`tr.po-gpu_clock_speed`, "GPU Clock Speed", func(r *domain.RawRecord, v string) { r.ClockSpeed = v }},
}

// Extractor turns one offer page into a RawRecord.
type Extractor struct {
	fetcher fetch.Fetcher
}

func NewExtractor(f fetch.Fetcher) *Extractor {
	return &Extractor{fetcher: f}
}

// Extract fetches and parses the offer at url and stamps the record with date.
// Missing page structure degrades to Unknown fields; only fetch failures
// produce a non-success outcome.
func (e *Extractor) Extract(ctx context.Context, url, userAgent string, date time.Time) domain.Outcome[domain.RawRecord] {
	page := e.fetcher.Fetch(ctx, url, userAgent)
	if !page.OK() {
		page.Reason = fmt.Sprintf("Get offer info: %s %s", url, page.Reason)
		return domain.Recast[[]byte, domain.RawRecord](page)
	}

	rec, err := ParseOffer(page.Value, date)
	if err != nil {
		return domain.Retry[domain.RawRecord](fmt.Sprintf("Get offer info: %s parse error: %v", url, err), page.Status)
	}
	return domain.Succeeded(rec, page.Status)
}

// ParseOffer reads the price and the specification table of an offer document.
func ParseOffer(html []byte, date time.Time) (domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.RawRecord{}, err
	}

	rec := domain.NewRawRecord(date)
	if price := doc.Find(priceSelector).First(); price.Length() > 0 && strings.TrimSpace(price.Text()) != "" {
		rec.Price = price.Text()
	}

	table := doc.Find(specTableSelector).First()
	if table.Length() == 0 {
		return rec, nil
	}
	for _, row := range specRows {
		if v, ok := labeledValue(table.Find(row.selector).First(), row.label); ok {
			row.assign(&rec, v)
		}
	}
	return rec, nil
}

// labeledValue accepts a row only when it has exactly two cells and the first
// one reads exactly label. Layout drift leaves the field Unknown.
func labeledValue(row *goquery.Selection, label string) (string, bool) {
	if row.Length() == 0 {
		return "", false
	}
	cells := row.Find("td")
	if cells.Length() != 2 {
		return "", false
	}
	if strings.TrimSpace(cells.Eq(0).Text()) != label {
		return "", false
	}
	return cells.Eq(1).Text(), true
}
