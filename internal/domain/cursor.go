package domain

import "time"

// CrawlCursor is the crawl position. It is passed into each page step and a new
// value is returned from it; nothing else holds or mutates it.
type CrawlCursor struct {
	CurrentPage   int
	StartPage     int
	PageCount     int
	IdentityIndex int
	// RunDate stamps every record of the run.
	RunDate time.Time
}

// NewCursor positions a cursor on startPage. A pageCount below one is raised to one.
func NewCursor(startPage, pageCount int) CrawlCursor {
	if pageCount < 1 {
		pageCount = 1
	}
	return CrawlCursor{
		CurrentPage: startPage,
		StartPage:   startPage,
		PageCount:   pageCount,
	}
}

// DayOf returns midnight of t's calendar day in t's own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Done reports whether every page of the range has been visited.
func (c CrawlCursor) Done() bool {
	return c.CurrentPage >= c.StartPage+c.PageCount
}

// Advance moves to the next page and rotates the identity index to the page just finished.
func (c CrawlCursor) Advance() CrawlCursor {
	c.IdentityIndex = c.CurrentPage
	c.CurrentPage++
	return c
}
