package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/gpumon/internal/report"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestReportKeepsOrder(t *testing.T) {
	r := report.New(fixedClock(), nil)
	r.Addf("Data from %s", "2026-10-18")
	r.Addf("Iterate pages: page %d page not found", 2)

	lines := r.Lines()
	assert.Len(t, lines, 2)
	assert.Equal(t, "Data from 2026-10-18", lines[0].Text)
	assert.True(t, lines[0].At.Before(lines[1].At))

	assert.Equal(t,
		"2026-10-18T09:00:01Z Data from 2026-10-18\n2026-10-18T09:00:02Z Iterate pages: page 2 page not found",
		r.String())
}

func TestLinesReturnsCopy(t *testing.T) {
	r := report.New(fixedClock(), nil)
	r.Addf("first")

	lines := r.Lines()
	lines[0].Text = "rewritten"
	assert.Equal(t, "first", r.Lines()[0].Text)
}

func TestAddfMirrorsToLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := report.New(fixedClock(), zap.New(core))

	r.Addf("No data was collected")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "No data was collected", entries[0].ContextMap()["line"])
	}
}
