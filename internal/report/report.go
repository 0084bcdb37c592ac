// Package report accumulates the ordered event log of one pipeline run.
package report

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Line is a single timestamped report entry.
type Line struct {
	At   time.Time
	Text string
}

func (l Line) String() string {
	return l.At.UTC().Format(time.RFC3339) + " " + l.Text
}

// Report is append-only: lines are never rewritten or removed.
type Report struct {
	lines  []Line
	now    func() time.Time
	logger *zap.Logger
}

// New creates an empty report. A nil clock defaults to time.Now and a nil logger to a no-op.
func New(now func() time.Time, logger *zap.Logger) *Report {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Report{now: now, logger: logger}
}

// Addf appends a formatted line and mirrors it to the log.
func (r *Report) Addf(format string, args ...any) {
	line := Line{At: r.now(), Text: fmt.Sprintf(format, args...)}
	r.lines = append(r.lines, line)
	r.logger.Info("report", zap.String("line", line.Text))
}

// Lines returns a copy of the lines in insertion order.
func (r *Report) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Len returns the number of lines appended so far.
func (r *Report) Len() int {
	return len(r.lines)
}

// String renders the report as the text blob handed to the notifier.
func (r *Report) String() string {
	var b strings.Builder
	for i, l := range r.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.String())
	}
	return b.String()
}
