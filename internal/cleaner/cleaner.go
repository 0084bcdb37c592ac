// Package cleaner converts scraped text fields into typed, unit-normalized values.
package cleaner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/user/gpumon/internal/domain"
)

var (
	ErrEmptyBatch = errors.New("cleaner: empty batch")
	// ErrInternal wraps failures that are not caused by the shape of the data.
	ErrInternal = errors.New("cleaner: internal error")
	// ErrNotFinite rejects NaN and infinities, which strconv accepts as numbers.
	ErrNotFinite = errors.New("not a finite number")
)

// CleaningFailure reports the first field whose shape made the batch uncleanable.
type CleaningFailure struct {
	Index int
	Field string
	Value string
	Err   error
}

func (f *CleaningFailure) Error() string {
	return fmt.Sprintf("record %d: %s %q: %v", f.Index, f.Field, f.Value, f.Err)
}

func (f *CleaningFailure) Unwrap() error {
	return f.Err
}

// Clean converts the whole batch or nothing. A data-shape problem returns a
// *CleaningFailure; anything else is wrapped in ErrInternal.
func Clean(batch []domain.RawRecord) (out []domain.CleanedRecord, err error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	out = make([]domain.CleanedRecord, 0, len(batch))
	for i, raw := range batch {
		rec, err := cleanRecord(raw)
		if err != nil {
			var cf *CleaningFailure
			if errors.As(err, &cf) {
				cf.Index = i
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func cleanRecord(raw domain.RawRecord) (domain.CleanedRecord, error) {
	price, err := Price(raw.Price)
	if err != nil {
		return domain.CleanedRecord{}, &CleaningFailure{Field: "price_USD", Value: raw.Price, Err: err}
	}
	ram, err := RAM(raw.RAM)
	if err != nil {
		return domain.CleanedRecord{}, &CleaningFailure{Field: "ram_GB", Value: raw.RAM, Err: err}
	}
	clock, err := ClockMHz(raw.ClockSpeed)
	if err != nil {
		return domain.CleanedRecord{}, &CleaningFailure{Field: "gpu_clock_speed_MHz", Value: raw.ClockSpeed, Err: err}
	}
	return domain.CleanedRecord{
		Model:    Category(raw.Model),
		PriceUSD: price,
		Brand:    Category(raw.Brand),
		RAMGB:    ram,
		ClockMHz: clock,
		Date:     raw.Date,
	}, nil
}

// Price parses a price such as "1,299." or "1,299.00". Unknown is missing.
func Price(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == domain.Unknown {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".")
	return parse(s)
}

// RAM parses a size such as "16 GB" into gigabytes. Unknown is missing.
func RAM(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == domain.Unknown {
		return nil, nil
	}
	if n := len(s); n >= 2 && strings.EqualFold(s[n-2:], "gb") {
		s = s[:n-2]
	}
	return parse(strings.TrimSpace(s))
}

// ClockMHz normalizes a clock speed to megahertz. A value without a ghz or mhz
// suffix is taken as-is and is missing when it is not a number.
func ClockMHz(s string) (*float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(s, "ghz"):
		v, err := parse(strings.TrimSpace(strings.ReplaceAll(s, "ghz", "")))
		if err != nil {
			return nil, err
		}
		mhz := *v * 1000
		return &mhz, nil
	case strings.Contains(s, "mhz"):
		return parse(strings.TrimSpace(strings.ReplaceAll(s, "mhz", "")))
	default:
		v, err := parse(s)
		if err != nil {
			return nil, nil
		}
		return v, nil
	}
}

// Category trims a categorical field. Unknown passes through unchanged.
func Category(s string) string {
	return strings.TrimSpace(s)
}

func parse(s string) (*float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrNotFinite
	}
	return &v, nil
}
