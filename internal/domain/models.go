package domain

import "time"

// Unknown marks a field that could not be located on the offer page.
const Unknown = "unknown"

// DateLayout is the ISO-8601 calendar date used in every sink.
const DateLayout = "2006-01-02"

// Columns is the persisted dataset schema, shared by the database and the csv fallback.
var Columns = []string{"model", "price_USD", "brand", "ram_GB", "gpu_clock_speed_MHz", "date"}

// RawRecord holds the textual fields scraped from one offer page.
// Every field that was not found carries Unknown, never an empty string.
type RawRecord struct {
	Model      string
	Price      string
	Brand      string
	RAM        string
	ClockSpeed string
	Date       time.Time
}

// NewRawRecord returns a record with every textual field set to Unknown.
func NewRawRecord(date time.Time) RawRecord {
	return RawRecord{
		Model:      Unknown,
		Price:      Unknown,
		Brand:      Unknown,
		RAM:        Unknown,
		ClockSpeed: Unknown,
		Date:       date,
	}
}

// Values returns the record in Columns order.
func (r RawRecord) Values() []any {
	return []any{r.Model, r.Price, r.Brand, r.RAM, r.ClockSpeed, r.Date}
}

// CleanedRecord is a RawRecord with typed, unit-normalized numeric fields.
// A nil numeric field means the value is missing.
type CleanedRecord struct {
	Model    string
	PriceUSD *float64
	Brand    string
	RAMGB    *float64
	ClockMHz *float64
	Date     time.Time
}

// Values returns the record in Columns order; missing numerics are untyped nils.
func (r CleanedRecord) Values() []any {
	return []any{r.Model, nullable(r.PriceUSD), r.Brand, nullable(r.RAMGB), nullable(r.ClockMHz), r.Date}
}

func nullable(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
