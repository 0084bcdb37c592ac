package loader

import (
	"strconv"

	"github.com/user/gpumon/internal/domain"
)

// missingMarker renders a missing numeric value in the csv fallback.
const missingMarker = "NaN"

// Dataset is one run's batch: cleaned records, or the raw ones when cleaning failed.
type Dataset struct {
	Cleaned bool
	Raw     []domain.RawRecord
	Records []domain.CleanedRecord
}

func (d Dataset) Len() int {
	if d.Cleaned {
		return len(d.Records)
	}
	return len(d.Raw)
}

// Rows returns the batch in domain.Columns order for a database sink.
func (d Dataset) Rows() [][]any {
	rows := make([][]any, 0, d.Len())
	if d.Cleaned {
		for _, r := range d.Records {
			rows = append(rows, r.Values())
		}
		return rows
	}
	for _, r := range d.Raw {
		rows = append(rows, r.Values())
	}
	return rows
}

// Strings returns the batch as csv fields.
func (d Dataset) Strings() [][]string {
	rows := make([][]string, 0, d.Len())
	if d.Cleaned {
		for _, r := range d.Records {
			rows = append(rows, []string{
				r.Model, formatFloat(r.PriceUSD), r.Brand, formatFloat(r.RAMGB), formatFloat(r.ClockMHz), r.Date.Format(domain.DateLayout),
			})
		}
		return rows
	}
	for _, r := range d.Raw {
		rows = append(rows, []string{r.Model, r.Price, r.Brand, r.RAM, r.ClockSpeed, r.Date.Format(domain.DateLayout)})
	}
	return rows
}

func formatFloat(f *float64) string {
	if f == nil {
		return missingMarker
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
