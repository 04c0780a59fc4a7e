package dataprocessing

import (
	"finops/internal/shared"
)

// FillStatistics reports what a fill pass changed in one column.
type FillStatistics struct {
	Missing       int
	ForwardFilled int
	MedianFilled  int
	Unfilled      int
}

// ForwardFillProcessor imputes gaps in numeric series. Values are filled from
// the last present value in input order; gaps with no earlier value fall back
// to the median of the values present before filling.
type ForwardFillProcessor struct{}

// NewForwardFillProcessor creates a new forward-fill processor
func NewForwardFillProcessor() *ForwardFillProcessor {
	return &ForwardFillProcessor{}
}

// FillMissingData returns a filled copy of values.
func (f *ForwardFillProcessor) FillMissingData(values []float64) []float64 {
	filled, _ := f.FillMissingDataWithStats(values)
	return filled
}

// FillMissingDataWithStats performs the fill and returns statistics.
// A column with no present values stays missing.
func (f *ForwardFillProcessor) FillMissingDataWithStats(values []float64) ([]float64, FillStatistics) {
	var stats FillStatistics
	out := make([]float64, len(values))
	median := shared.Median(values)

	last := shared.Missing()
	for i, v := range values {
		if !shared.IsMissing(v) {
			out[i] = v
			last = v
			continue
		}
		stats.Missing++
		switch {
		case !shared.IsMissing(last):
			out[i] = last
			stats.ForwardFilled++
		case !shared.IsMissing(median):
			out[i] = median
			stats.MedianFilled++
		default:
			out[i] = v
			stats.Unfilled++
		}
	}
	return out, stats
}
