package exporter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{13.4, "13.40"},
		{0, "0.00"},
		{-1.005, "-1.00"},
		{1234567.891, "1234567.89"},
		{math.NaN(), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFloat(tt.in))
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Europe", "Europe"},
		{"float keeps precision", 0.1 + 0.2, "0.30000000000000004"},
		{"whole float", 1500.0, "1500"},
		{"missing float", math.NaN(), ""},
		{"fixed", Fixed2(2.5), "2.50"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"date", time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), "2024-02-29"},
		{"zero date", time.Time{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.in))
		})
	}
}

func TestWorkbookCell(t *testing.T) {
	assert.Nil(t, workbookCell(math.NaN()))
	assert.Nil(t, workbookCell(Fixed2(math.Inf(1))))
	assert.Equal(t, 3.5, workbookCell(Fixed2(3.5)))
	assert.Equal(t, "2021-01-01", workbookCell(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7, workbookCell(7))
}
