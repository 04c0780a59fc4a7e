package exporter

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"finops/internal/config"
)

// Fixed2 is a float always written with exactly two decimals.
type Fixed2 float64

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}

// formatNumber writes the shortest representation that parses back to f.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatDate writes a calendar date; the zero time is empty.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(config.DateLayout)
}

// formatCell renders one table value for CSV. nil is an empty cell.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatNumber(x)
	case Fixed2:
		return formatFloat(float64(x))
	case int:
		return formatInt(int64(x))
	case int64:
		return formatInt(x)
	case bool:
		return formatBool(x)
	case time.Time:
		return formatDate(x)
	default:
		return fmt.Sprint(x)
	}
}

// workbookCell converts a table value into what excelize should store.
// Missing numbers become empty cells and dates are written as text.
func workbookCell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case Fixed2:
		return workbookCell(float64(x))
	case time.Time:
		return formatDate(x)
	default:
		return x
	}
}
