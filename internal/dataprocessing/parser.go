package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"finops/internal/errors"
	"finops/internal/shared"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// dateLayouts are tried in order when parsing a date cell.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01",
}

// ParseDate parses a date cell. Unparseable or empty cells give the zero time
// and false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseNumber coerces a numeric cell. Empty or unparseable cells are missing.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return shared.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return shared.Missing()
	}
	return v
}

// csvTable is a CSV file indexed by lower-cased header name.
type csvTable struct {
	source  string
	columns map[string]int
	rows    [][]string
}

func readCSVTable(r io.Reader, source string) (*csvTable, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("failed to read %s", source), err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to parse %s", source), err)
	}
	if len(records) == 0 {
		return nil, errors.NewDataError(fmt.Sprintf("%s has no header row", source))
	}

	t := &csvTable{source: source, columns: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, h := range records[0] {
		t.columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return t, nil
}

func openCSVTable(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(path).WithContext("cause", err.Error())
		}
		return nil, errors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return readCSVTable(f, path)
}

func (t *csvTable) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewParsingError(fmt.Sprintf("%s is missing required columns: %s",
			t.source, strings.Join(missing, ", ")), nil)
	}
	return nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.columns[col]
	return ok
}

func (t *csvTable) each(fn func(row csvRow) error) error {
	for i, rec := range t.rows {
		if isBlank(rec) {
			continue
		}
		if err := fn(csvRow{table: t, record: rec, line: i + 2}); err != nil {
			return err
		}
	}
	return nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type csvRow struct {
	table  *csvTable
	record []string
	line   int
}

func (r csvRow) raw(col string) string {
	i, ok := r.table.columns[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

func (r csvRow) str(col string) string { return strings.TrimSpace(r.raw(col)) }

func (r csvRow) float(col string) float64 { return ParseNumber(r.raw(col)) }

func (r csvRow) date(col string) time.Time {
	t, _ := ParseDate(r.raw(col))
	return t
}

func (r csvRow) bool(col string) bool {
	b, _ := strconv.ParseBool(r.str(col))
	return b
}

// integer parses a whole-number cell; floats such as "12.0" are accepted.
func (r csvRow) integer(col string) (int, error) {
	v := ParseNumber(r.raw(col))
	if shared.IsMissing(v) {
		return 0, errors.NewParsingError(fmt.Sprintf("%s line %d: column %s is not a number",
			r.table.source, r.line, col), nil)
	}
	return int(v), nil
}

func (r csvRow) integers(cols ...string) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		v, err := r.integer(c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var rowValidator = validator.New()

// validateRow runs struct tag validation on a parsed record.
func validateRow(source string, line int, v any) error {
	if err := rowValidator.Struct(v); err != nil {
		return errors.NewAppValidationError(fmt.Sprintf("%s line %d: %v", source, line, err))
	}
	return nil
}
