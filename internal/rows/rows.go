// Package rows defines the boundary between spreadsheet-shaped import
// sources and the import validator: a Set of records mapping trimmed column
// names to raw string values.
package rows

import (
	"context"
	"strconv"
	"strings"
)

type (
	// Row maps a column name to the raw cell value. Absent and empty cells
	// are equivalent: neither key nor value is present.
	Row map[string]string

	// Set is one batch of rows sharing a column header.
	Set struct {
		Columns []string
		Rows    []Row
	}

	// Source yields one batch of rows per call.
	Source interface {
		Read(ctx context.Context) (Set, error)
	}
)

// Get returns the trimmed value for a column and whether a non-empty value
// is present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r[column]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// FromMatrix converts a values matrix, as returned by the Sheets API, into a
// Set. The first row is the header; surrounding whitespace in column names is
// trimmed and empty cells are omitted.
func FromMatrix(values [][]any) Set {
	if len(values) == 0 {
		return Set{}
	}

	columns := make([]string, 0, len(values[0]))
	for _, h := range values[0] {
		name := strings.TrimSpace(cellString(h))
		if name != "" {
			columns = append(columns, name)
		}
	}

	set := Set{Columns: columns, Rows: make([]Row, 0, len(values)-1)}
	for _, line := range values[1:] {
		row := Row{}
		for i, cell := range line {
			if i >= len(columns) {
				break
			}
			v := strings.TrimSpace(cellString(cell))
			if v != "" {
				row[columns[i]] = v
			}
		}
		set.Rows = append(set.Rows, row)
	}
	return set
}

// FromRecords converts decoded JSON objects into a Set. Columns are taken
// from the union of keys, keeping first-seen order.
func FromRecords(records []map[string]any) Set {
	var set Set
	seen := map[string]bool{}
	for _, rec := range records {
		row := Row{}
		for k, v := range rec {
			name := strings.TrimSpace(k)
			if name == "" {
				continue
			}
			if !seen[name] {
				seen[name] = true
				set.Columns = append(set.Columns, name)
			}
			val := strings.TrimSpace(cellString(v))
			if val != "" {
				row[name] = val
			}
		}
		set.Rows = append(set.Rows, row)
	}
	return set
}

// cellString renders a spreadsheet or JSON cell as text. Whole floats lose
// their decimal point so numeric id columns survive the float64 round-trip.
func cellString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return ""
	}
}
