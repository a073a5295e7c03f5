// Package trial holds the raw per-trial measurement table a worker emits for
// one grid point.
package trial

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// SyntheticRows is the row count of the all-missing table that stands in for
// a classified worker failure.
const SyntheticRows = 3

// Table is an ordered set of trial records. Every cell is numeric; NaN marks a
// missing value.
type Table struct {
	Columns []string
	Rows    [][]float64
}

// Len returns the number of trials.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Drop returns a new table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	var keep []int
	out := &Table{}
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
			out.Columns = append(out.Columns, c)
		}
	}
	out.Rows = make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		vals := make([]float64, len(keep))
		for j, idx := range keep {
			vals[j] = row[idx]
		}
		out.Rows[r] = vals
	}
	return out
}

// Missing builds a table of the given shape with every value missing.
func Missing(columns []string, rows int) *Table {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]float64, rows),
	}
	for i := range t.Rows {
		vals := make([]float64, len(columns))
		for j := range vals {
			vals[j] = math.NaN()
		}
		t.Rows[i] = vals
	}
	return t
}

// ParseTSV reads a tab-delimited table with a header row. Empty cells and the
// tokens nan/NaN/NA parse as missing values; any other non-numeric cell is an
// error. Blank lines are skipped and every row must match the header width.
func ParseTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 0
	cr.LazyQuotes = true

	t := &Table{}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading table: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if t.Columns == nil {
			for i, f := range fields {
				f = strings.TrimSpace(f)
				if f == "" {
					return nil, fmt.Errorf("line %d: empty column name at position %d", line, i+1)
				}
				fields[i] = f
			}
			t.Columns = fields
			continue
		}

		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := parseCell(f)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, t.Columns[i], err)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if t.Columns == nil {
		return nil, fmt.Errorf("table has no header row")
	}
	return t, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "nan", "NaN", "NA":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
