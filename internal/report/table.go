// Package report assembles sweep summary rows into the two-level
// tab-separated report and moves it to and from its destination.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/loadsweep/internal/classify"
	"github.com/banshee-data/loadsweep/internal/stats"
)

// Metadata column names, in report order.
const (
	ColStatus    = "status"
	ColNFiles    = "n_files"
	ColNParallel = "n_parallel"
)

// MetadataColumns follow every statistic column in the report.
var MetadataColumns = []string{ColStatus, ColNFiles, ColNParallel}

// NaNToken renders a missing value.
const NaNToken = "nan"

// Row is the summary of one grid point.
type Row struct {
	Summary   stats.Summary
	Status    string
	NFiles    int
	NParallel int
}

// Column is one report column: a statistic of a metric, or a metadata field
// with an empty Statistic.
type Column struct {
	Metric    string
	Statistic stats.Statistic
}

// IsMetadata reports whether c is one of the trailing metadata columns.
func (c Column) IsMetadata() bool {
	return c.Statistic == ""
}

// Columns returns the union of the rows' statistic keys in key order,
// followed by the metadata columns.
func Columns(rows []Row) []Column {
	seen := make(map[stats.Key]bool)
	var keys []stats.Key
	for _, r := range rows {
		for _, e := range r.Summary {
			if !seen[e.Key] {
				seen[e.Key] = true
				keys = append(keys, e.Key)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	cols := make([]Column, 0, len(keys)+len(MetadataColumns))
	for _, k := range keys {
		cols = append(cols, Column{Metric: k.Metric, Statistic: k.Statistic})
	}
	for _, m := range MetadataColumns {
		cols = append(cols, Column{Metric: m})
	}
	return cols
}

// FormatFloat renders v in shortest round-trip form, keeping a ".0" suffix on
// integral values so the column reads as floating point.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return NaNToken
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// WriteTable writes rows as a tab-separated table with two header rows, the
// outer one naming the metric or metadata field and the inner one naming the
// statistic. The first column is the row index and has empty headers.
func WriteTable(w io.Writer, rows []Row) error {
	cols := Columns(rows)

	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	outer := make([]string, 0, len(cols)+1)
	inner := make([]string, 0, len(cols)+1)
	outer = append(outer, "")
	inner = append(inner, "")
	for _, c := range cols {
		outer = append(outer, c.Metric)
		inner = append(inner, string(c.Statistic))
	}
	if err := cw.Write(outer); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.Write(inner); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, strconv.Itoa(i))
		for _, c := range cols {
			rec = append(rec, r.cell(c))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r Row) cell(c Column) string {
	if c.IsMetadata() {
		switch c.Metric {
		case ColStatus:
			return r.Status
		case ColNFiles:
			return strconv.Itoa(r.NFiles)
		case ColNParallel:
			return strconv.Itoa(r.NParallel)
		}
		return ""
	}
	v, _ := r.Summary.Get(c.Metric, c.Statistic)
	return FormatFloat(v)
}

// ErrMalformed is wrapped by every ReadTable parse error.
var ErrMalformed = errors.New("malformed report")

// ReadTable parses a report written by WriteTable. Lines starting with '#' are
// ignored. Statistic cells equal to the missing token are kept as NaN. A row
// whose status is not one of statuses is rejected; nil statuses means the
// outcomes of the default classifier.
func ReadTable(r io.Reader, statuses []classify.Outcome) ([]Row, error) {
	if statuses == nil {
		statuses = classify.New().Outcomes()
	}
	allowed := make(map[string]bool, len(statuses))
	for _, o := range statuses {
		allowed[string(o)] = true
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: expected two header rows, got %d", ErrMalformed, len(records))
	}
	outer, inner := records[0], records[1]
	if len(outer) != len(inner) || len(outer) < 1 {
		return nil, fmt.Errorf("%w: header rows differ in width", ErrMalformed)
	}

	cols := make([]Column, len(outer)-1)
	for i := range cols {
		cols[i] = Column{
			Metric:    strings.TrimSpace(outer[i+1]),
			Statistic: stats.Statistic(strings.TrimSpace(inner[i+1])),
		}
	}

	rows := make([]Row, 0, len(records)-2)
	for n, rec := range records[2:] {
		if len(rec) != len(outer) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrMalformed, n, len(rec), len(outer))
		}
		var row Row
		for i, c := range cols {
			cell := strings.TrimSpace(rec[i+1])
			if c.IsMetadata() {
				if err := row.setMetadata(c.Metric, cell, allowed); err != nil {
					return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, n, err)
				}
				continue
			}
			v, err := parseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %s/%s: %v", ErrMalformed, n, c.Metric, c.Statistic, err)
			}
			row.Summary = append(row.Summary, stats.Entry{
				Key:   stats.Key{Metric: c.Metric, Statistic: c.Statistic},
				Value: v,
			})
		}
		row.Summary.Sort()
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Row) setMetadata(name, cell string, statuses map[string]bool) error {
	switch name {
	case ColStatus:
		if !statuses[cell] {
			return fmt.Errorf("unknown status %q", cell)
		}
		r.Status = cell
	case ColNFiles, ColNParallel:
		n, err := parseCount(cell)
		if err != nil {
			return fmt.Errorf("column %s: %v", name, err)
		}
		if name == ColNFiles {
			r.NFiles = n
		} else {
			r.NParallel = n
		}
	default:
		return fmt.Errorf("unknown metadata column %q", name)
	}
	return nil
}

// parseCount accepts "100" and the float spelling "100.0".
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(f), nil
}

func parseValue(s string) (float64, error) {
	switch s {
	case "", NaNToken, "NaN", "NA":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
