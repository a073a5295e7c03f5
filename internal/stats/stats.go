// Package stats reduces a trial table into per-metric summary statistics.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/loadsweep/internal/trial"
)

// Statistic names one reduction applied to every metric column.
type Statistic string

const (
	Mean   Statistic = "mean"
	Median Statistic = "median"
	Min    Statistic = "min"
	Max    Statistic = "max"
	Std    Statistic = "std"
)

// Default is the declared statistic set, in declaration order.
var Default = []Statistic{Mean, Median, Min, Max, Std}

// Key addresses one summary value.
type Key struct {
	Metric    string
	Statistic Statistic
}

// Less orders keys by metric, then by statistic name.
func (k Key) Less(o Key) bool {
	if k.Metric != o.Metric {
		return k.Metric < o.Metric
	}
	return k.Statistic < o.Statistic
}

// Entry is one (key, value) pair of a Summary.
type Entry struct {
	Key   Key
	Value float64
}

// Summary is an ordered mapping from Key to value, sorted by Key.Less.
type Summary []Entry

// Get returns the value stored under (metric, statistic).
func (s Summary) Get(metric string, st Statistic) (float64, bool) {
	want := Key{Metric: metric, Statistic: st}
	i := sort.Search(len(s), func(i int) bool { return !s[i].Key.Less(want) })
	if i < len(s) && s[i].Key == want {
		return s[i].Value, true
	}
	return math.NaN(), false
}

// Keys returns the keys in order.
func (s Summary) Keys() []Key {
	keys := make([]Key, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// Sort restores key order after entries were appended out of order.
func (s Summary) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Key.Less(s[j].Key) })
}

// Reduce computes every statistic in stats for every column of t, across trials.
// Missing (NaN) observations are skipped; a column with no observations yields
// NaN for every statistic. The result is sorted by metric then statistic.
func Reduce(t *trial.Table, statistics []Statistic) Summary {
	out := make(Summary, 0, len(t.Columns)*len(statistics))
	for _, col := range t.Columns {
		values, _ := t.Column(col)
		present := observed(values)
		for _, st := range statistics {
			out = append(out, Entry{
				Key:   Key{Metric: col, Statistic: st},
				Value: compute(st, present),
			})
		}
	}
	out.Sort()
	return out
}

// observed returns the non-NaN values.
func observed(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func compute(st Statistic, xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	switch st {
	case Mean:
		return stat.Mean(xs, nil)
	case Median:
		return median(xs)
	case Min:
		return floats.Min(xs)
	case Max:
		return floats.Max(xs)
	case Std:
		return stddev(xs)
	default:
		return math.NaN()
	}
}

// median averages the two middle values for even-length input.
func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is the sample standard deviation; a single observation has zero spread.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
