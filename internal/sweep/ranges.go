// Package sweep drives the two-dimensional (file count × parallelism) grid
// over the worker and assembles one summary row per grid point.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxRangeValues caps how many values a single range may expand to.
const MaxRangeValues = 10000

// IntRange is a half-open integer progression: Start, Start+Stride, ...
// stopping before Stop. A negative Stride counts down. Stride must not be zero.
type IntRange struct {
	Start  int `yaml:"start" json:"start"`
	Stop   int `yaml:"stop" json:"stop"`
	Stride int `yaml:"stride" json:"stride"`
}

// String renders the range as "start:stop:stride".
func (r IntRange) String() string {
	return fmt.Sprintf("%d:%d:%d", r.Start, r.Stop, r.Stride)
}

// Len returns the number of values in the range. Counts too large for an int
// saturate at math.MaxInt.
func (r IntRange) Len() int {
	var span, step uint64
	switch {
	case r.Stride > 0 && r.Start < r.Stop:
		span, step = uint64(r.Stop)-uint64(r.Start), uint64(r.Stride)
	case r.Stride < 0 && r.Start > r.Stop:
		span, step = uint64(r.Start)-uint64(r.Stop), -uint64(r.Stride)
	default:
		return 0
	}
	n := span / step
	if span%step != 0 {
		n++
	}
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// Validate checks the stride and the value limit.
func (r IntRange) Validate() error {
	if r.Stride == 0 {
		return fmt.Errorf("range %s: stride must not be zero", r)
	}
	if n := r.Len(); n > MaxRangeValues {
		return fmt.Errorf("range %s: %d values exceeds limit of %d", r, n, MaxRangeValues)
	}
	return nil
}

// Values expands the range. An invalid range yields nil.
func (r IntRange) Values() []int {
	if r.Validate() != nil {
		return nil
	}
	n := r.Len()
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = r.Start + i*r.Stride
	}
	return out
}

// ParseIntRange parses a "start:stop:stride" string into an IntRange.
// Returns an error if the format is invalid, values cannot be parsed, or the
// stride is zero.
func ParseIntRange(s string) (IntRange, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return IntRange{}, fmt.Errorf("invalid range format %q: expected start:stop:stride", s)
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return IntRange{}, fmt.Errorf("invalid start value %q: %w", parts[0], err)
	}

	stop, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return IntRange{}, fmt.Errorf("invalid stop value %q: %w", parts[1], err)
	}

	stride, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return IntRange{}, fmt.Errorf("invalid stride value %q: %w", parts[2], err)
	}

	r := IntRange{Start: start, Stop: stop, Stride: stride}
	if err := r.Validate(); err != nil {
		return IntRange{}, err
	}
	return r, nil
}

// Set implements flag.Value.
func (r *IntRange) Set(s string) error {
	parsed, err := ParseIntRange(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
