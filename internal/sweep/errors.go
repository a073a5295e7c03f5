package sweep

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyGrid is returned when either range of the plan has no values.
var ErrEmptyGrid = errors.New("empty grid: no data")

// ConfigError reports a plan that cannot be run. No fixture is created and
// no worker is started when Run returns one.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid sweep configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid sweep configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConsistencyError reports a worker whose echoed parameter column disagrees
// with the grid point it was run for. It is never classified.
type ConsistencyError struct {
	Point  Point
	Column string
	// Got is the first offending value; NaN when the column is absent or empty.
	Got     float64
	Missing bool
}

func (e *ConsistencyError) Error() string {
	if e.Missing {
		return fmt.Sprintf("worker output for %s lacks column %q", e.Point, e.Column)
	}
	if math.IsNaN(e.Got) {
		return fmt.Sprintf("worker output for %s has missing %s value", e.Point, e.Column)
	}
	return fmt.Sprintf("worker output for %s reports %s=%g", e.Point, e.Column, e.Got)
}
