package sweep

import (
	"errors"
	"fmt"
)

// Point is one grid coordinate.
type Point struct {
	NFiles    int
	NParallel int
}

func (p Point) String() string {
	return fmt.Sprintf("n_files=%d n_parallel=%d", p.NFiles, p.NParallel)
}

// Plan fully describes a sweep.
type Plan struct {
	Files    IntRange
	Parallel IntRange
	Warmup   int
	Duration float64 // seconds
}

// Grid returns every point in traversal order: file count in the outer loop,
// parallelism in the inner loop.
func (p Plan) Grid() []Point {
	files, parallel := p.Files.Values(), p.Parallel.Values()
	out := make([]Point, 0, len(files)*len(parallel))
	for _, f := range files {
		for _, n := range parallel {
			out = append(out, Point{NFiles: f, NParallel: n})
		}
	}
	return out
}

// Validate returns a *ConfigError describing the first problem found.
func (p Plan) Validate() error {
	if err := p.Files.Validate(); err != nil {
		return &ConfigError{Field: "files", Err: err}
	}
	if err := p.Parallel.Validate(); err != nil {
		return &ConfigError{Field: "parallel", Err: err}
	}
	if p.Files.Len() == 0 || p.Parallel.Len() == 0 {
		return &ConfigError{Err: ErrEmptyGrid}
	}
	if lowest(p.Files) < 0 {
		return &ConfigError{Field: "files", Err: errors.New("file counts must be non-negative")}
	}
	if lowest(p.Parallel) < 0 {
		return &ConfigError{Field: "parallel", Err: errors.New("parallelism must be non-negative")}
	}
	if p.Warmup < 0 {
		return &ConfigError{Field: "warmup", Err: fmt.Errorf("must be non-negative, got %d", p.Warmup)}
	}
	if p.Duration < 0 {
		return &ConfigError{Field: "duration", Err: fmt.Errorf("must be non-negative, got %g", p.Duration)}
	}
	return nil
}

func lowest(r IntRange) int {
	vals := r.Values()
	lo := vals[0]
	if last := vals[len(vals)-1]; last < lo {
		lo = last
	}
	return lo
}
