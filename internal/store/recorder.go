package store

import (
	"context"
	"fmt"

	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/sweep"
)

// Recorder adapts a Store to sweep.Recorder, persisting one sweep.
type Recorder struct {
	Store  *Store
	Worker string

	// ID is set by Begin.
	ID string
}

var _ sweep.Recorder = (*Recorder)(nil)

// NewRecorder returns a recorder that labels the sweep with the worker path.
func (s *Store) NewRecorder(worker string) *Recorder {
	return &Recorder{Store: s, Worker: worker}
}

// Begin inserts the sweep.
func (r *Recorder) Begin(ctx context.Context, plan sweep.Plan) error {
	id, err := r.Store.StartSweep(ctx, Sweep{
		ID:       r.ID,
		Worker:   r.Worker,
		Files:    plan.Files.String(),
		Parallel: plan.Parallel.String(),
		Warmup:   plan.Warmup,
		Duration: plan.Duration,
	})
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// Point stores one finished grid point.
func (r *Recorder) Point(ctx context.Context, index int, row report.Row) error {
	if r.ID == "" {
		return fmt.Errorf("recording point %d: sweep not started", index)
	}
	return r.Store.RecordPoint(ctx, r.ID, index, row)
}

// End marks the sweep finished.
func (r *Recorder) End(ctx context.Context, rows int, runErr error) error {
	if r.ID == "" {
		return fmt.Errorf("finishing sweep: not started")
	}
	if runErr != nil {
		return r.Store.FinishSweep(ctx, r.ID, StatusError, rows, runErr.Error())
	}
	return r.Store.FinishSweep(ctx, r.ID, StatusComplete, rows, "")
}
