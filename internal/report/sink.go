package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/banshee-data/loadsweep/internal/classify"
	"github.com/banshee-data/loadsweep/internal/monitoring"
)

// Sink writes complete reports to a Location.
type Sink struct {
	Location Location
	log      *slog.Logger
}

// NewSink returns a sink for loc.
func NewSink(loc Location) *Sink {
	return &Sink{Location: loc, log: monitoring.Component("report")}
}

// WriteRows renders rows and writes them to the location in one commit.
// Rendering happens before the destination is opened, so a failure leaves
// any existing report untouched.
func (s *Sink) WriteRows(ctx context.Context, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteTable(&buf, rows); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	w, err := s.Location.Create(ctx)
	if err != nil {
		return fmt.Errorf("open report %s: %w", s.Location, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		if a, ok := w.(interface{ abort() }); ok {
			a.abort()
		} else {
			w.Close()
		}
		return fmt.Errorf("write report %s: %w", s.Location, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit report %s: %w", s.Location, err)
	}
	if s.log != nil {
		s.log.Info("report written", "location", s.Location.String(), "rows", len(rows))
	}
	return nil
}

// ReadRows reads and parses a report from the location. statuses is passed
// to ReadTable.
func ReadRows(ctx context.Context, loc Location, statuses []classify.Outcome) ([]Row, error) {
	r, err := loc.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", loc, err)
	}
	defer r.Close()

	rows, err := ReadTable(r, statuses)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", loc, err)
	}
	return rows, nil
}
