// Package warehouse is the query layer over the fleet's analytical store.
// It exposes one narrow contract, Source, with BigQuery, Postgres, and
// in-memory implementations. Sources return typed rows; everything past
// this boundary works with concrete fields, never raw column bags.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks a single-row lookup that matched nothing.
var ErrNotFound = errors.New("warehouse: not found")

// SourceError wraps a warehouse failure so callers can tell an unreachable
// or failing store apart from a legitimately empty result.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("warehouse %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErr(op string, err error) error {
	return &SourceError{Op: op, Err: err}
}

// Source is the read contract every warehouse backend implements.
//
// An empty slice is a valid answer and never an error; errors mean the
// source itself failed.
type Source interface {
	// ActiveVehicles returns the latest location row per robot in the
	// active roster.
	ActiveVehicles(ctx context.Context) ([]LocationRow, error)

	// CurrentStatus returns the latest location row per robot, limited to
	// robotIDs when non-empty.
	CurrentStatus(ctx context.Context, robotIDs []string) ([]LocationRow, error)

	// ActiveJobs returns in-flight delivery jobs keyed by robot ID,
	// limited to robotIDs when non-empty.
	ActiveJobs(ctx context.Context, robotIDs []string) (map[string][]TripRow, error)

	// TripsForHour returns jobs that finished inside the UTC hour
	// starting at hour.
	TripsForHour(ctx context.Context, hour time.Time) ([]TripRow, error)

	// EventsInRange returns state-change rows with start <= t < end,
	// capped at limit.
	EventsInRange(ctx context.Context, start, end time.Time, limit int) ([]EventRow, error)

	// TelemetryForHour returns job rows whose GPS endpoints fall inside
	// the UTC hour starting at hour.
	TelemetryForHour(ctx context.Context, hour time.Time) ([]TripRow, error)

	// DataAvailable reports whether the hour starting at hour has been
	// materialized in the store yet.
	DataAvailable(ctx context.Context, hour time.Time) (bool, error)

	// Close releases the backend's resources.
	Close()
}
