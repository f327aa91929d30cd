package warehouse

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Source used by tests and local development. Seed
// it with rows, point the server at it with WAREHOUSE_BACKEND=memory, and
// it answers the same contract the real backends do.
type Memory struct {
	mu        sync.RWMutex
	locations []LocationRow
	jobs      []TripRow
	events    []EventRow
	active    map[string][]TripRow
	available map[time.Time]bool
	failNext  error
}

// NewMemory builds an empty fixture source.
func NewMemory() *Memory {
	return &Memory{
		active:    make(map[string][]TripRow),
		available: make(map[time.Time]bool),
	}
}

// SeedLocations appends location rows.
func (m *Memory) SeedLocations(rows ...LocationRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, rows...)
}

// SeedJobs appends finished job rows.
func (m *Memory) SeedJobs(rows ...TripRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, rows...)
}

// SeedEvents appends state-change rows.
func (m *Memory) SeedEvents(rows ...EventRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, rows...)
}

// SeedActiveJobs registers in-flight jobs for a robot.
func (m *Memory) SeedActiveJobs(robotID string, rows ...TripRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[robotID] = append(m.active[robotID], rows...)
}

// SetAvailability pins the materialization answer for an hour.
func (m *Memory) SetAvailability(hour time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available[hour.UTC().Truncate(time.Hour)] = ok
}

// FailNext makes the next call return err, simulating a source outage.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Reset drops all seeded data.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = nil
	m.jobs = nil
	m.events = nil
	m.active = make(map[string][]TripRow)
	m.available = make(map[time.Time]bool)
	m.failNext = nil
}

func (m *Memory) takeFailure(op string) error {
	if m.failNext == nil {
		return nil
	}
	err := m.failNext
	m.failNext = nil
	return sourceErr(op, err)
}

// ActiveVehicles returns the latest seeded row per robot.
func (m *Memory) ActiveVehicles(ctx context.Context) ([]LocationRow, error) {
	return m.CurrentStatus(ctx, nil)
}

// CurrentStatus returns the latest seeded row per robot, scoped to robotIDs
// when given.
func (m *Memory) CurrentStatus(_ context.Context, robotIDs []string) ([]LocationRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("current status"); err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(robotIDs))
	for _, id := range robotIDs {
		want[id] = true
	}

	latest := make(map[string]LocationRow)
	var order []string
	for _, row := range m.locations {
		if len(want) > 0 && !want[row.RobotID] {
			continue
		}
		prev, seen := latest[row.RobotID]
		if !seen {
			latest[row.RobotID] = row
			order = append(order, row.RobotID)
			continue
		}
		if newerThan(row, prev) {
			latest[row.RobotID] = row
		}
	}

	out := make([]LocationRow, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}

func newerThan(a, b LocationRow) bool {
	if a.Timestamp == nil {
		return false
	}
	if b.Timestamp == nil {
		return true
	}
	return a.Timestamp.After(*b.Timestamp)
}

// ActiveJobs returns the seeded in-flight jobs.
func (m *Memory) ActiveJobs(_ context.Context, robotIDs []string) (map[string][]TripRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("active jobs"); err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(robotIDs))
	for _, id := range robotIDs {
		want[id] = true
	}

	out := make(map[string][]TripRow, len(m.active))
	for robot, rows := range m.active {
		if len(want) > 0 && !want[robot] {
			continue
		}
		out[robot] = append([]TripRow(nil), rows...)
	}
	return out, nil
}

// TripsForHour returns seeded jobs ending inside the hour.
func (m *Memory) TripsForHour(_ context.Context, hour time.Time) ([]TripRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("trips for hour"); err != nil {
		return nil, err
	}

	start := hour.UTC()
	end := start.Add(time.Hour)
	var out []TripRow
	for _, row := range m.jobs {
		if row.EndTime == nil {
			continue
		}
		t := row.EndTime.UTC()
		if !t.Before(start) && t.Before(end) {
			out = append(out, row)
		}
	}
	return out, nil
}

// TelemetryForHour returns seeded jobs with either endpoint inside the hour.
func (m *Memory) TelemetryForHour(_ context.Context, hour time.Time) ([]TripRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("telemetry for hour"); err != nil {
		return nil, err
	}

	start := hour.UTC()
	end := start.Add(time.Hour)
	inWindow := func(t *time.Time) bool {
		if t == nil {
			return false
		}
		u := t.UTC()
		return !u.Before(start) && u.Before(end)
	}

	var out []TripRow
	for _, row := range m.jobs {
		if inWindow(row.StartTime) || inWindow(row.EndTime) {
			out = append(out, row)
		}
	}
	return out, nil
}

// EventsInRange returns seeded events inside [start, end).
func (m *Memory) EventsInRange(_ context.Context, start, end time.Time, limit int) ([]EventRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("events in range"); err != nil {
		return nil, err
	}

	var out []EventRow
	for _, row := range m.events {
		if row.Timestamp == nil {
			continue
		}
		t := row.Timestamp.UTC()
		if t.Before(start.UTC()) || !t.Before(end.UTC()) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DataAvailable honors pinned hours, otherwise reports whether any job ends
// in the hour.
func (m *Memory) DataAvailable(_ context.Context, hour time.Time) (bool, error) {
	m.mu.Lock()
	if err := m.takeFailure("data availability"); err != nil {
		m.mu.Unlock()
		return false, err
	}
	key := hour.UTC().Truncate(time.Hour)
	if pinned, ok := m.available[key]; ok {
		m.mu.Unlock()
		return pinned, nil
	}
	m.mu.Unlock()

	rows, err := m.TripsForHour(context.Background(), hour)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Close is a no-op for the fixture source.
func (m *Memory) Close() {}

var _ Source = (*Memory)(nil)
