package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresConfig configures the relational mirror source.
type PostgresConfig struct {
	DatabaseURL   string
	MinAccuracy   float64
	RetentionDays int
	Roster        []string
	MaxConns      int
}

// Postgres reads deployments that replicate the warehouse into a relational
// mirror (tables robot_locations, robot_jobs, robot_events). The pool size
// doubles as the query concurrency bound.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	cfg    PostgresConfig
}

// NewPostgres connects the pool and verifies the database is reachable.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: logger, cfg: cfg}, nil
}

// Close shuts the pool down.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) roster(override []string) []string {
	if len(override) > 0 {
		return override
	}
	return p.cfg.Roster
}

const pgLatestLocationSQL = `
	SELECT DISTINCT ON (robot_id)
		robot_id, recorded_at, latitude, longitude, accuracy
	FROM robot_locations
	WHERE accuracy > $1
	  AND robot_id = ANY($2)
	  AND recorded_at >= $3
	ORDER BY robot_id, recorded_at DESC
`

func (p *Postgres) latestLocations(ctx context.Context, op string, robotIDs []string) ([]LocationRow, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.RetentionDays)
	rows, err := p.pool.Query(ctx, pgLatestLocationSQL, p.cfg.MinAccuracy, p.roster(robotIDs), cutoff)
	if err != nil {
		return nil, sourceErr(op, err)
	}
	defer rows.Close()

	var out []LocationRow
	for rows.Next() {
		var r LocationRow
		if err := rows.Scan(&r.RobotID, &r.Timestamp, &r.Latitude, &r.Longitude, &r.Accuracy); err != nil {
			return nil, sourceErr(op, fmt.Errorf("scan location row: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, sourceErr(op, err)
	}
	return out, nil
}

// ActiveVehicles returns the freshest ping per rostered robot.
func (p *Postgres) ActiveVehicles(ctx context.Context) ([]LocationRow, error) {
	return p.latestLocations(ctx, "active vehicles", nil)
}

// CurrentStatus returns the freshest ping per robot, scoped to robotIDs
// when given.
func (p *Postgres) CurrentStatus(ctx context.Context, robotIDs []string) ([]LocationRow, error) {
	return p.latestLocations(ctx, "current status", robotIDs)
}

const pgJobsSQL = `
	SELECT job_id, robot_id, trip_start, trip_end, trip_duration_seconds,
	       trip_distance_meters, start_latitude, start_longitude,
	       end_latitude, end_longitude, status
	FROM robot_jobs
	WHERE robot_id = ANY($1) AND %s
	ORDER BY trip_end
`

func (p *Postgres) jobRows(ctx context.Context, op, filter string, args ...any) ([]TripRow, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(pgJobsSQL, filter), args...)
	if err != nil {
		return nil, sourceErr(op, err)
	}
	defer rows.Close()

	var out []TripRow
	for rows.Next() {
		var r TripRow
		if err := rows.Scan(
			&r.JobID,
			&r.RobotID,
			&r.StartTime,
			&r.EndTime,
			&r.DurationSeconds,
			&r.DistanceMeters,
			&r.StartLatitude,
			&r.StartLongitude,
			&r.EndLatitude,
			&r.EndLongitude,
			&r.Status,
		); err != nil {
			return nil, sourceErr(op, fmt.Errorf("scan job row: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, sourceErr(op, err)
	}
	return out, nil
}

// TripsForHour returns jobs that finished inside the hour.
func (p *Postgres) TripsForHour(ctx context.Context, hour time.Time) ([]TripRow, error) {
	return p.jobRows(ctx, "trips for hour",
		"trip_end >= $2 AND trip_end < $3",
		p.cfg.Roster, hour.UTC(), hour.UTC().Add(time.Hour))
}

// TelemetryForHour returns jobs with either endpoint inside the hour.
func (p *Postgres) TelemetryForHour(ctx context.Context, hour time.Time) ([]TripRow, error) {
	return p.jobRows(ctx, "telemetry for hour",
		"((trip_start >= $2 AND trip_start < $3) OR (trip_end >= $2 AND trip_end < $3))",
		p.cfg.Roster, hour.UTC(), hour.UTC().Add(time.Hour))
}

// ActiveJobs returns in-flight jobs grouped by robot.
func (p *Postgres) ActiveJobs(ctx context.Context, robotIDs []string) (map[string][]TripRow, error) {
	rows, err := p.jobRows(ctx, "active jobs",
		"status IN ('in_progress', 'started') AND trip_end IS NULL",
		p.roster(robotIDs))
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]TripRow, len(rows))
	for _, r := range rows {
		grouped[r.RobotID] = append(grouped[r.RobotID], r)
	}
	return grouped, nil
}

const pgEventsSQL = `
	SELECT robot_id, event_time, event_type, latitude, longitude
	FROM robot_events
	WHERE robot_id = ANY($1)
	  AND event_time >= $2
	  AND event_time < $3
	ORDER BY event_time
	LIMIT $4
`

// EventsInRange returns state-change rows inside [start, end).
func (p *Postgres) EventsInRange(ctx context.Context, start, end time.Time, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := p.pool.Query(ctx, pgEventsSQL, p.cfg.Roster, start.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, sourceErr("events in range", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		if err := rows.Scan(&r.RobotID, &r.Timestamp, &r.EventKind, &r.Latitude, &r.Longitude); err != nil {
			return nil, sourceErr("events in range", fmt.Errorf("scan event row: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, sourceErr("events in range", err)
	}
	return out, nil
}

// DataAvailable reports whether any job row landed for the hour yet.
func (p *Postgres) DataAvailable(ctx context.Context, hour time.Time) (bool, error) {
	var count int64
	err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM robot_jobs WHERE trip_end >= $1 AND trip_end < $2",
		hour.UTC(), hour.UTC().Add(time.Hour),
	).Scan(&count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, sourceErr("data availability", err)
	}
	return count > 0, nil
}

var _ Source = (*Postgres)(nil)
