package warehouse

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// BigQueryConfig names the datasets the source reads and bounds its
// concurrency.
type BigQueryConfig struct {
	ProjectID      string
	LocationsTable string // dataset.table holding GPS pings
	JobsTable      string // dataset.table holding delivery jobs
	EventsTable    string // dataset.table holding state-change rows
	MinAccuracy    float64
	RetentionDays  int
	Roster         []string
	Workers        int
}

// BigQuery reads the fleet warehouse through the official client. Every
// query runs on a fixed-size worker pool so request bursts cannot fan out
// into unbounded concurrent warehouse jobs; submission blocks when all
// workers are busy.
type BigQuery struct {
	client    *bigquery.Client
	pool      *ants.Pool
	logger    *zap.Logger
	cfg       BigQueryConfig
	locations string
	jobs      string
	events    string
}

// NewBigQuery connects the client and starts the worker pool.
func NewBigQuery(ctx context.Context, cfg BigQueryConfig, logger *zap.Logger) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create query pool: %w", err)
	}

	return &BigQuery{
		client:    client,
		pool:      pool,
		logger:    logger,
		cfg:       cfg,
		locations: fmt.Sprintf("`%s.%s`", cfg.ProjectID, cfg.LocationsTable),
		jobs:      fmt.Sprintf("`%s.%s`", cfg.ProjectID, cfg.JobsTable),
		events:    fmt.Sprintf("`%s.%s`", cfg.ProjectID, cfg.EventsTable),
	}, nil
}

// Close releases the worker pool and the client.
func (b *BigQuery) Close() {
	b.pool.Release()
	if err := b.client.Close(); err != nil {
		b.logger.Warn("Failed to close BigQuery client", zap.Error(err))
	}
}

// runRows executes a query on the worker pool and drains the iterator into
// value bags.
func (b *BigQuery) runRows(ctx context.Context, op string, q *bigquery.Query) ([]map[string]bigquery.Value, error) {
	type result struct {
		rows []map[string]bigquery.Value
		err  error
	}
	ch := make(chan result, 1)

	if err := b.pool.Submit(func() {
		rows, err := readAll(ctx, q)
		ch <- result{rows: rows, err: err}
	}); err != nil {
		return nil, sourceErr(op, err)
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, sourceErr(op, r.err)
		}
		return r.rows, nil
	case <-ctx.Done():
		return nil, sourceErr(op, ctx.Err())
	}
}

func readAll(ctx context.Context, q *bigquery.Query) ([]map[string]bigquery.Value, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	var rows []map[string]bigquery.Value
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (b *BigQuery) roster(override []string) []string {
	if len(override) > 0 {
		return override
	}
	return b.cfg.Roster
}

const latestLocationSQL = `
WITH ranked AS (
    SELECT
        robot_id,
        timestamp,
        latitude,
        longitude,
        accuracy,
        ROW_NUMBER() OVER (PARTITION BY robot_id ORDER BY timestamp DESC) AS rn
    FROM %s
    WHERE accuracy > @min_accuracy
      AND robot_id IN UNNEST(@roster)
      AND date >= @cutoff
)
SELECT robot_id, timestamp, latitude, longitude, accuracy
FROM ranked
WHERE rn = 1
ORDER BY robot_id`

func (b *BigQuery) latestLocations(ctx context.Context, op string, robotIDs []string) ([]LocationRow, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -b.cfg.RetentionDays).Format("2006-01-02")
	q := b.client.Query(fmt.Sprintf(latestLocationSQL, b.locations))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "min_accuracy", Value: b.cfg.MinAccuracy},
		{Name: "roster", Value: b.roster(robotIDs)},
		{Name: "cutoff", Value: cutoff},
	}

	bags, err := b.runRows(ctx, op, q)
	if err != nil {
		return nil, err
	}
	rows := make([]LocationRow, 0, len(bags))
	for i, bag := range bags {
		row, err := locationRowFromValues(bag)
		if err != nil {
			b.logger.Warn("Skipping malformed location row", zap.Int("index", i), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ActiveVehicles returns the freshest ping per rostered robot.
func (b *BigQuery) ActiveVehicles(ctx context.Context) ([]LocationRow, error) {
	return b.latestLocations(ctx, "active vehicles", nil)
}

// CurrentStatus returns the freshest ping per robot, scoped to robotIDs
// when given.
func (b *BigQuery) CurrentStatus(ctx context.Context, robotIDs []string) ([]LocationRow, error) {
	return b.latestLocations(ctx, "current status", robotIDs)
}

const jobsSQL = `
SELECT
    r.id AS job_id,
    r.robot_id,
    TIMESTAMP_MILLIS(MIN(s.startedAt)) AS trip_start,
    TIMESTAMP_MILLIS(MAX(s.finishedAt)) AS trip_end,
    (MAX(s.finishedAt) - MIN(s.startedAt)) / 1000 AS trip_duration_seconds,
    ARRAY_AGG(s.point_data.point_latitude IGNORE NULLS ORDER BY s.startedAt LIMIT 1)[OFFSET(0)] AS start_latitude,
    ARRAY_AGG(s.point_data.point_longitude IGNORE NULLS ORDER BY s.startedAt LIMIT 1)[OFFSET(0)] AS start_longitude,
    ARRAY_AGG(s.point_data.point_latitude IGNORE NULLS ORDER BY s.finishedAt DESC LIMIT 1)[OFFSET(0)] AS end_latitude,
    ARRAY_AGG(s.point_data.point_longitude IGNORE NULLS ORDER BY s.finishedAt DESC LIMIT 1)[OFFSET(0)] AS end_longitude,
    ANY_VALUE(r.status) AS status
FROM %s AS r, UNNEST(r.steps_data) AS s
WHERE r.robot_id IN UNNEST(@roster)
  AND s.point_data.point_latitude IS NOT NULL
  AND %s
GROUP BY job_id, robot_id
ORDER BY trip_end`

func (b *BigQuery) jobRows(ctx context.Context, op, filter string, params []bigquery.QueryParameter) ([]TripRow, error) {
	q := b.client.Query(fmt.Sprintf(jobsSQL, b.jobs, filter))
	q.Parameters = params

	bags, err := b.runRows(ctx, op, q)
	if err != nil {
		return nil, err
	}
	rows := make([]TripRow, 0, len(bags))
	for i, bag := range bags {
		row, err := tripRowFromValues(bag)
		if err != nil {
			b.logger.Warn("Skipping malformed job row", zap.Int("index", i), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TripsForHour returns jobs that finished inside the hour.
func (b *BigQuery) TripsForHour(ctx context.Context, hour time.Time) ([]TripRow, error) {
	return b.jobRows(ctx, "trips for hour",
		"TIMESTAMP_MILLIS(s.finishedAt) >= @hour_start AND TIMESTAMP_MILLIS(s.finishedAt) < @hour_end",
		[]bigquery.QueryParameter{
			{Name: "roster", Value: b.cfg.Roster},
			{Name: "hour_start", Value: hour.UTC()},
			{Name: "hour_end", Value: hour.UTC().Add(time.Hour)},
		})
}

// TelemetryForHour returns jobs with either endpoint inside the hour.
func (b *BigQuery) TelemetryForHour(ctx context.Context, hour time.Time) ([]TripRow, error) {
	return b.jobRows(ctx, "telemetry for hour",
		`((TIMESTAMP_MILLIS(s.startedAt) >= @hour_start AND TIMESTAMP_MILLIS(s.startedAt) < @hour_end)
   OR (TIMESTAMP_MILLIS(s.finishedAt) >= @hour_start AND TIMESTAMP_MILLIS(s.finishedAt) < @hour_end))`,
		[]bigquery.QueryParameter{
			{Name: "roster", Value: b.cfg.Roster},
			{Name: "hour_start", Value: hour.UTC()},
			{Name: "hour_end", Value: hour.UTC().Add(time.Hour)},
		})
}

// ActiveJobs returns in-flight jobs grouped by robot.
func (b *BigQuery) ActiveJobs(ctx context.Context, robotIDs []string) (map[string][]TripRow, error) {
	rows, err := b.jobRows(ctx, "active jobs",
		"s.step_status IN ('in_progress', 'started') AND s.finishedAt IS NULL",
		[]bigquery.QueryParameter{
			{Name: "roster", Value: b.roster(robotIDs)},
		})
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]TripRow, len(rows))
	for _, r := range rows {
		grouped[r.RobotID] = append(grouped[r.RobotID], r)
	}
	return grouped, nil
}

const eventsSQL = `
SELECT robot_id, event_time, event_type, latitude, longitude
FROM %s
WHERE robot_id IN UNNEST(@roster)
  AND event_time >= @range_start
  AND event_time < @range_end
ORDER BY event_time
LIMIT %d`

// EventsInRange returns state-change rows inside [start, end).
func (b *BigQuery) EventsInRange(ctx context.Context, start, end time.Time, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 10000
	}
	q := b.client.Query(fmt.Sprintf(eventsSQL, b.events, limit))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "roster", Value: b.cfg.Roster},
		{Name: "range_start", Value: start.UTC()},
		{Name: "range_end", Value: end.UTC()},
	}

	bags, err := b.runRows(ctx, "events in range", q)
	if err != nil {
		return nil, err
	}
	rows := make([]EventRow, 0, len(bags))
	for i, bag := range bags {
		row, err := eventRowFromValues(bag)
		if err != nil {
			b.logger.Warn("Skipping malformed event row", zap.Int("index", i), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

const availabilitySQL = `
SELECT COUNT(*) AS cnt
FROM %s AS r, UNNEST(r.steps_data) AS s
WHERE TIMESTAMP_MILLIS(s.finishedAt) >= @hour_start
  AND TIMESTAMP_MILLIS(s.finishedAt) < @hour_end`

// DataAvailable reports whether any job row landed for the hour yet.
func (b *BigQuery) DataAvailable(ctx context.Context, hour time.Time) (bool, error) {
	q := b.client.Query(fmt.Sprintf(availabilitySQL, b.jobs))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "hour_start", Value: hour.UTC()},
		{Name: "hour_end", Value: hour.UTC().Add(time.Hour)},
	}

	bags, err := b.runRows(ctx, "data availability", q)
	if err != nil {
		return false, err
	}
	if len(bags) == 0 {
		return false, nil
	}
	if v, ok := bags[0]["cnt"].(int64); ok {
		return v > 0, nil
	}
	return false, nil
}

var _ Source = (*BigQuery)(nil)
