package warehouse

import "time"

// LocationRow is one GPS ping from the locations table. Optional columns are
// pointers; TimestampInvalid records a timestamp cell that was present but
// would not parse, which downstream classification treats differently from
// an absent one.
type LocationRow struct {
	RobotID          string
	Timestamp        *time.Time
	TimestampInvalid bool
	Latitude         *float64
	Longitude        *float64
	Accuracy         *float64
}

// TripRow is one delivery job with its endpoint fixes, flattened from the
// jobs table's step array.
type TripRow struct {
	JobID           string
	RobotID         string
	StartTime       *time.Time
	EndTime         *time.Time
	DurationSeconds *float64
	DistanceMeters  *float64
	StartLatitude   *float64
	StartLongitude  *float64
	EndLatitude     *float64
	EndLongitude    *float64
	Status          string
}

// EventRow is one row from the pre-computed state-change events table.
type EventRow struct {
	RobotID   string
	Timestamp *time.Time
	EventKind string
	Latitude  *float64
	Longitude *float64
}

func ptrFloat(v float64) *float64 { return &v }

func ptrTime(v time.Time) *time.Time { return &v }
