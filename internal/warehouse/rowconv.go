package warehouse

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

// Conversion from BigQuery value bags to typed rows. This is the only place
// untyped column data is handled; a row that cannot name its robot fails
// here instead of deep inside a transform.

func valueString(m map[string]bigquery.Value, key string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

func valueFloat(m map[string]bigquery.Value, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return ptrFloat(n)
	case int64:
		return ptrFloat(float64(n))
	case int:
		return ptrFloat(float64(n))
	}
	return nil
}

// valueTime reads a timestamp column. The second return is true when the
// cell held something that was not absent yet would not parse, which the
// state classifier treats as a contact loss rather than a missing vehicle.
func valueTime(m map[string]bigquery.Value, key string) (*time.Time, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	switch ts := v.(type) {
	case time.Time:
		utc := ts.UTC()
		return ptrTime(utc), false
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(layout, ts); err == nil {
				utc := parsed.UTC()
				return ptrTime(utc), false
			}
		}
		return nil, true
	case int64:
		utc := time.UnixMilli(ts).UTC()
		return ptrTime(utc), false
	}
	return nil, true
}

func locationRowFromValues(m map[string]bigquery.Value) (LocationRow, error) {
	robotID := valueString(m, "robot_id")
	if robotID == "" {
		return LocationRow{}, fmt.Errorf("location row missing robot_id")
	}
	ts, invalid := valueTime(m, "timestamp")
	return LocationRow{
		RobotID:          robotID,
		Timestamp:        ts,
		TimestampInvalid: invalid,
		Latitude:         valueFloat(m, "latitude"),
		Longitude:        valueFloat(m, "longitude"),
		Accuracy:         valueFloat(m, "accuracy"),
	}, nil
}

func tripRowFromValues(m map[string]bigquery.Value) (TripRow, error) {
	robotID := valueString(m, "robot_id")
	if robotID == "" {
		return TripRow{}, fmt.Errorf("trip row missing robot_id")
	}
	start, _ := valueTime(m, "trip_start")
	end, _ := valueTime(m, "trip_end")
	return TripRow{
		JobID:           valueString(m, "job_id"),
		RobotID:         robotID,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: valueFloat(m, "trip_duration_seconds"),
		DistanceMeters:  valueFloat(m, "trip_distance_meters"),
		StartLatitude:   valueFloat(m, "start_latitude"),
		StartLongitude:  valueFloat(m, "start_longitude"),
		EndLatitude:     valueFloat(m, "end_latitude"),
		EndLongitude:    valueFloat(m, "end_longitude"),
		Status:          valueString(m, "status"),
	}, nil
}

func eventRowFromValues(m map[string]bigquery.Value) (EventRow, error) {
	robotID := valueString(m, "robot_id")
	if robotID == "" {
		return EventRow{}, fmt.Errorf("event row missing robot_id")
	}
	ts, _ := valueTime(m, "event_time")
	return EventRow{
		RobotID:   robotID,
		Timestamp: ts,
		EventKind: valueString(m, "event_type"),
		Latitude:  valueFloat(m, "latitude"),
		Longitude: valueFloat(m, "longitude"),
	}, nil
}
