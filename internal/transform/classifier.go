package transform

import (
	"time"

	"github.com/curbfleet/mds-provider/internal/mds"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

// Recency thresholds for the state heuristic. A robot that has not pinged
// for staleAfter is out of service; one silent for unreachableAfter has
// lost comms entirely. Both boundaries belong to the staler bucket.
const (
	staleAfter       = 5 * time.Minute
	unreachableAfter = time.Hour
)

// Classify derives the vehicle state from the freshness of a robot's last
// ping. A row whose timestamp cell was present but unparsable counts as a
// contact loss; a row with no timestamp at all means the robot is missing.
func Classify(row warehouse.LocationRow, now time.Time) mds.VehicleState {
	if row.TimestampInvalid {
		return mds.StateNonContactable
	}
	if row.Timestamp == nil {
		return mds.StateMissing
	}

	age := now.Sub(*row.Timestamp)
	switch {
	case age >= unreachableAfter:
		return mds.StateNonContactable
	case age >= staleAfter:
		return mds.StateNonOperational
	default:
		return mds.StateAvailable
	}
}

// EventTypesForState returns the canonical event types announcing a state.
// Unknown states fall back to service_start.
func EventTypesForState(state mds.VehicleState) []mds.EventType {
	if types, ok := mds.StateEventTypes[state]; ok {
		return append([]mds.EventType(nil), types...)
	}
	return []mds.EventType{mds.EventServiceStart}
}
