package mds

import "github.com/google/uuid"

// Telemetry is a single MDS 2.0 telemetry record.
type Telemetry struct {
	ProviderID  uuid.UUID   `json:"provider_id"`
	DeviceID    uuid.UUID   `json:"device_id"`
	TelemetryID uuid.UUID   `json:"telemetry_id"`
	Timestamp   int64       `json:"timestamp"`
	TripIDs     []uuid.UUID `json:"trip_ids"`
	JourneyID   uuid.UUID   `json:"journey_id"`
	Location    GPS         `json:"location"`

	DataProviderID *uuid.UUID `json:"data_provider_id,omitempty"`
	StopID         *uuid.UUID `json:"stop_id,omitempty"`
	LocationType   *string    `json:"location_type,omitempty"`
	BatteryPercent *int       `json:"battery_percent,omitempty"`
	FuelPercent    *int       `json:"fuel_percent,omitempty"`
}
