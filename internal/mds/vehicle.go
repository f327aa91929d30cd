package mds

import "github.com/google/uuid"

// VehicleAttributes carries the extended hardware description of a vehicle.
type VehicleAttributes struct {
	Year             *int     `json:"year,omitempty"`
	Make             *string  `json:"make,omitempty"`
	Model            *string  `json:"model,omitempty"`
	Color            *string  `json:"color,omitempty"`
	InspectionDate   *string  `json:"inspection_date,omitempty"`
	EquippedCameras  *int     `json:"equipped_cameras,omitempty"`
	EquippedLighting *string  `json:"equipped_lighting,omitempty"`
	WheelCount       *int     `json:"wheel_count,omitempty"`
	Width            *float64 `json:"width,omitempty"`
	Length           *float64 `json:"length,omitempty"`
	Height           *float64 `json:"height,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	TopSpeed         *float64 `json:"top_speed,omitempty"`
	StorageCapacity  *int     `json:"storage_capacity,omitempty"`
}

// AccessibilityAttributes flags the accessibility features a robot offers.
type AccessibilityAttributes struct {
	AudioCue   *bool `json:"audio_cue,omitempty"`
	VisualCue  *bool `json:"visual_cue,omitempty"`
	RemoteOpen *bool `json:"remote_open,omitempty"`
}

// Vehicle is the MDS 2.0 vehicle descriptor.
type Vehicle struct {
	DeviceID        uuid.UUID `json:"device_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	VehicleID       string    `json:"vehicle_id,omitempty"`
	VehicleType     string    `json:"vehicle_type"`
	PropulsionTypes []string  `json:"propulsion_types"`

	Year  *int    `json:"year,omitempty"`
	Mfgr  *string `json:"mfgr,omitempty"`
	Model *string `json:"model,omitempty"`

	VehicleAttributes       *VehicleAttributes       `json:"vehicle_attributes,omitempty"`
	AccessibilityAttributes *AccessibilityAttributes `json:"accessibility_attributes,omitempty"`

	DataProviderID *uuid.UUID `json:"data_provider_id,omitempty"`
	LastReported   *int64     `json:"last_reported,omitempty"`
}

// VehicleStatus is the MDS 2.0 per-vehicle status record: the current state,
// the last state-change event, and the last telemetry fix.
type VehicleStatus struct {
	DeviceID       uuid.UUID    `json:"device_id"`
	ProviderID     uuid.UUID    `json:"provider_id"`
	VehicleState   VehicleState `json:"vehicle_state"`
	LastEventTime  int64        `json:"last_event_time"`
	LastEventTypes []EventType  `json:"last_event_types"`
	LastEvent      *Event       `json:"last_event,omitempty"`
	LastTelemetry  *Telemetry   `json:"last_telemetry,omitempty"`

	DataProviderID   *uuid.UUID    `json:"data_provider_id,omitempty"`
	LastVehicleState *VehicleState `json:"last_vehicle_state,omitempty"`
	CurrentLocation  *Feature      `json:"current_location,omitempty"`
	TripIDs          []uuid.UUID   `json:"trip_ids,omitempty"`

	// GPSSynthetic marks statuses whose fix is the depot fallback rather
	// than a reported position.
	GPSSynthetic bool `json:"gps_synthetic,omitempty"`
}

// Validate checks that the state and the announcing event types form a legal
// pairing.
func (s *VehicleStatus) Validate() error {
	if !ValidStateEvent(s.VehicleState, s.LastEventTypes) {
		return &InvalidPairingError{State: s.VehicleState, Types: s.LastEventTypes}
	}
	return nil
}
