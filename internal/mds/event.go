package mds

import "github.com/google/uuid"

// Event is an MDS 2.0 state-change event.
type Event struct {
	EventID      uuid.UUID    `json:"event_id"`
	ProviderID   uuid.UUID    `json:"provider_id"`
	DeviceID     uuid.UUID    `json:"device_id"`
	EventTypes   []EventType  `json:"event_types"`
	VehicleState VehicleState `json:"vehicle_state"`
	Timestamp    int64        `json:"timestamp"`

	DataProviderID   *uuid.UUID  `json:"data_provider_id,omitempty"`
	PublicationTime  *int64      `json:"publication_time,omitempty"`
	Location         *GPS        `json:"location,omitempty"`
	EventGeographies []uuid.UUID `json:"event_geographies,omitempty"`
	BatteryPercent   *int        `json:"battery_percent,omitempty"`
	FuelPercent      *int        `json:"fuel_percent,omitempty"`
	TripIDs          []uuid.UUID `json:"trip_ids,omitempty"`
	AssociatedTicket *string     `json:"associated_ticket,omitempty"`
}

// Validate enforces the event schema invariants: at least one event type,
// a legal state pairing, and a location or an associated geography.
func (e *Event) Validate() error {
	if len(e.EventTypes) == 0 {
		return ErrNoEventTypes
	}
	if !ValidStateEvent(e.VehicleState, e.EventTypes) {
		return &InvalidPairingError{State: e.VehicleState, Types: e.EventTypes}
	}
	if e.Location == nil && len(e.EventGeographies) == 0 {
		return ErrNoEventLocation
	}
	if e.Location != nil {
		return e.Location.Validate()
	}
	return nil
}
