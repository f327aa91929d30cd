package mds

// Version is the MDS version this service emits.
const Version = "2.0.0"

// ContentType is the vendor media type required on every MDS response.
const ContentType = "application/vnd.mds+json;version=" + Version

// VehicleState is an MDS 2.0 vehicle state.
type VehicleState string

const (
	StateRemoved        VehicleState = "removed"
	StateAvailable      VehicleState = "available"
	StateNonOperational VehicleState = "non_operational"
	StateReserved       VehicleState = "reserved"
	StateOnTrip         VehicleState = "on_trip"
	StateStopped        VehicleState = "stopped"
	StateNonContactable VehicleState = "non_contactable"
	StateMissing        VehicleState = "missing"
	StateElsewhere      VehicleState = "elsewhere"
)

// VehicleStates lists every state in the delivery-robots profile.
var VehicleStates = []VehicleState{
	StateRemoved,
	StateAvailable,
	StateNonOperational,
	StateReserved,
	StateOnTrip,
	StateStopped,
	StateNonContactable,
	StateMissing,
	StateElsewhere,
}

// EventType is an MDS 2.0 state-change event type.
type EventType string

const (
	EventCommsLost             EventType = "comms_lost"
	EventCommsRestored         EventType = "comms_restored"
	EventCompliancePickUp      EventType = "compliance_pick_up"
	EventDecommissioned        EventType = "decommissioned"
	EventNotLocated            EventType = "not_located"
	EventLocated               EventType = "located"
	EventMaintenance           EventType = "maintenance"
	EventMaintenancePickUp     EventType = "maintenance_pick_up"
	EventMaintenanceEnd        EventType = "maintenance_end"
	EventDriverCancellation    EventType = "driver_cancellation"
	EventOrderDropOff          EventType = "order_drop_off"
	EventOrderPickUp           EventType = "order_pick_up"
	EventCustomerCancellation  EventType = "customer_cancellation"
	EventProviderCancellation  EventType = "provider_cancellation"
	EventRecommission          EventType = "recommission"
	EventReservationStart      EventType = "reservation_start"
	EventReservationStop       EventType = "reservation_stop"
	EventServiceEnd            EventType = "service_end"
	EventServiceStart          EventType = "service_start"
	EventTripEnd               EventType = "trip_end"
	EventTripEnterJurisdiction EventType = "trip_enter_jurisdiction"
	EventTripLeaveJurisdiction EventType = "trip_leave_jurisdiction"
	EventTripResume            EventType = "trip_resume"
	EventTripStart             EventType = "trip_start"
	EventTripPause             EventType = "trip_pause"
)

// TripType categorizes what a trip was for.
type TripType string

const (
	TripDelivery    TripType = "delivery"
	TripReturn      TripType = "return"
	TripAdvertising TripType = "advertising"
	TripMapping     TripType = "mapping"
	TripRoaming     TripType = "roaming"
)

// DriverType describes who or what was driving.
type DriverType string

const (
	DriverHuman          DriverType = "human"
	DriverSemiAutonomous DriverType = "semi_autonomous"
	DriverAutonomous     DriverType = "autonomous"
)

// VehicleTypeRobot is the only vehicle type in the delivery-robots profile.
const VehicleTypeRobot = "robot"

// PropulsionElectric is the only propulsion type the fleet uses.
const PropulsionElectric = "electric"

// StateEventTypes maps each vehicle state to the canonical event type(s)
// announcing it.
var StateEventTypes = map[VehicleState][]EventType{
	StateAvailable:      {EventServiceStart},
	StateNonOperational: {EventServiceEnd},
	StateOnTrip:         {EventTripStart},
	StateStopped:        {EventTripPause},
	StateNonContactable: {EventCommsLost},
	StateMissing:        {EventNotLocated},
	StateElsewhere:      {EventTripLeaveJurisdiction},
	StateReserved:       {EventReservationStart},
	StateRemoved:        {EventDecommissioned},
}

// AllowedEventTypes is the full set of event types that may legally announce
// each state. It is a superset of StateEventTypes: several event types can
// land a vehicle in the same state (a trip ending, a located report, and a
// service start all yield "available").
var AllowedEventTypes = map[VehicleState]map[EventType]bool{
	StateAvailable: {
		EventServiceStart:    true,
		EventTripEnd:         true,
		EventLocated:         true,
		EventCommsRestored:   true,
		EventRecommission:    true,
		EventMaintenanceEnd:  true,
		EventReservationStop: true,
	},
	StateOnTrip: {
		EventTripStart:             true,
		EventTripResume:            true,
		EventTripEnterJurisdiction: true,
		EventOrderPickUp:           true,
	},
	StateStopped: {
		EventTripPause:    true,
		EventOrderDropOff: true,
	},
	StateNonOperational: {
		EventServiceEnd:           true,
		EventMaintenance:          true,
		EventCustomerCancellation: true,
		EventProviderCancellation: true,
		EventDriverCancellation:   true,
	},
	StateNonContactable: {
		EventCommsLost: true,
	},
	StateMissing: {
		EventNotLocated: true,
	},
	StateElsewhere: {
		EventTripLeaveJurisdiction: true,
	},
	StateReserved: {
		EventReservationStart: true,
	},
	StateRemoved: {
		EventDecommissioned:    true,
		EventCompliancePickUp:  true,
		EventMaintenancePickUp: true,
	},
}

// ValidStateEvent reports whether every event type in types may announce the
// given state.
func ValidStateEvent(state VehicleState, types []EventType) bool {
	allowed, ok := AllowedEventTypes[state]
	if !ok || len(types) == 0 {
		return false
	}
	for _, t := range types {
		if !allowed[t] {
			return false
		}
	}
	return true
}
