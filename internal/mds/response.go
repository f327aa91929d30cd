package mds

// Response TTLs in milliseconds, per endpoint family.
const (
	TTLVehicles  = 3600000
	TTLStatus    = 60000
	TTLTrips     = 3600000
	TTLEvents    = 3600000
	TTLTelemetry = 3600000
)

// PaginationLinks holds page navigation URLs for paged endpoints.
type PaginationLinks struct {
	First string  `json:"first,omitempty"`
	Last  string  `json:"last,omitempty"`
	Prev  *string `json:"prev,omitempty"`
	Next  *string `json:"next,omitempty"`
}

// VehiclesResponse wraps the /vehicles payload.
type VehiclesResponse struct {
	Version     string    `json:"version"`
	LastUpdated int64     `json:"last_updated"`
	TTL         int       `json:"ttl"`
	Vehicles    []Vehicle `json:"vehicles"`
}

// StatusResponse wraps the /vehicles/status payload.
type StatusResponse struct {
	Version        string           `json:"version"`
	LastUpdated    int64            `json:"last_updated"`
	TTL            int              `json:"ttl"`
	VehiclesStatus []VehicleStatus  `json:"vehicles_status"`
	Links          *PaginationLinks `json:"links,omitempty"`
}

// TripsResponse wraps the /trips payload.
type TripsResponse struct {
	Version     string `json:"version"`
	LastUpdated int64  `json:"last_updated"`
	TTL         int    `json:"ttl"`
	Trips       []Trip `json:"trips"`
}

// EventsResponse wraps the /events/historical payload.
type EventsResponse struct {
	Version     string  `json:"version"`
	LastUpdated int64   `json:"last_updated"`
	TTL         int     `json:"ttl"`
	Events      []Event `json:"events"`
}

// RecentEventsResponse wraps the /events/recent payload. The recent-events
// schema carries no freshness hints.
type RecentEventsResponse struct {
	Version string  `json:"version"`
	Events  []Event `json:"events"`
}

// TelemetryResponse wraps the /telemetry payload.
type TelemetryResponse struct {
	Version     string      `json:"version"`
	LastUpdated int64       `json:"last_updated"`
	TTL         int         `json:"ttl"`
	Telemetry   []Telemetry `json:"telemetry"`
}
