// Package transform turns typed warehouse rows into MDS 2.0 entities. All
// transforms are pure: time is an explicit argument, identifiers come from
// the deriver, and a bad row yields a MappingError instead of aborting its
// batch.
package transform

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/curbfleet/mds-provider/internal/ident"
	"github.com/curbfleet/mds-provider/internal/mds"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

// Defaults holds the deployment-configured values injected where the
// warehouse has no answer: static vehicle attributes and the fallback
// coordinate for robots that never reported a fix.
type Defaults struct {
	Manufacturer    string
	Year            int
	WheelCount      int
	Width           float64
	Length          float64
	Height          float64
	Weight          float64
	TopSpeed        float64
	StorageCapacity int
	FallbackLat     float64
	FallbackLng     float64
	BatteryPercent  int
	FuelPercent     int
}

// StandardDefaults are the fleet-wide values used unless configuration
// overrides them. The fallback coordinate is the operations depot.
func StandardDefaults() Defaults {
	return Defaults{
		Manufacturer:    "Curbfleet",
		Year:            2023,
		WheelCount:      4,
		Width:           0.6,
		Length:          0.8,
		Height:          0.9,
		Weight:          45,
		TopSpeed:        1.6,
		StorageCapacity: 35000,
		FallbackLat:     38.9197,
		FallbackLng:     -77.0218,
		BatteryPercent:  80,
		FuelPercent:     50,
	}
}

// Transformer builds MDS entities for one provider.
type Transformer struct {
	provider uuid.UUID
	ids      *ident.Deriver
	defaults Defaults
}

// New builds a Transformer.
func New(provider uuid.UUID, ids *ident.Deriver, defaults Defaults) *Transformer {
	return &Transformer{provider: provider, ids: ids, defaults: defaults}
}

// Vehicle maps a location row to a vehicle descriptor. Only the robot ID is
// mandatory; static attributes come from the defaults and the model table.
func (t *Transformer) Vehicle(row warehouse.LocationRow) (*mds.Vehicle, error) {
	if row.RobotID == "" {
		return nil, mapErr("vehicle", "robot_id", "missing")
	}

	model := RobotModel(row.RobotID)
	v := &mds.Vehicle{
		DeviceID:        t.ids.DeviceID(row.RobotID),
		ProviderID:      t.provider,
		VehicleID:       row.RobotID,
		VehicleType:     mds.VehicleTypeRobot,
		PropulsionTypes: []string{mds.PropulsionElectric},
		Year:            iptr(t.defaults.Year),
		Mfgr:            sptr(t.defaults.Manufacturer),
		Model:           sptr(model),
		VehicleAttributes: &mds.VehicleAttributes{
			Year:            iptr(t.defaults.Year),
			Make:            sptr(t.defaults.Manufacturer),
			Model:           sptr(model),
			WheelCount:      iptr(t.defaults.WheelCount),
			Width:           fptr(t.defaults.Width),
			Length:          fptr(t.defaults.Length),
			Height:          fptr(t.defaults.Height),
			Weight:          fptr(t.defaults.Weight),
			TopSpeed:        fptr(t.defaults.TopSpeed),
			StorageCapacity: iptr(t.defaults.StorageCapacity),
		},
		AccessibilityAttributes: &mds.AccessibilityAttributes{
			AudioCue:   bptr(true),
			VisualCue:  bptr(true),
			RemoteOpen: bptr(true),
		},
	}
	if row.Timestamp != nil {
		v.LastReported = i64ptr(row.Timestamp.UnixMilli())
	}
	return v, nil
}

// Status maps a robot's latest ping plus its in-flight jobs to a vehicle
// status. Robots without a usable fix get the fallback coordinate and the
// record is marked synthetic so consumers can tell the two apart.
func (t *Transformer) Status(row warehouse.LocationRow, trips []warehouse.TripRow, now time.Time) (*mds.VehicleStatus, error) {
	if row.RobotID == "" {
		return nil, mapErr("status", "robot_id", "missing")
	}

	deviceID := t.ids.DeviceID(row.RobotID)
	state := Classify(row, now)

	lastEventTime := now.UnixMilli()
	if row.Timestamp != nil {
		lastEventTime = row.Timestamp.UnixMilli()
	}

	eventTypes := EventTypesForState(state)
	switch state {
	case mds.StateMissing:
		eventTypes = []mds.EventType{mds.EventNotLocated}
	case mds.StateNonContactable:
		eventTypes = []mds.EventType{mds.EventCommsLost}
	}

	var tripIDs []uuid.UUID
	for _, trip := range trips {
		if trip.JobID != "" {
			tripIDs = append(tripIDs, t.ids.TripID(trip.JobID))
		}
	}

	var currentLocation *mds.Feature
	lat, lng := t.defaults.FallbackLat, t.defaults.FallbackLng
	synthetic := true
	if row.Latitude != nil && row.Longitude != nil {
		lat, lng = *row.Latitude, *row.Longitude
		synthetic = false
		currentLocation = mds.NewFeature(lat, lng, lastEventTime)
	}

	fix := &mds.GPS{
		Lat:                roundTo(lat, 7),
		Lng:                roundTo(lng, 7),
		Altitude:           fptr(10.0),
		Heading:            fptr(180.0),
		Speed:              fptr(0.5),
		HorizontalAccuracy: fptr(5.0),
		VerticalAccuracy:   fptr(5.0),
		Satellites:         iptr(12),
	}

	// The embedded event and telemetry always carry trip references; the
	// robot-seeded trip ID stands in when no job is in flight.
	embeddedTripIDs := tripIDs
	if len(embeddedTripIDs) == 0 {
		embeddedTripIDs = []uuid.UUID{t.ids.TripID(row.RobotID)}
	}

	lastEvent := &mds.Event{
		EventID:          t.ids.EventID(row.RobotID, lastEventTime, string(eventTypes[0])),
		ProviderID:       t.provider,
		DeviceID:         deviceID,
		EventTypes:       eventTypes,
		VehicleState:     state,
		Timestamp:        lastEventTime,
		PublicationTime:  i64ptr(lastEventTime),
		Location:         fix,
		EventGeographies: []uuid.UUID{t.ids.DefaultGeographyID()},
		BatteryPercent:   iptr(t.defaults.BatteryPercent),
		FuelPercent:      iptr(t.defaults.FuelPercent),
		TripIDs:          embeddedTripIDs,
		AssociatedTicket: sptr("support-" + row.RobotID),
		DataProviderID:   &t.provider,
	}

	journeyID := t.ids.JourneyID(row.RobotID)
	stopID := t.ids.StopID(row.RobotID)
	lastTelemetry := &mds.Telemetry{
		ProviderID:     t.provider,
		DeviceID:       deviceID,
		TelemetryID:    t.ids.TelemetryID(deviceID, lastEventTime),
		Timestamp:      lastEventTime,
		TripIDs:        embeddedTripIDs,
		JourneyID:      journeyID,
		Location:       *fix,
		DataProviderID: &t.provider,
		StopID:         &stopID,
		LocationType:   sptr("street"),
		BatteryPercent: iptr(t.defaults.BatteryPercent),
		FuelPercent:    iptr(t.defaults.FuelPercent),
	}

	return &mds.VehicleStatus{
		DeviceID:        deviceID,
		ProviderID:      t.provider,
		VehicleState:    state,
		LastEventTime:   lastEventTime,
		LastEventTypes:  eventTypes,
		LastEvent:       lastEvent,
		LastTelemetry:   lastTelemetry,
		DataProviderID:  &t.provider,
		CurrentLocation: currentLocation,
		TripIDs:         tripIDs,
		GPSSynthetic:    synthetic,
	}, nil
}

// Trip maps a finished job row to an MDS trip. Both endpoints and both
// times are mandatory; duration and distance are recomputed when the row
// does not carry them.
func (t *Transformer) Trip(row warehouse.TripRow) (*mds.Trip, error) {
	if row.RobotID == "" {
		return nil, mapErr("trip", "robot_id", "missing")
	}
	if row.StartLatitude == nil || row.StartLongitude == nil {
		return nil, mapErr("trip", "start_location", "missing coordinates")
	}
	if row.EndLatitude == nil || row.EndLongitude == nil {
		return nil, mapErr("trip", "end_location", "missing coordinates")
	}
	if row.StartTime == nil {
		return nil, mapErr("trip", "trip_start", "missing")
	}
	if row.EndTime == nil {
		return nil, mapErr("trip", "trip_end", "missing")
	}

	startMs := row.StartTime.UnixMilli()
	endMs := row.EndTime.UnixMilli()
	if endMs < startMs {
		return nil, mapErr("trip", "trip_end", "precedes trip_start")
	}

	duration := 0
	if row.DurationSeconds != nil && *row.DurationSeconds > 0 {
		duration = int(*row.DurationSeconds)
	} else {
		duration = int((endMs - startMs) / 1000)
	}

	distance := 0
	if row.DistanceMeters != nil && *row.DistanceMeters > 0 {
		distance = int(*row.DistanceMeters)
	} else {
		distance = int(mds.Haversine(*row.StartLatitude, *row.StartLongitude, *row.EndLatitude, *row.EndLongitude))
	}

	jobID := row.JobID
	if jobID == "" {
		jobID = row.RobotID
	}
	journeyID := t.ids.JourneyID(jobID)

	return &mds.Trip{
		ProviderID:    t.provider,
		DeviceID:      t.ids.DeviceID(row.RobotID),
		TripID:        t.ids.TripID(jobID),
		Duration:      duration,
		Distance:      distance,
		StartLocation: *mds.NewFeature(*row.StartLatitude, *row.StartLongitude, startMs),
		EndLocation:   *mds.NewFeature(*row.EndLatitude, *row.EndLongitude, endMs),
		StartTime:     startMs,
		EndTime:       endMs,
		TripType:      mds.TripDelivery,
		JourneyID:     &journeyID,
		TripAttributes: &mds.TripAttributes{
			DriverType:             mds.DriverAutonomous,
			HasPayload:             bptr(true),
			IdentificationRequired: bptr(false),
		},
		FareAttributes: &mds.FareAttributes{
			PaymentType: sptr("mobile_app"),
		},
	}, nil
}

// Event maps a state-change row to an MDS event. Rows without coordinates
// reference the default jurisdiction geography so the location-or-geography
// invariant always holds.
func (t *Transformer) Event(row warehouse.EventRow, now time.Time) (*mds.Event, error) {
	if row.RobotID == "" {
		return nil, mapErr("event", "robot_id", "missing")
	}
	if row.Timestamp == nil {
		return nil, mapErr("event", "event_time", "missing")
	}

	var (
		state mds.VehicleState
		types []mds.EventType
	)
	switch row.EventKind {
	case "trip_start":
		state, types = mds.StateOnTrip, []mds.EventType{mds.EventTripStart}
	case "trip_end":
		state, types = mds.StateAvailable, []mds.EventType{mds.EventTripEnd}
	default:
		state, types = mds.StateAvailable, []mds.EventType{mds.EventLocated}
	}

	ts := row.Timestamp.UnixMilli()
	event := &mds.Event{
		EventID:         t.ids.EventID(row.RobotID, ts, string(types[0])),
		ProviderID:      t.provider,
		DeviceID:        t.ids.DeviceID(row.RobotID),
		EventTypes:      types,
		VehicleState:    state,
		Timestamp:       ts,
		PublicationTime: i64ptr(now.UnixMilli()),
	}

	if row.Latitude != nil && row.Longitude != nil {
		event.Location = &mds.GPS{Lat: *row.Latitude, Lng: *row.Longitude}
	} else {
		event.EventGeographies = []uuid.UUID{t.ids.DefaultGeographyID()}
	}
	return event, nil
}

// Telemetry maps a job row to its endpoint fixes, up to two points. A half
// lacking coordinates or a time is skipped; a row yielding nothing is a
// mapping error.
func (t *Transformer) Telemetry(row warehouse.TripRow) ([]mds.Telemetry, error) {
	if row.RobotID == "" {
		return nil, mapErr("telemetry", "robot_id", "missing")
	}

	deviceID := t.ids.DeviceID(row.RobotID)
	jobID := row.JobID
	if jobID == "" {
		jobID = row.RobotID
	}
	tripIDs := []uuid.UUID{t.ids.TripID(jobID)}
	journeyID := t.ids.JourneyID(jobID)

	point := func(ts *time.Time, lat, lng *float64) *mds.Telemetry {
		if ts == nil || lat == nil || lng == nil {
			return nil
		}
		ms := ts.UnixMilli()
		if ms <= 0 {
			return nil
		}
		return &mds.Telemetry{
			ProviderID:  t.provider,
			DeviceID:    deviceID,
			TelemetryID: t.ids.TelemetryID(deviceID, ms),
			Timestamp:   ms,
			TripIDs:     tripIDs,
			JourneyID:   journeyID,
			Location: mds.GPS{
				Lat:                roundTo(*lat, 6),
				Lng:                roundTo(*lng, 6),
				HorizontalAccuracy: fptr(5.0),
			},
		}
	}

	var points []mds.Telemetry
	if p := point(row.StartTime, row.StartLatitude, row.StartLongitude); p != nil {
		points = append(points, *p)
	}
	if p := point(row.EndTime, row.EndLatitude, row.EndLongitude); p != nil {
		points = append(points, *p)
	}
	if len(points) == 0 {
		return nil, mapErr("telemetry", "location", "no usable fixes")
	}
	return points, nil
}

// VehicleBatch maps rows to vehicles, collecting per-row failures.
func (t *Transformer) VehicleBatch(rows []warehouse.LocationRow) ([]mds.Vehicle, []error) {
	out := make([]mds.Vehicle, 0, len(rows))
	var failures []error
	for _, row := range rows {
		v, err := t.Vehicle(row)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		out = append(out, *v)
	}
	return out, failures
}

// StatusBatch maps rows to statuses, joining each robot to its in-flight
// jobs and collecting per-row failures.
func (t *Transformer) StatusBatch(rows []warehouse.LocationRow, tripsByRobot map[string][]warehouse.TripRow, now time.Time) ([]mds.VehicleStatus, []error) {
	out := make([]mds.VehicleStatus, 0, len(rows))
	var failures []error
	for _, row := range rows {
		status, err := t.Status(row, tripsByRobot[row.RobotID], now)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		out = append(out, *status)
	}
	return out, failures
}

// TripBatch maps rows to trips, collecting per-row failures.
func (t *Transformer) TripBatch(rows []warehouse.TripRow) ([]mds.Trip, []error) {
	out := make([]mds.Trip, 0, len(rows))
	var failures []error
	for _, row := range rows {
		trip, err := t.Trip(row)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		out = append(out, *trip)
	}
	return out, failures
}

// EventBatch maps rows to events, collecting per-row failures.
func (t *Transformer) EventBatch(rows []warehouse.EventRow, now time.Time) ([]mds.Event, []error) {
	out := make([]mds.Event, 0, len(rows))
	var failures []error
	for _, row := range rows {
		event, err := t.Event(row, now)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		out = append(out, *event)
	}
	return out, failures
}

// TelemetryBatch maps rows to telemetry points sorted by time, collecting
// per-row failures.
func (t *Transformer) TelemetryBatch(rows []warehouse.TripRow) ([]mds.Telemetry, []error) {
	var out []mds.Telemetry
	var failures []error
	for _, row := range rows {
		points, err := t.Telemetry(row)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		out = append(out, points...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, failures
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func i64ptr(v int64) *int64   { return &v }
func sptr(v string) *string   { return &v }
func bptr(v bool) *bool       { return &v }
