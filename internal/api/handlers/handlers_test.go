package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curbfleet/mds-provider/internal/auth"
	"github.com/curbfleet/mds-provider/internal/ident"
	"github.com/curbfleet/mds-provider/internal/mds"
	"github.com/curbfleet/mds-provider/internal/transform"
	"github.com/curbfleet/mds-provider/internal/warehouse"
)

var testNow = time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Handler, *warehouse.Memory, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := ident.ProviderUUID("curbfleet-delivery-robots")
	ids := ident.NewDeriver(provider)
	mem := warehouse.NewMemory()
	h := New(
		zap.NewNop(),
		mem,
		transform.New(provider, ids, transform.StandardDefaults()),
		ids,
		auth.NewKeyStore(),
		provider,
		[]string{"4F403", "4H001", "4E006"},
		time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
	)
	h.now = func() time.Time { return testNow }

	r := gin.New()
	h.RegisterRoutes(r)
	return h, mem, r
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func seedFresh(mem *warehouse.Memory, robotID string, lat, lng float64) {
	ts := testNow.Add(-time.Minute)
	mem.SeedLocations(warehouse.LocationRow{
		RobotID:   robotID,
		Timestamp: &ts,
		Latitude:  &lat,
		Longitude: &lng,
	})
}

func fullTripRow(jobID, robotID string, end time.Time) warehouse.TripRow {
	start := end.Add(-15 * time.Minute)
	sLat, sLng := 37.7749, -122.4194
	eLat, eLng := 37.7849, -122.4094
	return warehouse.TripRow{
		JobID:          jobID,
		RobotID:        robotID,
		StartTime:      &start,
		EndTime:        &end,
		StartLatitude:  &sLat,
		StartLongitude: &sLng,
		EndLatitude:    &eLat,
		EndLongitude:   &eLng,
	}
}

func TestListVehiclesEnvelope(t *testing.T) {
	h, mem, r := newTestServer(t)
	seedFresh(mem, "4F403", 37.7749, -122.4194)
	seedFresh(mem, "4H001", 37.7750, -122.4195)

	w := doGET(r, "/vehicles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, mds.ContentType, w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, mds.Version, body["version"])
	assert.Equal(t, float64(testNow.UnixMilli()), body["last_updated"])
	assert.Equal(t, float64(mds.TTLVehicles), body["ttl"])

	vehicles := body["vehicles"].([]any)
	require.Len(t, vehicles, 2)
	first := vehicles[0].(map[string]any)
	assert.Equal(t, h.ids.DeviceID("4F403").String(), first["device_id"])
	assert.Equal(t, "robot", first["vehicle_type"])
}

func TestListVehiclesEmptyFleet(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/vehicles")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	vehicles, ok := body["vehicles"].([]any)
	require.True(t, ok, "vehicles must be an array, not null")
	assert.Empty(t, vehicles)
}

func TestListVehiclesSourceFailure(t *testing.T) {
	_, mem, r := newTestServer(t)
	mem.FailNext(errors.New("connection refused"))

	w := doGET(r, "/vehicles")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "database_error", body["error"])
	assert.NotContains(t, body["error_description"], "connection refused")
}

func TestGetVehicleByRobotID(t *testing.T) {
	_, mem, r := newTestServer(t)
	seedFresh(mem, "4F403", 37.7749, -122.4194)

	w := doGET(r, "/vehicles/4F403")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	vehicles := body["vehicles"].([]any)
	require.Len(t, vehicles, 1)
	v := vehicles[0].(map[string]any)
	assert.Equal(t, "4F403", v["vehicle_id"])
	assert.Equal(t, "C4.3F", v["model"])
}

func TestGetVehicleByDeviceUUID(t *testing.T) {
	h, mem, r := newTestServer(t)
	seedFresh(mem, "4H001", 37.7749, -122.4194)

	w := doGET(r, "/vehicles/"+h.ids.DeviceID("4H001").String())
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	vehicles := body["vehicles"].([]any)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "4H001", vehicles[0].(map[string]any)["vehicle_id"])
}

func TestGetVehicleNotFound(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/vehicles/9Z999")
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "vehicle_not_found", body["error"])
	assert.Equal(t, mds.ContentType, w.Header().Get("Content-Type"))
}

func TestFleetStatus(t *testing.T) {
	h, mem, r := newTestServer(t)
	seedFresh(mem, "4F403", 37.7749, -122.4194)
	seedFresh(mem, "4H001", 37.7750, -122.4195)
	mem.SeedActiveJobs("4F403", warehouse.TripRow{JobID: "job-77", RobotID: "4F403"})

	w := doGET(r, "/vehicles/status")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(mds.TTLStatus), body["ttl"])

	statuses := body["vehicles_status"].([]any)
	require.Len(t, statuses, 2)
	first := statuses[0].(map[string]any)
	assert.Equal(t, "available", first["vehicle_state"])
	assert.Equal(t, []any{"service_start"}, first["last_event_types"])

	tripIDs := first["trip_ids"].([]any)
	require.Len(t, tripIDs, 1)
	assert.Equal(t, h.ids.TripID("job-77").String(), tripIDs[0])

	links := body["links"].(map[string]any)
	assert.Contains(t, links["first"], "skip=0")
	_, hasNext := links["next"]
	assert.False(t, hasNext)
}

func TestFleetStatusPaging(t *testing.T) {
	_, mem, r := newTestServer(t)
	seedFresh(mem, "4F403", 37.7749, -122.4194)
	seedFresh(mem, "4H001", 37.7750, -122.4195)
	seedFresh(mem, "4E006", 37.7751, -122.4196)

	w := doGET(r, "/vehicles/status?skip=1&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	statuses := body["vehicles_status"].([]any)
	require.Len(t, statuses, 1)

	links := body["links"].(map[string]any)
	assert.Contains(t, links["first"], "skip=0")
	assert.Contains(t, links["last"], "skip=2")
	assert.Contains(t, links["prev"], "skip=0")
	assert.Contains(t, links["next"], "skip=2")
}

func TestFleetStatusPageBeyondEnd(t *testing.T) {
	_, mem, r := newTestServer(t)
	seedFresh(mem, "4F403", 37.7749, -122.4194)

	w := doGET(r, "/vehicles/status?skip=10&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	statuses, ok := body["vehicles_status"].([]any)
	require.True(t, ok)
	assert.Empty(t, statuses)
}

func TestGetVehicleStatusUnseenRobotReportsMissing(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/vehicles/4E006/status")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	statuses := body["vehicles_status"].([]any)
	require.Len(t, statuses, 1)
	status := statuses[0].(map[string]any)
	assert.Equal(t, "missing", status["vehicle_state"])
	assert.Equal(t, true, status["gps_synthetic"])
}

func TestTripsMissingParam(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/trips")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "missing_end_time", body["error"])
}

func TestTripsMalformedParam(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/trips?end_time=2026-03-10T10:00:00")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_end_time", body["error"])
	assert.Equal(t, mds.ContentType, w.Header().Get("Content-Type"))
}

func TestTripsFutureHour(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/trips?end_time=2026-03-10T13")
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "future_time", body["error"])
}

func TestTripsBeforeOperationsStart(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/trips?end_time=2020-12-31T23")
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "no_operation", body["error"])
}

func TestTripsRecentHourStillProcessing(t *testing.T) {
	_, _, r := newTestServer(t)

	// 11:00 is ninety minutes before testNow and nothing is materialized.
	w := doGET(r, "/trips?end_time=2026-03-10T11")
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "data_processing", body["error"])
}

func TestTripsRecentHourMaterialized(t *testing.T) {
	_, mem, r := newTestServer(t)
	hour := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	mem.SetAvailability(hour, true)
	mem.SeedJobs(fullTripRow("job-1", "4F403", hour.Add(10*time.Minute)))

	w := doGET(r, "/trips?end_time=2026-03-10T11")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	trips := body["trips"].([]any)
	require.Len(t, trips, 1)
}

func TestTripsOldHourSkipsAvailabilityCheck(t *testing.T) {
	_, _, r := newTestServer(t)

	// No availability pin, no data: an old empty hour is a valid response.
	w := doGET(r, "/trips?end_time=2026-03-09T10")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	trips, ok := body["trips"].([]any)
	require.True(t, ok)
	assert.Empty(t, trips)
}

func TestTripsPayload(t *testing.T) {
	h, mem, r := newTestServer(t)
	end := time.Date(2026, 3, 9, 10, 20, 0, 0, time.UTC)
	mem.SeedJobs(fullTripRow("job-9", "4F403", end))

	w := doGET(r, "/trips?end_time=2026-03-09T10")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	trips := body["trips"].([]any)
	require.Len(t, trips, 1)
	trip := trips[0].(map[string]any)
	assert.Equal(t, h.ids.TripID("job-9").String(), trip["trip_id"])
	assert.Equal(t, "delivery", trip["trip_type"])
	assert.Equal(t, float64(900), trip["duration"])
	assert.InDelta(t, 1417, trip["distance"], 5)
}

func TestHistoricalEventsDropsBadRows(t *testing.T) {
	_, mem, r := newTestServer(t)
	ts := time.Date(2026, 3, 9, 10, 15, 0, 0, time.UTC)
	lat, lng := 37.7749, -122.4194
	mem.SeedEvents(
		warehouse.EventRow{RobotID: "4F403", Timestamp: &ts, EventKind: "trip_start", Latitude: &lat, Longitude: &lng},
		warehouse.EventRow{Timestamp: &ts, EventKind: "trip_end"}, // no robot id
	)

	w := doGET(r, "/events/historical?event_time=2026-03-09T10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Dropped-Rows"))

	body := decode(t, w)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	event := events[0].(map[string]any)
	assert.Equal(t, "on_trip", event["vehicle_state"])
	assert.Equal(t, []any{"trip_start"}, event["event_types"])
	assert.Equal(t, float64(testNow.UnixMilli()), event["publication_time"])
}

func TestHistoricalEventsDeterministic(t *testing.T) {
	_, mem, r := newTestServer(t)
	ts := time.Date(2026, 3, 9, 10, 15, 0, 0, time.UTC)
	lat, lng := 37.7749, -122.4194
	mem.SeedEvents(
		warehouse.EventRow{RobotID: "4F403", Timestamp: &ts, EventKind: "trip_start", Latitude: &lat, Longitude: &lng},
		warehouse.EventRow{RobotID: "4H001", Timestamp: &ts, EventKind: "trip_end", Latitude: &lat, Longitude: &lng},
	)

	eventIDs := func() []string {
		w := doGET(r, "/events/historical?event_time=2026-03-09T10")
		require.Equal(t, http.StatusOK, w.Code)
		events := decode(t, w)["events"].([]any)
		ids := make([]string, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.(map[string]any)["event_id"].(string))
		}
		return ids
	}

	first := eventIDs()
	second := eventIDs()
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestRecentEventsSorted(t *testing.T) {
	_, mem, r := newTestServer(t)
	late := testNow.Add(-10 * time.Minute)
	early := testNow.Add(-30 * time.Minute)
	mem.SeedEvents(
		warehouse.EventRow{RobotID: "4F403", Timestamp: &late, EventKind: "trip_end"},
		warehouse.EventRow{RobotID: "4H001", Timestamp: &early, EventKind: "trip_start"},
	)

	start := testNow.Add(-time.Hour).UnixMilli()
	end := testNow.UnixMilli()
	w := doGET(r, "/events/recent?start_time="+itoa(start)+"&end_time="+itoa(end))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	_, hasTTL := body["ttl"]
	assert.False(t, hasTTL, "recent events response carries no ttl")
	_, hasLastUpdated := body["last_updated"]
	assert.False(t, hasLastUpdated)

	events := body["events"].([]any)
	require.Len(t, events, 2)
	first := events[0].(map[string]any)
	second := events[1].(map[string]any)
	assert.Less(t, first["timestamp"].(float64), second["timestamp"].(float64))
}

func TestRecentEventsValidation(t *testing.T) {
	_, _, r := newTestServer(t)
	now := testNow.UnixMilli()

	cases := []struct {
		name string
		path string
		code string
	}{
		{"missing params", "/events/recent", "invalid_time_range"},
		{"non-numeric", "/events/recent?start_time=yesterday&end_time=" + itoa(now), "invalid_time_range"},
		{"reversed range", "/events/recent?start_time=" + itoa(now) + "&end_time=" + itoa(now-1000), "invalid_time_range"},
		{"too old", "/events/recent?start_time=" + itoa(testNow.Add(-15*24*time.Hour).UnixMilli()) + "&end_time=" + itoa(now), "time_range_too_old"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doGET(r, tc.path)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.code, body["error"])
		})
	}
}

func TestTelemetryEndpoint(t *testing.T) {
	_, mem, r := newTestServer(t)
	end := time.Date(2026, 3, 9, 10, 20, 0, 0, time.UTC)
	mem.SeedJobs(fullTripRow("job-5", "4F403", end))

	w := doGET(r, "/telemetry?telemetry_time=2026-03-09T10")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	points := body["telemetry"].([]any)
	require.Len(t, points, 2)
	first := points[0].(map[string]any)
	second := points[1].(map[string]any)
	assert.Less(t, first["timestamp"].(float64), second["timestamp"].(float64))
}

func TestTelemetryEmptyHourIsArray(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/telemetry?telemetry_time=2026-03-09T10")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	points, ok := body["telemetry"].([]any)
	require.True(t, ok, "telemetry must be an array, not null")
	assert.Empty(t, points)
}

func TestTelemetryMissingParam(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/telemetry")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "missing_telemetry_time", body["error"])
}

func TestAdminKeyLifecycle(t *testing.T) {
	_, _, r := newTestServer(t)

	// Create.
	payload, _ := json.Marshal(map[string]any{
		"provider_id": "city-agency",
		"permissions": []string{"read"},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/api-keys", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode(t, w)
	key := created["api_key"].(string)
	preview := created["key_preview"].(string)
	assert.Contains(t, key, "mds_")
	assert.NotEqual(t, key, preview)

	// List shows the preview, never the key.
	w = doGET(r, "/admin/api-keys")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), key)
	assert.Contains(t, w.Body.String(), preview)

	// Revoke.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin/api-keys/"+preview, nil))
	require.Equal(t, http.StatusOK, w.Code)

	// Second revoke finds nothing.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin/api-keys/"+preview, nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "key_not_found", body["error"])
}

func TestAdminCreateKeyValidation(t *testing.T) {
	_, _, r := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/api-keys", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestHealthAndRoot(t *testing.T) {
	_, _, r := newTestServer(t)

	w := doGET(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, mds.Version, body["version"])

	w = doGET(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "delivery-robots", body["mode"])
	assert.NotEmpty(t, body["provider_id"])
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
