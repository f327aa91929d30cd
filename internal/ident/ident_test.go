package ident

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeriver(t *testing.T) *Deriver {
	t.Helper()
	return NewDeriver(ProviderUUID("curbfleet-delivery-robots"))
}

func TestDeviceIDDeterministic(t *testing.T) {
	a := testDeriver(t)
	b := testDeriver(t)

	first := a.DeviceID("4F403")
	second := b.DeviceID("4F403")

	assert.Equal(t, first, second, "independent derivers must agree")
	assert.Equal(t, first, a.DeviceID("4F403"), "repeat calls must agree")
	require.NotEqual(t, uuid.Nil, first)
	assert.Equal(t, uuid.Version(5), first.Version())
}

func TestDistinctInputsDistinctIDs(t *testing.T) {
	d := testDeriver(t)

	assert.NotEqual(t, d.DeviceID("4F403"), d.DeviceID("4F404"))
	assert.NotEqual(t, d.TripID("job-1"), d.TripID("job-2"))
}

func TestTagsSeparateNamespaces(t *testing.T) {
	d := testDeriver(t)

	// The same raw identifier must yield different IDs per entity kind.
	raw := "4F403"
	device := d.DeviceID(raw)
	trip := d.TripID(raw)
	journey := d.JourneyID(raw)
	stop := d.StopID(raw)

	assert.NotEqual(t, device, trip)
	assert.NotEqual(t, device, journey)
	assert.NotEqual(t, trip, journey)
	assert.NotEqual(t, device, stop)
}

func TestEventIDVariesByComponent(t *testing.T) {
	d := testDeriver(t)

	base := d.EventID("4F403", 1714000000000, "service_start")
	assert.Equal(t, base, d.EventID("4F403", 1714000000000, "service_start"))
	assert.NotEqual(t, base, d.EventID("4F404", 1714000000000, "service_start"))
	assert.NotEqual(t, base, d.EventID("4F403", 1714000000001, "service_start"))
	assert.NotEqual(t, base, d.EventID("4F403", 1714000000000, "service_end"))
}

func TestTelemetryIDUsesDeviceNamespace(t *testing.T) {
	d := testDeriver(t)
	device := d.DeviceID("4F403")

	first := d.TelemetryID(device, 1714000000000)
	assert.Equal(t, first, d.TelemetryID(device, 1714000000000))
	assert.NotEqual(t, first, d.TelemetryID(device, 1714000000500))
}

func TestProviderNamespaceSeparatesFleets(t *testing.T) {
	a := NewDeriver(ProviderUUID("curbfleet-delivery-robots"))
	b := NewDeriver(ProviderUUID("other-operator"))

	assert.NotEqual(t, a.DeviceID("4F403"), b.DeviceID("4F403"))
	assert.NotEqual(t, a.DefaultGeographyID(), b.DefaultGeographyID())
}

func TestProviderUUIDStable(t *testing.T) {
	assert.Equal(t, ProviderUUID("curbfleet-delivery-robots"), ProviderUUID("curbfleet-delivery-robots"))
	assert.NotEqual(t, ProviderUUID("curbfleet-delivery-robots"), ProviderUUID("curbfleet"))
}
