// Package ident derives every identifier the service publishes. All IDs are
// name-based UUIDs (version 5) seeded from the provider identity plus the
// raw warehouse identifier, so repeated requests and independent replicas
// always agree on them.
package ident

import (
	"strconv"

	"github.com/google/uuid"
)

// Deriver computes deterministic entity IDs for one provider.
type Deriver struct {
	ns string
}

// NewDeriver builds a Deriver namespaced by the provider UUID.
func NewDeriver(provider uuid.UUID) *Deriver {
	return &Deriver{ns: provider.String()}
}

func (d *Deriver) derive(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(d.ns+"."+seed))
}

// DeviceID maps an external robot ID to its stable MDS device ID.
func (d *Deriver) DeviceID(robotID string) uuid.UUID {
	return d.derive(robotID)
}

// TripID maps a warehouse job ID to its stable MDS trip ID.
func (d *Deriver) TripID(jobID string) uuid.UUID {
	return d.derive("trip." + jobID)
}

// JourneyID maps a warehouse job ID to its stable journey ID.
func (d *Deriver) JourneyID(jobID string) uuid.UUID {
	return d.derive("journey." + jobID)
}

// EventID identifies one state-change event by robot, time, and type.
func (d *Deriver) EventID(robotID string, tsMillis int64, eventType string) uuid.UUID {
	return d.derive("event." + robotID + "." + strconv.FormatInt(tsMillis, 10) + "." + eventType)
}

// TelemetryID identifies one telemetry point by device and time.
func (d *Deriver) TelemetryID(deviceID uuid.UUID, tsMillis int64) uuid.UUID {
	return d.derive("telemetry." + deviceID.String() + "." + strconv.FormatInt(tsMillis, 10))
}

// StopID maps a robot to a synthetic stop identifier.
func (d *Deriver) StopID(robotID string) uuid.UUID {
	return d.derive("stop." + robotID)
}

// DefaultGeographyID is the fallback jurisdiction geography reference used
// when an event carries no coordinates.
func (d *Deriver) DefaultGeographyID() uuid.UUID {
	return d.derive("geography.default")
}

// ProviderUUID derives the provider's UUID from its registry slug. The slug
// is hashed, not parsed, so deployments configure a human-readable name.
func ProviderUUID(slug string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(slug))
}
