package mds

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEventTypes marks an event with an empty event_types array.
	ErrNoEventTypes = errors.New("event has no event types")
	// ErrNoEventLocation marks an event carrying neither a location nor an
	// associated geography.
	ErrNoEventLocation = errors.New("event has neither location nor event geographies")
)

// InvalidPairingError reports a state announced by event types the schema
// does not allow for it.
type InvalidPairingError struct {
	State VehicleState
	Types []EventType
}

func (e *InvalidPairingError) Error() string {
	return fmt.Sprintf("event types %v cannot announce state %q", e.Types, e.State)
}
