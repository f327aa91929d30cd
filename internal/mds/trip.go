package mds

import "github.com/google/uuid"

// JourneyAttributes is reserved for journey-level metadata.
type JourneyAttributes struct {
	AppName *string `json:"app_name,omitempty"`
}

// TripAttributes carries the delivery-robots trip metadata block.
type TripAttributes struct {
	DriverType             DriverType `json:"driver_type"`
	DriverID               *uuid.UUID `json:"driver_id,omitempty"`
	AppName                *string    `json:"app_name,omitempty"`
	RequestedTime          *int64     `json:"requested_time,omitempty"`
	HasPayload             *bool      `json:"has_payload,omitempty"`
	Range                  *int       `json:"range,omitempty"`
	IdentificationRequired *bool      `json:"identification_required,omitempty"`
}

// FareAttributes carries payment metadata for a trip.
type FareAttributes struct {
	PaymentType *string  `json:"payment_type,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// Trip is an MDS 2.0 completed-trip record.
type Trip struct {
	ProviderID    uuid.UUID `json:"provider_id"`
	DeviceID      uuid.UUID `json:"device_id"`
	TripID        uuid.UUID `json:"trip_id"`
	Duration      int       `json:"duration"`
	Distance      int       `json:"distance"`
	StartLocation Feature   `json:"start_location"`
	EndLocation   Feature   `json:"end_location"`
	StartTime     int64     `json:"start_time"`
	EndTime       int64     `json:"end_time"`

	DataProviderID         *uuid.UUID         `json:"data_provider_id,omitempty"`
	Accuracy               *int               `json:"accuracy,omitempty"`
	PublicationTime        *int64             `json:"publication_time,omitempty"`
	ParkingVerificationURL *string            `json:"parking_verification_url,omitempty"`
	StandardCost           *int               `json:"standard_cost,omitempty"`
	ActualCost             *int               `json:"actual_cost,omitempty"`
	TripType               TripType           `json:"trip_type,omitempty"`
	JourneyID              *uuid.UUID         `json:"journey_id,omitempty"`
	JourneyAttributes      *JourneyAttributes `json:"journey_attributes,omitempty"`
	TripAttributes         *TripAttributes    `json:"trip_attributes,omitempty"`
	FareAttributes         *FareAttributes    `json:"fare_attributes,omitempty"`
}
