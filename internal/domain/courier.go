package domain

import (
	"encoding/json"
	"time"
)

type CourierStatus string

const (
	CourierAvailable     CourierStatus = "AVAILABLE"
	CourierBusy          CourierStatus = "BUSY"
	CourierOutOfRotation CourierStatus = "OUT_OF_ROTATION"
)

type Courier struct {
	ID        string        `json:"_id"`
	Name      string        `json:"name,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Status    CourierStatus `json:"status,omitempty"`
	BusySince *time.Time    `json:"busySince,omitempty"`
}

// RawCourier is a courier as delivered by the backend. Only the identifier
// may arrive in more than one shape.
type RawCourier struct {
	ID        json.RawMessage `json:"_id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Status    CourierStatus   `json:"status"`
	BusySince *time.Time      `json:"busySince"`
}

// Dashboard is the courier snapshot returned by the delivery dashboard endpoint.
type Dashboard struct {
	Available []RawCourier `json:"availableDeliveries"`
	Busy      []RawCourier `json:"busyDeliveries"`
	Out       []RawCourier `json:"outDeliveries"`
}
