package domain

import "encoding/json"

const (
	EventNewOrder          = "newOrder"
	EventOrderUpdated      = "orderUpdated"
	EventOrdersAssigned    = "ordersAssigned"
	EventOrdersUnassigned  = "ordersUnassigned"
	EventDeliveryReturned  = "deliveryReturned"
	EventDeliveryAvailable = "deliveryAvailable"
)

// Envelope is the wire shape of every push event.
type Envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data"`
}

type OrderEvent struct {
	Order RawOrder `json:"order"`
}

type AssignedEvent struct {
	Courier       RawCourier `json:"delivery"`
	UpdatedOrders []RawOrder `json:"updatedOrders"`
}

type UnassignedEvent struct {
	Orders []RawOrder `json:"orders"`
}

type CourierEvent struct {
	Courier RawCourier `json:"delivery"`
}
