package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	OrderKindTakeaway OrderKind = "TAKEAWAY"
	OrderKindDelivery OrderKind = "DELIVERY"
)

type LineItem struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is the normalized form kept on the board. Every relationship is a bare
// identifier; an empty string means the relationship is absent.
type Order struct {
	ID          string          `json:"_id"`
	Kind        OrderKind       `json:"type,omitempty"`
	Number      json.RawMessage `json:"orderNumber,omitempty"`
	Status      string          `json:"status,omitempty"`
	Subtotal    decimal.Decimal `json:"totalPrice"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	BranchID   string `json:"branchId,omitempty"`
	TenantID   string `json:"tenantId,omitempty"`
	CourierID  string `json:"deliveryId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	ZoneID     string `json:"zoneId,omitempty"`
	CashierID  string `json:"cashierId,omitempty"`
	CreatedBy  string `json:"createdBy,omitempty"`
	ShiftID    string `json:"shiftId,omitempty"`

	Items []LineItem `json:"items"`
}

// Assigned reports whether the order carries a courier reference.
func (o Order) Assigned() bool {
	return o.CourierID != ""
}

// RawLineItem is a line item as delivered by the backend.
type RawLineItem struct {
	Product  json.RawMessage `json:"productId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// RawOrder is an order as delivered by the backend, before normalization.
// Relationship fields hold either an embedded document or a bare identifier.
type RawOrder struct {
	ID          json.RawMessage `json:"_id"`
	Kind        OrderKind       `json:"type"`
	Number      json.RawMessage `json:"orderNumber"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"totalPrice"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Branch   json.RawMessage `json:"branchId"`
	Tenant   json.RawMessage `json:"tenantId"`
	Courier  json.RawMessage `json:"deliveryId"`
	Customer json.RawMessage `json:"customerId"`
	Zone     json.RawMessage `json:"zoneId"`
	Cashier  json.RawMessage `json:"cashierId"`
	Creator  json.RawMessage `json:"createdBy"`
	Shift    json.RawMessage `json:"shiftId"`

	Items []RawLineItem `json:"items"`
}
