package board

import (
	"github.com/joao-fontenele/dispatch-board/internal/domain"
	"github.com/joao-fontenele/dispatch-board/internal/normalize"
)

type Snapshot struct {
	Unassigned []domain.Order      `json:"unassignedOrders"`
	Assigned   []domain.Order      `json:"assignedOrders"`
	All        []domain.Order      `json:"orders"`
	Available  []domain.Courier    `json:"availableDeliveries"`
	Busy       []domain.Courier    `json:"busyDeliveries"`
	Out        []domain.Courier    `json:"outDeliveries"`
	Documents  normalize.Documents `json:"documents"`
}

type Counts struct {
	Unassigned int `json:"unassigned"`
	Assigned   int `json:"assigned"`
	All        int `json:"all"`
	Available  int `json:"available"`
	Busy       int `json:"busy"`
	Out        int `json:"out"`
}

type ChangeKind string

const (
	ChangeOrdersSnapshot    ChangeKind = "orders_snapshot"
	ChangeDashboardSnapshot ChangeKind = "dashboard_snapshot"
	ChangeOrderUpserted     ChangeKind = "order_upserted"
	ChangeOrdersAssigned    ChangeKind = "orders_assigned"
	ChangeOrdersUnassigned  ChangeKind = "orders_unassigned"
	ChangeCourierReturned   ChangeKind = "courier_returned"
	ChangeCourierAvailable  ChangeKind = "courier_available"
	ChangeReset             ChangeKind = "reset"
)

// Change describes one applied event. Orders and Courier are copies.
// Created is set on an order upsert that introduced a new id.
type Change struct {
	Kind    ChangeKind
	View    View
	Orders  []domain.Order
	Courier *domain.Courier
	Created bool
}
