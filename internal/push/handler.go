// Package push decodes realtime events and applies them to the board.
package push

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

// Board is the set of reconciler entry points push events map onto.
type Board interface {
	OrderCreatedOrUpdated(raw domain.RawOrder) bool
	OrdersAssigned(courier domain.RawCourier, orders []domain.RawOrder)
	OrdersUnassigned(orders []domain.RawOrder)
	CourierReturned(courier domain.RawCourier) bool
	CourierSetAvailable(courier domain.RawCourier) bool
}

// Batch payloads keep their orders raw so a single undecodable entry is
// dropped without losing the rest of the event.
type assignedData struct {
	Courier       domain.RawCourier `json:"delivery"`
	UpdatedOrders []json.RawMessage `json:"updatedOrders"`
}

type unassignedData struct {
	Orders []json.RawMessage `json:"orders"`
}

type Handler struct {
	board  Board
	logger *slog.Logger
}

func NewHandler(board Board, logger *slog.Logger) *Handler {
	return &Handler{
		board:  board,
		logger: logger,
	}
}

// Handle applies one envelope. It never returns an error for bad input: a
// malformed or unknown event is logged and skipped so the stream keeps flowing.
func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var env domain.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		h.logger.WarnContext(ctx, "malformed push envelope skipped", "error", err)
		return nil
	}

	logger := h.logger.With("event", env.Event, "room", env.Room)

	switch env.Event {
	case domain.EventNewOrder, domain.EventOrderUpdated:
		var data domain.OrderEvent
		if !h.decode(ctx, logger, env.Data, &data) {
			return nil
		}
		h.board.OrderCreatedOrUpdated(data.Order)

	case domain.EventOrdersAssigned:
		var data assignedData
		if !h.decode(ctx, logger, env.Data, &data) {
			return nil
		}
		h.board.OrdersAssigned(data.Courier, h.orders(ctx, logger, data.UpdatedOrders))

	case domain.EventOrdersUnassigned:
		var data unassignedData
		if !h.decode(ctx, logger, env.Data, &data) {
			return nil
		}
		h.board.OrdersUnassigned(h.orders(ctx, logger, data.Orders))

	case domain.EventDeliveryReturned:
		var data domain.CourierEvent
		if !h.decode(ctx, logger, env.Data, &data) {
			return nil
		}
		h.board.CourierReturned(data.Courier)

	case domain.EventDeliveryAvailable:
		var data domain.CourierEvent
		if !h.decode(ctx, logger, env.Data, &data) {
			return nil
		}
		h.board.CourierSetAvailable(data.Courier)

	default:
		logger.WarnContext(ctx, "unknown push event skipped")
		return nil
	}

	logger.DebugContext(ctx, "push event applied")
	return nil
}

func (h *Handler) decode(ctx context.Context, logger *slog.Logger, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		logger.WarnContext(ctx, "push event without data skipped")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.WarnContext(ctx, "malformed push payload skipped", "error", err)
		return false
	}
	return true
}

func (h *Handler) orders(ctx context.Context, logger *slog.Logger, raws []json.RawMessage) []domain.RawOrder {
	orders := make([]domain.RawOrder, 0, len(raws))
	for i, raw := range raws {
		var o domain.RawOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			logger.WarnContext(ctx, "malformed order skipped", "index", i, "error", err)
			continue
		}
		orders = append(orders, o)
	}
	return orders
}
