// Package api exposes the board over HTTP and forwards operator actions to
// the backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
	"github.com/joao-fontenele/dispatch-board/internal/rooms"
	"github.com/joao-fontenele/dispatch-board/internal/snapshot"
)

// Actions are the operator commands that go through the backend.
type Actions interface {
	Refresh(ctx context.Context) error
	ReturnCourier(ctx context.Context, courierID string) error
	SetCourierAvailable(ctx context.Context, courierID string) error
	AssignOrders(ctx context.Context, orderIDs []string, courierID string) error
	UnassignOrders(ctx context.Context, orderIDs []string) error
}

type Handler struct {
	board   *board.Board
	rooms   *rooms.Manager
	actions Actions
	logger  *slog.Logger
}

func NewHandler(b *board.Board, roomManager *rooms.Manager, actions Actions, logger *slog.Logger) *Handler {
	return &Handler{
		board:   b,
		rooms:   roomManager,
		actions: actions,
		logger:  logger,
	}
}

type couriersResponse struct {
	Available []domain.Courier `json:"availableDeliveries"`
	Busy      []domain.Courier `json:"busyDeliveries"`
	Out       []domain.Courier `json:"outDeliveries"`
}

type roomsResponse struct {
	Rooms []string `json:"rooms"`
}

type assignRequest struct {
	OrderIDs  []string `json:"orderIds"`
	CourierID string   `json:"deliveryId"`
}

type unassignRequest struct {
	OrderIDs []string `json:"orderIds"`
}

func (h *Handler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.board.Snapshot())
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	view, err := board.ParseView(r.PathValue("view"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.board.Orders(view)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleCouriers(w http.ResponseWriter, r *http.Request) {
	s := h.board.Snapshot()
	h.writeJSON(w, http.StatusOK, couriersResponse{
		Available: s.Available,
		Busy:      s.Busy,
		Out:       s.Out,
	})
}

func (h *Handler) HandleRooms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, roomsResponse{Rooms: h.rooms.Joined()})
}

func (h *Handler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomKey(w, r)
	if !ok {
		return
	}

	if err := h.rooms.Join(r.Context(), room); err != nil {
		h.logger.Error("failed to join room", "error", err, "room", room)
		h.writeError(w, http.StatusBadGateway, "failed to join room")
		return
	}

	h.writeJSON(w, http.StatusOK, roomsResponse{Rooms: h.rooms.Joined()})
}

func (h *Handler) HandleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomKey(w, r)
	if !ok {
		return
	}

	if err := h.rooms.Leave(r.Context(), room); err != nil {
		h.logger.Error("failed to leave room", "error", err, "room", room)
		h.writeError(w, http.StatusBadGateway, "failed to leave room")
		return
	}

	h.writeJSON(w, http.StatusOK, roomsResponse{Rooms: h.rooms.Joined()})
}

func (h *Handler) roomKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	kind, err := rooms.ParseKind(r.PathValue("kind"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}

	room := rooms.Key(kind, r.PathValue("id"))
	if room == "" {
		h.writeError(w, http.StatusBadRequest, "missing room id")
		return "", false
	}
	return room, true
}

func (h *Handler) HandleReturnCourier(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing courier id")
		return
	}

	if err := h.actions.ReturnCourier(r.Context(), id); err != nil {
		h.writeBackendError(w, err)
		return
	}

	h.logger.Info("courier returned", "courier_id", id)
	h.HandleCouriers(w, r)
}

func (h *Handler) HandleCourierAvailable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing courier id")
		return
	}

	if err := h.actions.SetCourierAvailable(r.Context(), id); err != nil {
		h.writeBackendError(w, err)
		return
	}

	h.logger.Info("courier set available", "courier_id", id)
	h.HandleCouriers(w, r)
}

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.OrderIDs) == 0 || req.CourierID == "" {
		h.writeError(w, http.StatusBadRequest, "orderIds and deliveryId are required")
		return
	}

	if err := h.actions.AssignOrders(r.Context(), req.OrderIDs, req.CourierID); err != nil {
		h.writeBackendError(w, err)
		return
	}

	h.logger.Info("orders assigned", "courier_id", req.CourierID, "orders", len(req.OrderIDs))
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	var req unassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.OrderIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "orderIds is required")
		return
	}

	if err := h.actions.UnassignOrders(r.Context(), req.OrderIDs); err != nil {
		h.writeBackendError(w, err)
		return
	}

	h.logger.Info("orders unassigned", "orders", len(req.OrderIDs))
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.Refresh(r.Context()); err != nil {
		h.writeBackendError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.board.Counts())
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeBackendError(w http.ResponseWriter, err error) {
	if errors.Is(err, snapshot.ErrSessionExpired) {
		h.writeError(w, http.StatusUnauthorized, "session expired")
		return
	}

	var apiErr *snapshot.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		h.writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}
	h.writeError(w, http.StatusBadGateway, "backend unavailable")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
