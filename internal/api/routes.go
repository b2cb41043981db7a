package api

import (
	"net/http"

	"github.com/joao-fontenele/dispatch-board/internal/telemetry"
)

// Routes registers every endpoint on mux. metrics may be nil.
func (h *Handler) Routes(mux *http.ServeMux, metrics http.Handler) {
	mux.HandleFunc("GET /board", telemetry.WithHTTPRoute(h.HandleBoard))
	mux.HandleFunc("GET /board/orders/{view}", telemetry.WithHTTPRoute(h.HandleOrders))
	mux.HandleFunc("GET /board/couriers", telemetry.WithHTTPRoute(h.HandleCouriers))
	mux.HandleFunc("GET /rooms", telemetry.WithHTTPRoute(h.HandleRooms))
	mux.HandleFunc("POST /rooms/{kind}/{id}", telemetry.WithHTTPRoute(h.HandleJoinRoom))
	mux.HandleFunc("DELETE /rooms/{kind}/{id}", telemetry.WithHTTPRoute(h.HandleLeaveRoom))
	mux.HandleFunc("POST /couriers/{id}/return", telemetry.WithHTTPRoute(h.HandleReturnCourier))
	mux.HandleFunc("POST /couriers/{id}/available", telemetry.WithHTTPRoute(h.HandleCourierAvailable))
	mux.HandleFunc("POST /orders/assign", telemetry.WithHTTPRoute(h.HandleAssign))
	mux.HandleFunc("POST /orders/unassign", telemetry.WithHTTPRoute(h.HandleUnassign))
	mux.HandleFunc("POST /refresh", telemetry.WithHTTPRoute(h.HandleRefresh))
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}
