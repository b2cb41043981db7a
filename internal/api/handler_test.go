package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
	"github.com/joao-fontenele/dispatch-board/internal/rooms"
	"github.com/joao-fontenele/dispatch-board/internal/snapshot"
)

type fakeActions struct {
	err       error
	courierID string
	orderIDs  []string
	refreshed bool
}

func (f *fakeActions) Refresh(context.Context) error {
	f.refreshed = true
	return f.err
}

func (f *fakeActions) ReturnCourier(_ context.Context, id string) error {
	f.courierID = id
	return f.err
}

func (f *fakeActions) SetCourierAvailable(_ context.Context, id string) error {
	f.courierID = id
	return f.err
}

func (f *fakeActions) AssignOrders(_ context.Context, ids []string, courierID string) error {
	f.orderIDs = ids
	f.courierID = courierID
	return f.err
}

func (f *fakeActions) UnassignOrders(_ context.Context, ids []string) error {
	f.orderIDs = ids
	return f.err
}

type nopSubscriber struct{}

func (nopSubscriber) Subscribe(context.Context, string) error   { return nil }
func (nopSubscriber) Unsubscribe(context.Context, string) error { return nil }

type testServer struct {
	mux     *http.ServeMux
	board   *board.Board
	rooms   *rooms.Manager
	actions *fakeActions
}

func newTestServer() *testServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := board.New(logger)
	rm := rooms.NewManager(nopSubscriber{}, logger)
	actions := &fakeActions{}

	mux := http.NewServeMux()
	NewHandler(b, rm, actions, logger).Routes(mux, nil)

	return &testServer{mux: mux, board: b, rooms: rm, actions: actions}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Board(t *testing.T) {
	s := newTestServer()
	s.board.OrderCreatedOrUpdated(domain.RawOrder{ID: []byte(`"O1"`)})
	s.board.OrderCreatedOrUpdated(domain.RawOrder{ID: []byte(`"O2"`), Courier: []byte(`"C1"`)})

	t.Run("full snapshot", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/board", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}

		var snap board.Snapshot
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(snap.Unassigned) != 1 || len(snap.Assigned) != 1 || len(snap.All) != 2 {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	})

	t.Run("single view", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/board/orders/assigned", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var orders []domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(orders) != 1 || orders[0].ID != "O2" {
			t.Errorf("unexpected orders: %+v", orders)
		}
	})

	t.Run("unknown view", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/board/orders/archived", "")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("couriers", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/board/couriers", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"busyDeliveries":[]`) {
			t.Errorf("expected empty busy group, got %s", rec.Body.String())
		}
	})
}

func TestHandler_Rooms(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodPost, "/rooms/branch/B1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	_ = s.do(http.MethodPost, "/rooms/tenant/T1", "")

	if joined := s.rooms.Joined(); len(joined) != 2 {
		t.Fatalf("expected 2 rooms, got %v", joined)
	}

	rec = s.do(http.MethodDelete, "/rooms/branch/B1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"rooms":["tenant_T1"]`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/rooms/zone/Z1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown kind, got %d", rec.Code)
	}
}

func TestHandler_Actions(t *testing.T) {
	t.Run("return courier", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(http.MethodPost, "/couriers/C1/return", "")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if s.actions.courierID != "C1" {
			t.Errorf("expected C1, got %q", s.actions.courierID)
		}
	})

	t.Run("assign", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(http.MethodPost, "/orders/assign", `{"orderIds":["O1","O2"],"deliveryId":"C1"}`)

		if rec.Code != http.StatusAccepted {
			t.Errorf("expected status 202, got %d", rec.Code)
		}
		if len(s.actions.orderIDs) != 2 || s.actions.courierID != "C1" {
			t.Errorf("unexpected call: %+v", s.actions)
		}
	})

	t.Run("assign requires a courier", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(http.MethodPost, "/orders/assign", `{"orderIds":["O1"]}`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unassign rejects bad body", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(http.MethodPost, "/orders/unassign", `not-json`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("refresh", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(http.MethodPost, "/refresh", "")

		if rec.Code != http.StatusOK || !s.actions.refreshed {
			t.Errorf("expected refresh, got status %d", rec.Code)
		}
	})
}

func TestHandler_BackendErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "session expired",
			err:        &snapshot.APIError{Status: http.StatusUnauthorized, Message: "jwt expired"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "session expired",
		},
		{
			name:       "backend message",
			err:        &snapshot.APIError{Status: http.StatusBadRequest, Message: "delivery is not busy"},
			wantStatus: http.StatusBadGateway,
			wantBody:   "delivery is not busy",
		},
		{
			name:       "transport failure",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusBadGateway,
			wantBody:   "backend unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.actions.err = tt.err

			rec := s.do(http.MethodPost, "/couriers/C1/available", "")

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["error"] != tt.wantBody {
				t.Errorf("expected error %q, got %q", tt.wantBody, body["error"])
			}
		})
	}
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
