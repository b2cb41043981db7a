package push

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

func newTestBoard() *board.Board {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return board.New(logger, board.WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func newTestHandler(b Board) *Handler {
	return NewHandler(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("new order lands in the unassigned view", func(t *testing.T) {
		b := newTestBoard()
		h := newTestHandler(b)

		err := h.Handle(ctx, []byte(`{"event":"newOrder","room":"branch_B1","data":{"order":{"_id":"O1","branchId":{"_id":"B1","name":"Main"}}}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		orders, _ := b.Orders(board.ViewUnassigned)
		if len(orders) != 1 || orders[0].ID != "O1" || orders[0].BranchID != "B1" {
			t.Errorf("unexpected unassigned view: %+v", orders)
		}
	})

	t.Run("orders assigned migrates and marks the courier busy", func(t *testing.T) {
		b := newTestBoard()
		h := newTestHandler(b)
		b.SnapshotDashboard(domain.Dashboard{Available: []domain.RawCourier{{ID: []byte(`"C1"`), Name: "Ana"}}})
		_ = h.Handle(ctx, []byte(`{"event":"newOrder","data":{"order":{"_id":"O1"}}}`))

		err := h.Handle(ctx, []byte(`{"event":"ordersAssigned","data":{"delivery":{"_id":"C1","name":"Ana"},"updatedOrders":[{"_id":"O1","deliveryId":"C1"}]}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s := b.Snapshot()
		if len(s.Unassigned) != 0 || len(s.Assigned) != 1 {
			t.Errorf("unexpected views: unassigned=%d assigned=%d", len(s.Unassigned), len(s.Assigned))
		}
		if len(s.Busy) != 1 || s.Busy[0].ID != "C1" || len(s.Available) != 0 {
			t.Errorf("unexpected courier groups: busy=%+v available=%+v", s.Busy, s.Available)
		}
	})

	t.Run("badly typed fields do not drop an assignment", func(t *testing.T) {
		tests := []struct {
			name  string
			order string
		}{
			{name: "empty fee", order: `{"_id":"O1","deliveryId":"C1","deliveryFee":""}`},
			{name: "empty timestamp", order: `{"_id":"O1","deliveryId":"C1","createdAt":""}`},
			{name: "quoted quantity", order: `{"_id":"O1","deliveryId":"C1","items":[{"productId":"P1","quantity":"2","price":3}]}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				b := newTestBoard()
				h := newTestHandler(b)
				b.SnapshotDashboard(domain.Dashboard{Available: []domain.RawCourier{{ID: []byte(`"C1"`)}}})
				_ = h.Handle(ctx, []byte(`{"event":"newOrder","data":{"order":{"_id":"O1"}}}`))
				_ = h.Handle(ctx, []byte(`{"event":"newOrder","data":{"order":{"_id":"O2"}}}`))

				payload := `{"event":"ordersAssigned","data":{"delivery":{"_id":"C1","busySince":""},"updatedOrders":[` +
					tt.order + `,{"_id":"O2","deliveryId":"C1","deliveryFee":5}]}}`
				if err := h.Handle(ctx, []byte(payload)); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if c := b.Counts(); c.Unassigned != 0 || c.Assigned != 2 || c.Busy != 1 || c.Available != 0 {
					t.Errorf("unexpected counts: %+v", c)
				}
			})
		}
	})

	t.Run("undecodable entry is dropped from the batch", func(t *testing.T) {
		b := newTestBoard()
		h := newTestHandler(b)
		b.SnapshotDashboard(domain.Dashboard{Available: []domain.RawCourier{{ID: []byte(`"C1"`)}}})
		_ = h.Handle(ctx, []byte(`{"event":"newOrder","data":{"order":{"_id":"O1"}}}`))

		_ = h.Handle(ctx, []byte(`{"event":"ordersAssigned","data":{"delivery":{"_id":"C1"},"updatedOrders":[7,{"_id":"O1","deliveryId":"C1"}]}}`))

		s := b.Snapshot()
		if len(s.Assigned) != 1 || s.Assigned[0].ID != "O1" {
			t.Errorf("expected O1 assigned, got %+v", s.Assigned)
		}
		if len(s.Busy) != 1 || s.Busy[0].ID != "C1" {
			t.Errorf("expected C1 busy, got %+v", s.Busy)
		}
	})

	t.Run("orders unassigned moves orders back", func(t *testing.T) {
		b := newTestBoard()
		h := newTestHandler(b)
		_ = h.Handle(ctx, []byte(`{"event":"orderUpdated","data":{"order":{"_id":"O2","deliveryId":"C2"}}}`))

		_ = h.Handle(ctx, []byte(`{"event":"ordersUnassigned","data":{"orders":[{"_id":"O2"}]}}`))

		s := b.Snapshot()
		if len(s.Assigned) != 0 || len(s.Unassigned) != 1 {
			t.Errorf("unexpected views: unassigned=%d assigned=%d", len(s.Unassigned), len(s.Assigned))
		}
	})

	t.Run("courier transitions", func(t *testing.T) {
		b := newTestBoard()
		h := newTestHandler(b)
		b.SnapshotDashboard(domain.Dashboard{
			Busy: []domain.RawCourier{{ID: []byte(`"C1"`)}},
			Out:  []domain.RawCourier{{ID: []byte(`"C2"`)}},
		})

		_ = h.Handle(ctx, []byte(`{"event":"deliveryReturned","data":{"delivery":{"_id":"C1"}}}`))
		_ = h.Handle(ctx, []byte(`{"event":"deliveryAvailable","data":{"delivery":{"_id":"C2"}}}`))

		if c := b.Counts(); c.Available != 2 || c.Busy != 0 || c.Out != 0 {
			t.Errorf("unexpected counts: %+v", c)
		}
	})

	t.Run("bad input is skipped without error", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
		}{
			{name: "not json", payload: `not-json`},
			{name: "unknown event", payload: `{"event":"chatMessage","data":{}}`},
			{name: "missing data", payload: `{"event":"newOrder"}`},
			{name: "malformed data", payload: `{"event":"ordersUnassigned","data":{"orders":"O1"}}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				b := newTestBoard()
				h := newTestHandler(b)

				if err := h.Handle(ctx, []byte(tt.payload)); err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				if c := b.Counts(); c != (board.Counts{}) {
					t.Errorf("expected untouched board, got %+v", c)
				}
			})
		}
	})
}
