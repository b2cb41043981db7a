package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

type Board interface {
	SnapshotOrders(view board.View, raws []domain.RawOrder)
	SnapshotDashboard(d domain.Dashboard)
	OrdersAssigned(courier domain.RawCourier, orders []domain.RawOrder)
	OrdersUnassigned(orders []domain.RawOrder)
	CourierReturned(courier domain.RawCourier) bool
	CourierSetAvailable(courier domain.RawCourier) bool
	Reset()
}

// Reporter receives failures the operator should see.
type Reporter interface {
	ReportError(ctx context.Context, err error)
}

// Loader seeds the board from REST snapshots and runs operator actions
// against the backend, applying each response as the matching board event.
type Loader struct {
	client   *Client
	board    Board
	reporter Reporter
	branchID string
	logger   *slog.Logger
}

func NewLoader(client *Client, b Board, reporter Reporter, branchID string, logger *slog.Logger) *Loader {
	return &Loader{
		client:   client,
		board:    b,
		reporter: reporter,
		branchID: branchID,
		logger:   logger,
	}
}

// Refresh fetches the three snapshots concurrently and applies each one that
// succeeds. A fetch that fails leaves its part of the board untouched; a
// result that arrives after ctx is done is discarded. There are no retries.
func (l *Loader) Refresh(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		orders, err := l.client.UnassignedOrders(ctx, l.branchID)
		if err != nil {
			return fmt.Errorf("fetch unassigned orders: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.board.SnapshotOrders(board.ViewUnassigned, orders)
		return nil
	})

	g.Go(func() error {
		orders, err := l.client.AssignedOrders(ctx)
		if err != nil {
			return fmt.Errorf("fetch assigned orders: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.board.SnapshotOrders(board.ViewAssigned, orders)
		return nil
	})

	g.Go(func() error {
		d, err := l.client.Dashboard(ctx)
		if err != nil {
			return fmt.Errorf("fetch courier dashboard: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.board.SnapshotDashboard(d)
		return nil
	})

	if err := g.Wait(); err != nil {
		return l.fail(ctx, err)
	}

	l.logger.InfoContext(ctx, "board refreshed")
	return nil
}

// Run refreshes every interval until ctx is done. Failures are reported and
// the loop keeps going.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = l.Refresh(ctx)
		}
	}
}

func (l *Loader) ReturnCourier(ctx context.Context, courierID string) error {
	c, err := l.client.ReturnCourier(ctx, courierID)
	if err != nil {
		return l.fail(ctx, fmt.Errorf("return courier %s: %w", courierID, err))
	}
	if len(c.ID) == 0 {
		c.ID = quoted(courierID)
	}
	l.board.CourierReturned(c)
	return nil
}

func (l *Loader) SetCourierAvailable(ctx context.Context, courierID string) error {
	c, err := l.client.SetCourierAvailable(ctx, courierID)
	if err != nil {
		return l.fail(ctx, fmt.Errorf("set courier %s available: %w", courierID, err))
	}
	if len(c.ID) == 0 {
		c.ID = quoted(courierID)
	}
	l.board.CourierSetAvailable(c)
	return nil
}

// AssignOrders applies the backend answer when it carries the updated
// orders. Otherwise the ordersAssigned push event does the work.
func (l *Loader) AssignOrders(ctx context.Context, orderIDs []string, courierID string) error {
	resp, err := l.client.AssignOrders(ctx, orderIDs, courierID)
	if err != nil {
		return l.fail(ctx, fmt.Errorf("assign orders to %s: %w", courierID, err))
	}
	if len(resp.UpdatedOrders) == 0 {
		return nil
	}
	if len(resp.Courier.ID) == 0 {
		resp.Courier.ID = quoted(courierID)
	}
	l.board.OrdersAssigned(resp.Courier, resp.UpdatedOrders)
	return nil
}

func (l *Loader) UnassignOrders(ctx context.Context, orderIDs []string) error {
	orders, err := l.client.UnassignOrders(ctx, orderIDs)
	if err != nil {
		return l.fail(ctx, fmt.Errorf("unassign orders: %w", err))
	}
	if len(orders) > 0 {
		l.board.OrdersUnassigned(orders)
	}
	return nil
}

// fail reports err. An expired session also clears the board, since nothing
// on it can be trusted until the operator signs in again.
func (l *Loader) fail(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, ErrSessionExpired) {
		l.board.Reset()
	}
	l.logger.ErrorContext(ctx, "backend request failed", "error", err)
	if l.reporter != nil {
		l.reporter.ReportError(ctx, err)
	}
	return err
}

// quoted encodes id as the JSON string the backend would have sent.
func quoted(id string) json.RawMessage {
	b, _ := json.Marshal(id)
	return b
}
