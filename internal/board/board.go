// Package board keeps the delivery board (order views and courier groups)
// consistent under REST snapshots and push events applied in arrival order.
//
// All writes go through the event methods on Board. A single mutex covers
// normalization and routing, so a reader never observes an order removed from
// one view but not yet inserted into the other.
package board

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
	"github.com/joao-fontenele/dispatch-board/internal/normalize"
)

type Board struct {
	mu       sync.Mutex
	orders   *orderStore
	couriers *courierStore
	docs     normalize.Documents

	logger     *slog.Logger
	now        func() time.Time
	strict     bool
	staleGuard bool

	obsMu     sync.Mutex
	observers map[int]func(Change)
	nextObs   int
}

type Option func(*Board)

// WithClock sets the time source used for busySince.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithStrict makes contract violations panic instead of being logged and ignored.
func WithStrict(strict bool) Option {
	return func(b *Board) { b.strict = strict }
}

// WithStaleGuard drops order updates whose updatedAt is older than the stored copy.
func WithStaleGuard(enabled bool) Option {
	return func(b *Board) { b.staleGuard = enabled }
}

func New(logger *slog.Logger, opts ...Option) *Board {
	b := &Board{
		docs:      make(normalize.Documents),
		logger:    logger,
		now:       time.Now,
		observers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.orders = newOrderStore()
	b.couriers = newCourierStore(b.now)
	return b
}

// Subscribe registers fn to be called after every applied event, outside the
// board lock. The returned function removes the subscription.
func (b *Board) Subscribe(fn func(Change)) func() {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	return func() {
		b.obsMu.Lock()
		defer b.obsMu.Unlock()
		delete(b.observers, id)
	}
}

func (b *Board) publish(c Change) {
	b.obsMu.Lock()
	fns := make([]func(Change), 0, len(b.observers))
	for _, fn := range b.observers {
		fns = append(fns, fn)
	}
	b.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (b *Board) violation(err error) {
	if b.strict {
		panic(err)
	}
	b.logger.Warn("contract violation ignored", "error", err)
}

// SnapshotOrders replaces a view with the result of a REST fetch.
func (b *Board) SnapshotOrders(view View, raws []domain.RawOrder) {
	orders, docs := normalize.Orders(raws)

	b.mu.Lock()
	if err := b.orders.replaceView(view, orders); err != nil {
		b.mu.Unlock()
		b.violation(fmt.Errorf("snapshot orders: %w", err))
		return
	}
	b.docs.Merge(docs)
	b.mu.Unlock()

	b.logger.Debug("order view replaced", "view", view.String(), "count", len(orders))
	b.publish(Change{Kind: ChangeOrdersSnapshot, View: view, Orders: orders})
}

// SnapshotDashboard replaces all three courier groups.
func (b *Board) SnapshotDashboard(d domain.Dashboard) {
	available := normalize.Couriers(d.Available)
	busy := normalize.Couriers(d.Busy)
	out := normalize.Couriers(d.Out)

	b.mu.Lock()
	b.couriers.replaceDashboardSnapshot(available, busy, out)
	b.mu.Unlock()

	b.logger.Debug("courier dashboard replaced",
		"available", len(available), "busy", len(busy), "out", len(out))
	b.publish(Change{Kind: ChangeDashboardSnapshot})
}

// OrderCreatedOrUpdated routes a pushed order into the view its courier
// reference dictates. Applying the same payload twice is a no-op the second time.
// It reports whether the order was applied; only the stale guard rejects one.
func (b *Board) OrderCreatedOrUpdated(raw domain.RawOrder) bool {
	res := normalize.Order(raw)
	o := res.Order
	if o.ID == "" {
		b.logger.Warn("order without identifier dropped")
		return false
	}

	b.mu.Lock()
	if b.staleGuard && b.isStale(o) {
		b.mu.Unlock()
		b.logger.Info("stale order update dropped", "order_id", o.ID, "updated_at", o.UpdatedAt)
		return false
	}
	created := b.orders.routeOrder(o)
	b.docs.Merge(res.Documents)
	b.mu.Unlock()

	b.publish(Change{Kind: ChangeOrderUpserted, Orders: []domain.Order{o}, Created: created})
	return true
}

func (b *Board) isStale(o domain.Order) bool {
	if o.UpdatedAt.IsZero() {
		return false
	}
	stored, ok := b.orders.lookup(o.ID, ViewAll)
	if !ok || stored.UpdatedAt.IsZero() {
		return false
	}
	return o.UpdatedAt.Before(stored.UpdatedAt)
}

// OrdersAssigned moves the given orders to the assigned view under courier
// and marks the courier busy, as one transition.
func (b *Board) OrdersAssigned(rawCourier domain.RawCourier, raws []domain.RawOrder) {
	courier := normalize.Courier(rawCourier)
	orders, docs := normalize.Orders(raws)
	ids, patches := byID(orders)

	b.mu.Lock()
	moved, err := b.orders.bulkMigrate(ids, ViewUnassigned, ViewAssigned, patches, courier.ID)
	if err != nil {
		b.mu.Unlock()
		b.violation(fmt.Errorf("orders assigned: %w", err))
		return
	}
	b.docs.Merge(docs)
	var busy *domain.Courier
	if courier.ID != "" {
		c := b.couriers.markBusy(courier)
		busy = &c
	}
	b.mu.Unlock()

	if busy == nil {
		b.logger.Warn("orders assigned without a courier identifier", "orders", len(moved))
	}
	b.publish(Change{Kind: ChangeOrdersAssigned, View: ViewAssigned, Orders: moved, Courier: busy})
}

// OrdersUnassigned moves the given orders back to the unassigned view. Courier
// groups are untouched: the courier may still hold other orders.
func (b *Board) OrdersUnassigned(raws []domain.RawOrder) {
	orders, docs := normalize.Orders(raws)
	ids, patches := byID(orders)

	b.mu.Lock()
	moved, err := b.orders.bulkMigrate(ids, ViewAssigned, ViewUnassigned, patches, "")
	if err != nil {
		b.mu.Unlock()
		b.violation(fmt.Errorf("orders unassigned: %w", err))
		return
	}
	b.docs.Merge(docs)
	b.mu.Unlock()

	b.publish(Change{Kind: ChangeOrdersUnassigned, View: ViewUnassigned, Orders: moved})
}

// CourierReturned moves a busy courier back to available. No-op when the
// courier is not busy.
func (b *Board) CourierReturned(raw domain.RawCourier) bool {
	return b.toAvailable(raw, ChangeCourierReturned, (*courierStore).markAvailable)
}

// CourierSetAvailable moves an out-of-rotation courier to available.
func (b *Board) CourierSetAvailable(raw domain.RawCourier) bool {
	return b.toAvailable(raw, ChangeCourierAvailable, (*courierStore).markOutToAvailable)
}

func (b *Board) toAvailable(raw domain.RawCourier, kind ChangeKind, move func(*courierStore, string, *domain.Courier) (domain.Courier, bool)) bool {
	c := normalize.Courier(raw)
	if c.ID == "" {
		return false
	}
	var body *domain.Courier
	if c.Name != "" {
		body = &c
	}

	b.mu.Lock()
	moved, ok := move(b.couriers, c.ID, body)
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("courier transition skipped", "courier_id", c.ID, "change", string(kind))
		return false
	}
	b.publish(Change{Kind: kind, Courier: &moved})
	return true
}

// Reset clears every view, group and cached document.
func (b *Board) Reset() {
	b.mu.Lock()
	b.orders.reset()
	b.couriers.reset()
	b.docs = make(normalize.Documents)
	b.mu.Unlock()

	b.publish(Change{Kind: ChangeReset})
}

// Snapshot returns a copy of the board that later events do not modify.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	docs := make(normalize.Documents, len(b.docs))
	docs.Merge(b.docs)

	return Snapshot{
		Unassigned: b.orders.list(ViewUnassigned),
		Assigned:   b.orders.list(ViewAssigned),
		All:        b.orders.list(ViewAll),
		Available:  listCouriers(b.couriers.available),
		Busy:       listCouriers(b.couriers.busy),
		Out:        listCouriers(b.couriers.out),
		Documents:  docs,
	}
}

// Orders returns a copy of one view.
func (b *Board) Orders(view View) ([]domain.Order, error) {
	if !view.valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidView, view)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders.list(view), nil
}

// Counts reports the size of every view and group.
func (b *Board) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counts{
		Unassigned: b.orders.views[ViewUnassigned].len(),
		Assigned:   b.orders.views[ViewAssigned].len(),
		All:        b.orders.views[ViewAll].len(),
		Available:  b.couriers.available.len(),
		Busy:       b.couriers.busy.len(),
		Out:        b.couriers.out.len(),
	}
}

func byID(orders []domain.Order) ([]string, map[string]domain.Order) {
	ids := make([]string, 0, len(orders))
	patches := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			continue
		}
		if _, dup := patches[o.ID]; !dup {
			ids = append(ids, o.ID)
		}
		patches[o.ID] = o
	}
	return ids, patches
}
