// Package notify turns board changes and backend failures into short
// operator notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Notification struct {
	Level   Level
	Title   string
	Message string
	OrderID string
}

type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// DefaultDebounce is the quiet period after an order notification during
// which further order notifications are dropped.
const DefaultDebounce = 100 * time.Millisecond

// Toaster decides which events deserve a notification and fans them out to
// the sinks from a single goroutine started by Run.
type Toaster struct {
	sinks      []Sink
	operatorID string
	debounce   time.Duration
	now        func() time.Time
	logger     *slog.Logger
	queue      chan Notification

	mu   sync.Mutex
	last time.Time
}

func NewToaster(operatorID string, logger *slog.Logger, sinks ...Sink) *Toaster {
	return &Toaster{
		sinks:      sinks,
		operatorID: operatorID,
		debounce:   DefaultDebounce,
		now:        time.Now,
		logger:     logger,
		queue:      make(chan Notification, 64),
	}
}

// Observe is meant to be passed to board.Board.Subscribe.
func (t *Toaster) Observe(c board.Change) {
	if c.Kind != board.ChangeOrderUpserted || len(c.Orders) != 1 {
		return
	}
	o := c.Orders[0]
	if t.operatorID != "" && o.CashierID == t.operatorID {
		return
	}

	t.mu.Lock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.debounce {
		t.mu.Unlock()
		return
	}
	t.last = now
	t.mu.Unlock()

	title := "Order updated"
	if c.Created {
		title = "New order"
	}
	t.enqueue(Notification{
		Level:   LevelInfo,
		Title:   title,
		Message: orderMessage(o),
		OrderID: o.ID,
	})
}

// ReportError notifies the operator of a failed backend call.
func (t *Toaster) ReportError(_ context.Context, err error) {
	t.enqueue(Notification{
		Level:   LevelError,
		Title:   "Backend request failed",
		Message: err.Error(),
	})
}

func (t *Toaster) enqueue(n Notification) {
	select {
	case t.queue <- n:
	default:
		t.logger.Warn("notification queue full, dropping", "title", n.Title)
	}
}

// Run delivers queued notifications until ctx is done.
func (t *Toaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-t.queue:
			for _, s := range t.sinks {
				if err := s.Send(ctx, n); err != nil {
					t.logger.Error("failed to send notification", "error", err, "title", n.Title)
				}
			}
		}
	}
}

func orderMessage(o domain.Order) string {
	number := strings.Trim(string(o.Number), `"`)
	if number == "" {
		number = o.ID
	}
	if o.Assigned() {
		return fmt.Sprintf("Order #%s is out with courier %s", number, o.CourierID)
	}
	return fmt.Sprintf("Order #%s is waiting for a courier", number)
}

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, n Notification) error {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, n.Title, "message", n.Message, "order_id", n.OrderID)
	return nil
}
