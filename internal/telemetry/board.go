package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/dispatch-board/internal/board"
)

// RegisterBoardMetrics counts applied board events by kind and reports the
// size of every view and courier group as gauges. The returned function
// stops both.
func RegisterBoardMetrics(mp metric.MeterProvider, b *board.Board) (func() error, error) {
	meter := mp.Meter("dispatch-board/board")

	events, err := meter.Int64Counter("board.events",
		metric.WithDescription("Board events applied, by change kind"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	size, err := meter.Int64ObservableGauge("board.collection.size",
		metric.WithDescription("Entries currently held in each order view and courier group"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		c := b.Counts()
		observe := func(name string, n int) {
			o.ObserveInt64(size, int64(n), metric.WithAttributes(attribute.String("collection", name)))
		}
		observe("unassigned", c.Unassigned)
		observe("assigned", c.Assigned)
		observe("all", c.All)
		observe("available", c.Available)
		observe("busy", c.Busy)
		observe("out", c.Out)
		return nil
	}, size)
	if err != nil {
		return nil, err
	}

	unsubscribe := b.Subscribe(func(c board.Change) {
		events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(c.Kind))))
	})

	return func() error {
		unsubscribe()
		return reg.Unregister()
	}, nil
}
