package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
	"github.com/joao-fontenele/dispatch-board/internal/messaging"
	"github.com/joao-fontenele/dispatch-board/internal/rabbit"
	"github.com/joao-fontenele/dispatch-board/internal/rooms"
	"github.com/joao-fontenele/dispatch-board/internal/telemetry"
)

// publisher sends one push envelope to room.
type publisher func(ctx context.Context, room string, env domain.Envelope) error

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "dispatch-sim", "0.1.0", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	branchID := os.Getenv("BRANCH_ID")
	if branchID == "" {
		branchID = "branch-" + uuid.NewString()[:8]
	}
	room := rooms.BranchKey(branchID)

	interval := 2 * time.Second
	if v := os.Getenv("SIM_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid SIM_INTERVAL", "error", err)
			os.Exit(1)
		}
		interval = d
	}

	var publish publisher
	switch os.Getenv("PUSH_TRANSPORT") {
	case "amqp":
		amqpURL := os.Getenv("AMQP_URL")
		if amqpURL == "" {
			logger.Error("AMQP_URL environment variable is required")
			os.Exit(1)
		}
		exchange := os.Getenv("AMQP_EXCHANGE")
		if exchange == "" {
			exchange = "dispatch_topic"
		}
		rc, err := rabbit.Dial(amqpURL, exchange)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer func() { _ = rc.Close() }()
		publish = func(ctx context.Context, room string, env domain.Envelope) error {
			return rc.Publish(ctx, room, env.Event, env)
		}
	default:
		kafkaBrokers := os.Getenv("KAFKA_BROKERS")
		if kafkaBrokers == "" {
			logger.Error("KAFKA_BROKERS environment variable is required")
			os.Exit(1)
		}
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "dispatch.events"
		}
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), topic)
		defer func() { _ = producer.Close() }()
		publish = func(ctx context.Context, room string, env domain.Envelope) error {
			return producer.Publish(ctx, room, room, env)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting simulator", "room", room, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sim := newScenario(branchID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, env := range sim.next() {
				env.Room = room
				if err := publish(ctx, room, env); err != nil {
					logger.Error("failed to publish event", "error", err, "event", env.Event)
					continue
				}
				logger.Info("event published", "event", env.Event, "room", room)
			}
		}
	}
}

// scenario cycles one order through the board: created, assigned to a
// courier, delivered, and the courier returned to rotation.
type scenario struct {
	branchID string
	courier  string
	step     int
	orderID  string
	number   int
}

func newScenario(branchID string) *scenario {
	return &scenario{branchID: branchID, courier: uuid.NewString()}
}

func (s *scenario) next() []domain.Envelope {
	defer func() { s.step = (s.step + 1) % 3 }()

	switch s.step {
	case 0:
		s.orderID = uuid.NewString()
		s.number++
		return []domain.Envelope{envelope(domain.EventNewOrder, map[string]any{"order": s.order(false)})}
	case 1:
		return []domain.Envelope{envelope(domain.EventOrdersAssigned, map[string]any{
			"delivery":      s.courierDoc(),
			"updatedOrders": []any{s.order(true)},
		})}
	default:
		return []domain.Envelope{envelope(domain.EventDeliveryReturned, map[string]any{"delivery": s.courierDoc()})}
	}
}

func (s *scenario) order(assigned bool) map[string]any {
	price := decimal.RequireFromString("12.50")
	fee := decimal.RequireFromString("3.00")
	qty := int64(1 + s.number%3)
	subtotal := price.Mul(decimal.NewFromInt(qty))

	o := map[string]any{
		"_id":         s.orderID,
		"type":        domain.OrderKindDelivery,
		"orderNumber": s.number,
		"status":      "PENDING",
		"totalPrice":  subtotal,
		"deliveryFee": fee,
		"grandTotal":  subtotal.Add(fee),
		"createdAt":   time.Now().UTC(),
		"updatedAt":   time.Now().UTC(),
		"branchId":    map[string]any{"_id": s.branchID, "name": "Simulated branch"},
		"items": []map[string]any{
			{"productId": "sim-product", "name": "Simulated meal", "quantity": qty, "price": price},
		},
	}
	if assigned {
		o["deliveryId"] = s.courier
	}
	return o
}

func (s *scenario) courierDoc() map[string]any {
	return map[string]any{"_id": s.courier, "name": "Sim courier", "phone": "+000000000"}
}

func envelope(event string, data any) domain.Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return domain.Envelope{Event: event, Data: raw}
}
