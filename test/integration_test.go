//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
	"github.com/joao-fontenele/dispatch-board/internal/messaging"
	"github.com/joao-fontenele/dispatch-board/internal/push"
	"github.com/joao-fontenele/dispatch-board/internal/rabbit"
	"github.com/joao-fontenele/dispatch-board/internal/rooms"
)

func newOrderEnvelope(t *testing.T, room, orderID, courierID string) domain.Envelope {
	t.Helper()
	order := map[string]any{"_id": orderID, "branchId": map[string]any{"_id": "B1", "name": "Main"}}
	if courierID != "" {
		order["deliveryId"] = courierID
	}
	data, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		t.Fatalf("failed to marshal order: %v", err)
	}
	return domain.Envelope{Event: domain.EventNewOrder, Room: room, Data: data}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestKafkaConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	if len(brokers) == 0 {
		t.Fatal("expected at least one broker")
	}

	t.Logf("kafka brokers: %v", brokers)
}

func TestKafkaPushFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	topic := "dispatch.events"

	producer := messaging.NewProducer(brokers, topic)
	defer func() { _ = producer.Close() }()

	filter := messaging.NewRoomFilter()
	roomManager := rooms.NewManager(filter, logger)
	if err := roomManager.Join(ctx, rooms.BranchKey("B1")); err != nil {
		t.Fatalf("failed to join room: %v", err)
	}

	b := board.New(logger)
	handler := push.NewHandler(b, logger)

	consumer := messaging.NewConsumer(brokers, topic, "dispatch-board-test",
		messaging.WithStartOffset(kafka.FirstOffset),
		messaging.WithRoomFilter(filter),
	)
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() { _ = consumer.Consume(consumeCtx, handler.Handle) }()

	events := []domain.Envelope{
		newOrderEnvelope(t, "branch_B2", "O-other", ""),
		newOrderEnvelope(t, "branch_B1", "O1", ""),
		newOrderEnvelope(t, "branch_B1", "O2", ""),
		newOrderEnvelope(t, "branch_B1", "O1", "C1"),
	}
	for _, env := range events {
		if err := producer.Publish(ctx, env.Room, env.Room, env); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}
	}

	waitFor(t, time.Minute, func() bool {
		c := b.Counts()
		return c.Assigned == 1 && c.Unassigned == 1
	})

	s := b.Snapshot()
	if s.Assigned[0].ID != "O1" || s.Unassigned[0].ID != "O2" {
		t.Fatalf("unexpected views: unassigned=%+v assigned=%+v", s.Unassigned, s.Assigned)
	}
	for _, o := range s.All {
		if o.ID == "O-other" {
			t.Fatal("expected event for another branch to be filtered")
		}
	}
}

func TestAMQPPushFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	url, cleanup := SetupRabbitMQ(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exchange := "dispatch_topic"

	consumerClient, err := rabbit.Dial(url, exchange)
	if err != nil {
		t.Fatalf("failed to dial rabbitmq: %v", err)
	}
	defer func() { _ = consumerClient.Close() }()

	publisher, err := rabbit.Dial(url, exchange)
	if err != nil {
		t.Fatalf("failed to dial rabbitmq: %v", err)
	}
	defer func() { _ = publisher.Close() }()

	roomManager := rooms.NewManager(consumerClient, logger)
	if err := roomManager.Join(ctx, rooms.TenantKey("T1")); err != nil {
		t.Fatalf("failed to join room: %v", err)
	}

	b := board.New(logger)
	handler := push.NewHandler(b, logger)

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() { _ = consumerClient.Consume(consumeCtx, handler.Handle) }()

	publish := func(env domain.Envelope) {
		t.Helper()
		if err := publisher.Publish(ctx, env.Room, env.Event, env); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}
	}

	publish(newOrderEnvelope(t, "tenant_T2", "O-other", ""))
	publish(newOrderEnvelope(t, "tenant_T1", "O1", ""))

	waitFor(t, 30*time.Second, func() bool { return b.Counts().Unassigned == 1 })

	assigned, err := json.Marshal(map[string]any{
		"delivery":      map[string]any{"_id": "C1", "name": "Ana"},
		"updatedOrders": []any{map[string]any{"_id": "O1", "deliveryId": "C1"}},
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	publish(domain.Envelope{Event: domain.EventOrdersAssigned, Room: "tenant_T1", Data: assigned})

	waitFor(t, 30*time.Second, func() bool {
		c := b.Counts()
		return c.Assigned == 1 && c.Busy == 1
	})

	if err := roomManager.Leave(ctx, rooms.TenantKey("T1")); err != nil {
		t.Fatalf("failed to leave room: %v", err)
	}
	publish(newOrderEnvelope(t, "tenant_T1", "O3", ""))

	time.Sleep(time.Second)
	if c := b.Counts(); c.All != 1 {
		t.Fatalf("expected no events after leaving the room, got %+v", c)
	}
}
