// Package rabbit is the AMQP push transport: one topic exchange, one
// exclusive queue per board instance, one binding per joined room.
package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("rabbit")

const broadcastRoom = "all"

type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string

	mu sync.Mutex
}

// Dial connects, declares the topic exchange and a server-named exclusive
// queue that the broker drops when the connection closes. The queue starts
// bound to broadcasts only.
func Dial(url, exchange string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, bindingKey(broadcastRoom), exchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bind broadcasts: %w", err)
	}

	return &Client{conn: conn, ch: ch, exchange: exchange, queue: q.Name}, nil
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}
	return nil
}

// RoutingKey is the key an event for room is published with.
func RoutingKey(room, event string) string {
	if room == "" {
		room = broadcastRoom
	}
	return room + "." + event
}

func bindingKey(room string) string {
	return room + ".#"
}

// Subscribe binds the instance queue to every event of room.
func (c *Client) Subscribe(_ context.Context, room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch.QueueBind(c.queue, bindingKey(room), c.exchange, false, nil)
}

func (c *Client) Unsubscribe(_ context.Context, room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch.QueueUnbind(c.queue, bindingKey(room), c.exchange, nil)
}

// Publish sends event to room. An empty room reaches every instance.
func (c *Client) Publish(ctx context.Context, room, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	key := RoutingKey(room, event)

	ctx, span := tracer.Start(ctx, "send "+c.exchange,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(c.exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(key),
			attribute.String("dispatch.room", room),
		),
	)
	defer span.End()

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier(headers))

	c.mu.Lock()
	err = c.ch.PublishWithContext(ctx, c.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	c.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Consume delivers message bodies to handler until ctx is cancelled or the
// channel closes. A handler error is recorded and the message is still acked:
// push events are never redelivered.
func (c *Client) Consume(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error {
	if err := c.ch.Qos(32, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(c.queue, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.process(ctx, d, handler)
			if err := d.Ack(false); err != nil {
				return fmt.Errorf("ack delivery: %w", err)
			}
		}
	}
}

func (c *Client) process(ctx context.Context, d amqp.Delivery, handler func(ctx context.Context, payload []byte) error) {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(d.Headers))

	spanCtx, span := tracer.Start(parentCtx, "process "+c.exchange,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(d.RoutingKey),
		),
	)
	defer span.End()

	if err := handler(spanCtx, d.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
