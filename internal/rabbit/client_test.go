package rabbit

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		room  string
		event string
		want  string
	}{
		{room: "branch_B1", event: "newOrder", want: "branch_B1.newOrder"},
		{room: "tenant_T1", event: "ordersAssigned", want: "tenant_T1.ordersAssigned"},
		{room: "", event: "deliveryReturned", want: "all.deliveryReturned"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RoutingKey(tt.room, tt.event); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if got := bindingKey("branch_B1"); got != "branch_B1.#" {
		t.Errorf("unexpected binding key %q", got)
	}
}

func TestHeaderCarrier(t *testing.T) {
	headers := amqp.Table{"raw": []byte("bytes"), "number": int32(4)}
	c := HeaderCarrier(headers)

	c.Set("traceparent", "00-abc-def-01")

	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("unexpected traceparent %q", got)
	}
	if got := c.Get("raw"); got != "bytes" {
		t.Errorf("expected byte header as string, got %q", got)
	}
	if got := c.Get("number"); got != "" {
		t.Errorf("expected non-string header to read empty, got %q", got)
	}
	if keys := c.Keys(); len(keys) != 3 || keys[2] != "traceparent" {
		t.Errorf("unexpected keys: %v", keys)
	}
	if _, ok := headers["traceparent"]; !ok {
		t.Error("expected Set to write through to the table")
	}
}
