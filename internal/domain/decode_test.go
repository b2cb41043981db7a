package domain

import (
	"encoding/json"
	"testing"
)

func TestRawOrder_UnmarshalJSON(t *testing.T) {
	t.Run("badly typed scalars fall back to zero values", func(t *testing.T) {
		payload := `{
			"_id":"O1","type":"DELIVERY","status":7,
			"totalPrice":"12.5","deliveryFee":"","grandTotal":{},
			"createdAt":"","updatedAt":"2025-01-02T10:00:00Z",
			"deliveryId":"C1",
			"items":[{"productId":"P1","quantity":"2","price":3},"junk",{"productId":"P2","quantity":1,"price":"x"}]
		}`

		var o RawOrder
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if string(o.ID) != `"O1"` || string(o.Courier) != `"C1"` || o.Kind != OrderKindDelivery {
			t.Errorf("unexpected identity fields: %+v", o)
		}
		if o.Status != "" {
			t.Errorf("expected empty status, got %q", o.Status)
		}
		if o.Subtotal.String() != "12.5" || !o.DeliveryFee.IsZero() || !o.GrandTotal.IsZero() {
			t.Errorf("unexpected money: %s %s %s", o.Subtotal, o.DeliveryFee, o.GrandTotal)
		}
		if !o.CreatedAt.IsZero() || o.UpdatedAt.IsZero() {
			t.Errorf("unexpected timestamps: %v %v", o.CreatedAt, o.UpdatedAt)
		}
		if len(o.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(o.Items))
		}
		if o.Items[0].Quantity != 0 || o.Items[0].Price.String() != "3" {
			t.Errorf("unexpected first item: %+v", o.Items[0])
		}
		if o.Items[1].Quantity != 1 || !o.Items[1].Price.IsZero() {
			t.Errorf("unexpected second item: %+v", o.Items[1])
		}
	})

	t.Run("non-object is an error", func(t *testing.T) {
		var o RawOrder
		if err := json.Unmarshal([]byte(`"O1"`), &o); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("null leaves the order empty", func(t *testing.T) {
		var orders []RawOrder
		if err := json.Unmarshal([]byte(`[null,{"_id":"O1"}]`), &orders); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(orders) != 2 || orders[0].ID != nil || string(orders[1].ID) != `"O1"` {
			t.Errorf("unexpected orders: %+v", orders)
		}
	})
}

func TestRawCourier_UnmarshalJSON(t *testing.T) {
	var c RawCourier
	if err := json.Unmarshal([]byte(`{"_id":"C1","name":"Ana","phone":998,"busySince":""}`), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(c.ID) != `"C1"` || c.Name != "Ana" || c.Phone != "" || c.BusySince != nil {
		t.Errorf("unexpected courier: %+v", c)
	}
}
