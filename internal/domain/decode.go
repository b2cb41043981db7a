package domain

import (
	"bytes"
	"encoding/json"
)

// Backend payloads are decoded field by field. A field whose value has the
// wrong type is left at its zero value instead of failing the whole record,
// so one bad scalar never costs the rest of an event.

type fields map[string]json.RawMessage

func decodeFields(data []byte) (fields, bool, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, false, nil
	}
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func field[T any](f fields, key string, dst *T) {
	raw, ok := f[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func (o *RawOrder) UnmarshalJSON(data []byte) error {
	f, ok, err := decodeFields(data)
	if err != nil || !ok {
		return err
	}

	var raw RawOrder
	field(f, "_id", &raw.ID)
	field(f, "type", &raw.Kind)
	field(f, "orderNumber", &raw.Number)
	field(f, "status", &raw.Status)
	field(f, "totalPrice", &raw.Subtotal)
	field(f, "deliveryFee", &raw.DeliveryFee)
	field(f, "grandTotal", &raw.GrandTotal)
	field(f, "createdAt", &raw.CreatedAt)
	field(f, "updatedAt", &raw.UpdatedAt)
	field(f, "branchId", &raw.Branch)
	field(f, "tenantId", &raw.Tenant)
	field(f, "deliveryId", &raw.Courier)
	field(f, "customerId", &raw.Customer)
	field(f, "zoneId", &raw.Zone)
	field(f, "cashierId", &raw.Cashier)
	field(f, "createdBy", &raw.Creator)
	field(f, "shiftId", &raw.Shift)

	var items []json.RawMessage
	field(f, "items", &items)
	if items != nil {
		raw.Items = make([]RawLineItem, 0, len(items))
		for _, item := range items {
			var li RawLineItem
			if err := json.Unmarshal(item, &li); err != nil {
				continue
			}
			raw.Items = append(raw.Items, li)
		}
	}

	*o = raw
	return nil
}

func (li *RawLineItem) UnmarshalJSON(data []byte) error {
	f, ok, err := decodeFields(data)
	if err != nil || !ok {
		return err
	}

	var raw RawLineItem
	field(f, "productId", &raw.Product)
	field(f, "name", &raw.Name)
	field(f, "quantity", &raw.Quantity)
	field(f, "price", &raw.Price)

	*li = raw
	return nil
}

func (c *RawCourier) UnmarshalJSON(data []byte) error {
	f, ok, err := decodeFields(data)
	if err != nil || !ok {
		return err
	}

	var raw RawCourier
	field(f, "_id", &raw.ID)
	field(f, "name", &raw.Name)
	field(f, "phone", &raw.Phone)
	field(f, "status", &raw.Status)
	field(f, "busySince", &raw.BusySince)

	*c = raw
	return nil
}
