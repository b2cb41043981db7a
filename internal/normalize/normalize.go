// Package normalize reduces backend order and courier payloads, whose
// relationship fields may be embedded documents or bare identifiers, to a
// canonical shape keyed by identifier.
package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

// Documents holds the embedded documents seen while normalizing, by kind then
// identifier. Renderers use it as a display cache.
type Documents map[domain.RelationKind]map[string]json.RawMessage

func (d Documents) add(kind domain.RelationKind, rel domain.Relation) {
	if !rel.IsPopulated() {
		return
	}
	byID, ok := d[kind]
	if !ok {
		byID = make(map[string]json.RawMessage)
		d[kind] = byID
	}
	byID[rel.ID] = rel.Doc
}

// Merge copies every document of other into d, overwriting on conflict.
func (d Documents) Merge(other Documents) {
	for kind, byID := range other {
		for id, doc := range byID {
			d.add(kind, domain.Populated(id, doc))
		}
	}
}

type Result struct {
	Order     domain.Order
	Documents Documents
}

// Order never fails: a relationship it cannot classify comes out empty.
func Order(raw domain.RawOrder) Result {
	docs := make(Documents)

	rel := func(kind domain.RelationKind, field json.RawMessage) string {
		r := Relation(field)
		docs.add(kind, r)
		return r.ID
	}

	order := domain.Order{
		ID:          Relation(raw.ID).ID,
		Kind:        raw.Kind,
		Number:      nonNull(raw.Number),
		Status:      raw.Status,
		Subtotal:    raw.Subtotal,
		DeliveryFee: raw.DeliveryFee,
		GrandTotal:  raw.GrandTotal,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
		BranchID:    rel(domain.RelationBranch, raw.Branch),
		TenantID:    rel(domain.RelationTenant, raw.Tenant),
		CourierID:   rel(domain.RelationCourier, raw.Courier),
		CustomerID:  rel(domain.RelationCustomer, raw.Customer),
		ZoneID:      rel(domain.RelationZone, raw.Zone),
		CashierID:   rel(domain.RelationCashier, raw.Cashier),
		CreatedBy:   rel(domain.RelationCreator, raw.Creator),
		ShiftID:     rel(domain.RelationShift, raw.Shift),
	}

	if raw.Items != nil {
		order.Items = make([]domain.LineItem, 0, len(raw.Items))
		for _, item := range raw.Items {
			order.Items = append(order.Items, domain.LineItem{
				ProductID: rel(domain.RelationProduct, item.Product),
				Name:      item.Name,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}
	}

	return Result{Order: order, Documents: docs}
}

// Orders normalizes a batch, merging every embedded document into one cache.
func Orders(raws []domain.RawOrder) ([]domain.Order, Documents) {
	docs := make(Documents)
	orders := make([]domain.Order, 0, len(raws))
	for _, raw := range raws {
		res := Order(raw)
		docs.Merge(res.Documents)
		orders = append(orders, res.Order)
	}
	return orders, docs
}

func Courier(raw domain.RawCourier) domain.Courier {
	return domain.Courier{
		ID:        Relation(raw.ID).ID,
		Name:      raw.Name,
		Phone:     raw.Phone,
		Status:    raw.Status,
		BusySince: raw.BusySince,
	}
}

func Couriers(raws []domain.RawCourier) []domain.Courier {
	couriers := make([]domain.Courier, 0, len(raws))
	for _, raw := range raws {
		couriers = append(couriers, Courier(raw))
	}
	return couriers
}

type identified struct {
	ID json.RawMessage `json:"_id"`
}

// Relation classifies a single relationship field. A JSON string is a
// Reference; an object whose _id is a non-empty string is Populated; anything
// else is the zero Relation.
func Relation(field json.RawMessage) domain.Relation {
	field = bytes.TrimSpace(field)
	if len(field) == 0 {
		return domain.Relation{}
	}

	switch field[0] {
	case '"':
		var id string
		if err := json.Unmarshal(field, &id); err != nil {
			return domain.Relation{}
		}
		return domain.Reference(id)
	case '{':
		var obj identified
		if err := json.Unmarshal(field, &obj); err != nil {
			return domain.Relation{}
		}
		inner := Relation(obj.ID)
		if inner.IsZero() || inner.IsPopulated() {
			return domain.Relation{}
		}
		doc := make(json.RawMessage, len(field))
		copy(doc, field)
		return domain.Populated(inner.ID, doc)
	default:
		return domain.Relation{}
	}
}

func nonNull(field json.RawMessage) json.RawMessage {
	field = bytes.TrimSpace(field)
	if len(field) == 0 || bytes.Equal(field, []byte("null")) {
		return nil
	}
	out := make(json.RawMessage, len(field))
	copy(out, field)
	return out
}
