package domain

import "encoding/json"

type RelationKind string

const (
	RelationBranch   RelationKind = "branch"
	RelationTenant   RelationKind = "tenant"
	RelationCourier  RelationKind = "courier"
	RelationCustomer RelationKind = "customer"
	RelationZone     RelationKind = "zone"
	RelationCashier  RelationKind = "cashier"
	RelationCreator  RelationKind = "creator"
	RelationShift    RelationKind = "shift"
	RelationProduct  RelationKind = "product"
)

// Relation is a relationship field after it has been classified: either
// Populated, carrying the embedded document, or a bare Reference.
type Relation struct {
	ID  string
	Doc json.RawMessage
}

func Reference(id string) Relation {
	return Relation{ID: id}
}

func Populated(id string, doc json.RawMessage) Relation {
	return Relation{ID: id, Doc: doc}
}

func (r Relation) IsPopulated() bool {
	return r.ID != "" && len(r.Doc) > 0
}

func (r Relation) IsZero() bool {
	return r.ID == ""
}
