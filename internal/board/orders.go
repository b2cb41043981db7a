package board

import (
	"fmt"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

// orderStore holds the unassigned and assigned views plus the all-orders index.
// An order id is in exactly one of the two exclusive views at any time.
type orderStore struct {
	views map[View]*keyed[domain.Order]
}

func orderKey(o domain.Order) string { return o.ID }

func newOrderStore() *orderStore {
	return &orderStore{
		views: map[View]*keyed[domain.Order]{
			ViewUnassigned: newKeyed(orderKey),
			ViewAssigned:   newKeyed(orderKey),
			ViewAll:        newKeyed(orderKey),
		},
	}
}

func (s *orderStore) view(v View) (*keyed[domain.Order], error) {
	l, ok := s.views[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidView, v)
	}
	return l, nil
}

// replaceView swaps the contents of v. When v is exclusive, ids it now holds
// are evicted from the other exclusive view and refreshed in the all-orders
// index; nothing else there changes.
func (s *orderStore) replaceView(v View, orders []domain.Order) error {
	l, err := s.view(v)
	if err != nil {
		return err
	}
	kept := orders[:0:0]
	for _, o := range orders {
		if o.ID != "" {
			kept = append(kept, o)
		}
	}
	orders = kept
	l.replace(orders)
	if v.exclusive() {
		other := s.views[v.other()]
		for _, o := range orders {
			other.remove(o.ID)
			s.views[ViewAll].upsert(o)
		}
	}
	return nil
}

// routeOrder places o in the view its courier reference dictates and reports
// whether the id was new to the board.
func (s *orderStore) routeOrder(o domain.Order) bool {
	target := ViewUnassigned
	if o.Assigned() {
		target = ViewAssigned
	}
	_, known := s.lookup(o.ID, target)
	s.views[target].upsert(o)
	s.views[target.other()].remove(o.ID)
	s.views[ViewAll].upsert(o)
	return !known
}

// bulkMigrate moves ids from one exclusive view to the other. patches supplies
// the new body for an id; without one the stored body is moved. The courier
// reference is forced to agree with the destination: courierID for the
// assigned view (falling back to the body's own reference), empty for the
// unassigned view. Unknown ids without a patch are skipped.
func (s *orderStore) bulkMigrate(ids []string, from, to View, patches map[string]domain.Order, courierID string) ([]domain.Order, error) {
	if !from.exclusive() || !to.exclusive() || from == to {
		return nil, fmt.Errorf("%w: migrate %s -> %s", ErrInvalidView, from, to)
	}

	moved := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, ok := patches[id]
		if !ok {
			if o, ok = s.lookup(id, from); !ok {
				continue
			}
		}
		o.ID = id

		switch to {
		case ViewAssigned:
			if courierID != "" {
				o.CourierID = courierID
			}
		case ViewUnassigned:
			o.CourierID = ""
		}

		s.routeOrder(o)
		moved = append(moved, o)
	}
	return moved, nil
}

// lookup prefers the view the caller expects the order in, then checks every view.
func (s *orderStore) lookup(id string, prefer View) (domain.Order, bool) {
	for _, v := range []View{prefer, ViewUnassigned, ViewAssigned, ViewAll} {
		if o, ok := s.views[v].get(id); ok {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (s *orderStore) reset() {
	for _, l := range s.views {
		l.replace(nil)
	}
}

func (s *orderStore) list(v View) []domain.Order {
	l := s.views[v]
	out := make([]domain.Order, 0, l.len())
	l.each(func(o domain.Order) {
		out = append(out, copyOrder(o))
	})
	return out
}

func copyOrder(o domain.Order) domain.Order {
	if o.Items != nil {
		items := make([]domain.LineItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	if o.Number != nil {
		n := make([]byte, len(o.Number))
		copy(n, o.Number)
		o.Number = n
	}
	return o
}
