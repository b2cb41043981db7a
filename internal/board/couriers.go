package board

import (
	"time"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

// courierStore keeps three disjoint courier groups. Every mutation removes the
// courier from the groups it is leaving before inserting it anywhere.
type courierStore struct {
	available *keyed[domain.Courier]
	busy      *keyed[domain.Courier]
	out       *keyed[domain.Courier]
	now       func() time.Time
}

func courierKey(c domain.Courier) string { return c.ID }

func newCourierStore(now func() time.Time) *courierStore {
	return &courierStore{
		available: newKeyed(courierKey),
		busy:      newKeyed(courierKey),
		out:       newKeyed(courierKey),
		now:       now,
	}
}

func (s *courierStore) markBusy(c domain.Courier) domain.Courier {
	s.available.remove(c.ID)
	s.out.remove(c.ID)

	if c.BusySince == nil {
		if prev, ok := s.busy.get(c.ID); ok && prev.BusySince != nil {
			c.BusySince = prev.BusySince
		} else {
			t := s.now().UTC()
			c.BusySince = &t
		}
	}
	c.Status = domain.CourierBusy
	s.busy.upsert(c)
	return c
}

// markAvailable moves a busy courier back into rotation. body, when given,
// replaces the stored record. Reports false when the courier was not busy.
func (s *courierStore) markAvailable(id string, body *domain.Courier) (domain.Courier, bool) {
	c, ok := s.busy.remove(id)
	if !ok {
		return domain.Courier{}, false
	}
	return s.toAvailable(c, body), true
}

// markOutToAvailable moves an out-of-rotation courier into rotation.
func (s *courierStore) markOutToAvailable(id string, body *domain.Courier) (domain.Courier, bool) {
	c, ok := s.out.remove(id)
	if !ok {
		return domain.Courier{}, false
	}
	return s.toAvailable(c, body), true
}

func (s *courierStore) toAvailable(c domain.Courier, body *domain.Courier) domain.Courier {
	if body != nil {
		c = *body
	}
	c.Status = domain.CourierAvailable
	c.BusySince = nil
	s.available.remove(c.ID)
	s.available.upsert(c)
	return c
}

// replaceDashboardSnapshot rebuilds all three groups. A courier listed in
// more than one group stays in the first of busy, out, available.
func (s *courierStore) replaceDashboardSnapshot(available, busy, out []domain.Courier) {
	seen := make(map[string]bool, len(available)+len(busy)+len(out))
	pick := func(cs []domain.Courier, status domain.CourierStatus) []domain.Courier {
		kept := make([]domain.Courier, 0, len(cs))
		for _, c := range cs {
			if c.ID == "" || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			c.Status = status
			if status != domain.CourierBusy {
				c.BusySince = nil
			}
			kept = append(kept, c)
		}
		return kept
	}

	s.busy.replace(pick(busy, domain.CourierBusy))
	s.out.replace(pick(out, domain.CourierOutOfRotation))
	s.available.replace(pick(available, domain.CourierAvailable))
}

func (s *courierStore) reset() {
	s.available.replace(nil)
	s.busy.replace(nil)
	s.out.replace(nil)
}

func listCouriers(l *keyed[domain.Courier]) []domain.Courier {
	out := make([]domain.Courier, 0, l.len())
	l.each(func(c domain.Courier) {
		if c.BusySince != nil {
			t := *c.BusySince
			c.BusySince = &t
		}
		out = append(out, c)
	})
	return out
}
