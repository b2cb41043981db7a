package snapshot

import (
	"encoding/json"

	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

func rawOrder(payload string) domain.RawOrder {
	var raw domain.RawOrder
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		panic(err)
	}
	return raw
}

func rawCourier(id string) domain.RawCourier {
	return domain.RawCourier{ID: quoted(id)}
}

func dashboardWithOut(ids ...string) domain.Dashboard {
	d := domain.Dashboard{}
	for _, id := range ids {
		d.Out = append(d.Out, rawCourier(id))
	}
	return d
}
