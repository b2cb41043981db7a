package board

import (
	"errors"
	"fmt"
)

var ErrInvalidView = errors.New("invalid view")

type View int

const (
	ViewUnassigned View = iota + 1
	ViewAssigned
	ViewAll
)

func (v View) String() string {
	switch v {
	case ViewUnassigned:
		return "unassigned"
	case ViewAssigned:
		return "assigned"
	case ViewAll:
		return "all"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

func ParseView(s string) (View, error) {
	switch s {
	case "unassigned":
		return ViewUnassigned, nil
	case "assigned":
		return ViewAssigned, nil
	case "all":
		return ViewAll, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
}

func (v View) valid() bool {
	return v >= ViewUnassigned && v <= ViewAll
}

// exclusive reports whether membership in v is decided by the courier reference.
func (v View) exclusive() bool {
	return v == ViewUnassigned || v == ViewAssigned
}

func (v View) other() View {
	if v == ViewAssigned {
		return ViewUnassigned
	}
	return ViewAssigned
}
