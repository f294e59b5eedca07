package view

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownAction = errors.New("unknown view action")

// Action is a discrete user intent applied to a State.
type Action interface {
	apply(State) State
}

// ApplyFilters replaces the text query and filters and returns to page 1.
type ApplyFilters struct {
	Query   string
	Filters Filters
}

// ClearFilters drops the text query and every filter. Sort and view mode
// are kept.
type ClearFilters struct{}

// ChangePage moves to a page. Values above the page count are clamped when
// the page is rendered.
type ChangePage struct {
	Page int
}

// ToggleView switches between grid and list.
type ToggleView struct{}

// SetSort changes the ordering and returns to page 1.
type SetSort struct {
	Sort Sort
}

func (a ApplyFilters) apply(s State) State {
	s.Query = a.Query
	s.Filters = a.Filters
	s.Page = 1
	return s
}

func (ClearFilters) apply(s State) State {
	s.Query = ""
	s.Filters = Filters{}
	s.Page = 1
	return s
}

func (a ChangePage) apply(s State) State {
	s.Page = a.Page
	return s
}

func (ToggleView) apply(s State) State {
	if s.Mode == ModeList {
		s.Mode = ModeGrid
	} else {
		s.Mode = ModeList
	}
	return s
}

func (a SetSort) apply(s State) State {
	s.Sort = a.Sort
	s.Page = 1
	return s
}

// Reduce returns the state that results from applying action to s. The
// input is not modified.
func Reduce(s State, action Action) State {
	if action == nil {
		return s.Normalize()
	}
	return action.apply(s.Normalize()).Normalize()
}

// Action type names accepted by ParseAction.
const (
	ActionApplyFilters = "apply_filters"
	ActionClearFilters = "clear_filters"
	ActionChangePage   = "change_page"
	ActionToggleView   = "toggle_view"
	ActionSetSort      = "set_sort"
)

// ParseAction builds an Action from its type name and string parameters,
// the shape produced by form controls. Filter parameters use the URL keys.
func ParseAction(kind string, params map[string]string) (Action, error) {
	switch kind {
	case ActionApplyFilters:
		decoded := Decode(params)
		return ApplyFilters{Query: decoded.Query, Filters: decoded.Filters}, nil
	case ActionClearFilters:
		return ClearFilters{}, nil
	case ActionChangePage:
		page, err := strconv.Atoi(params[KeyPage])
		if err != nil {
			page = 1
		}
		return ChangePage{Page: page}, nil
	case ActionToggleView:
		return ToggleView{}, nil
	case ActionSetSort:
		return SetSort{Sort: parseSort(params[KeySort])}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
}
