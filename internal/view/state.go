// Package view holds the catalog view state and its URL representation.
//
// The URL is the source of truth between navigations: a State is decoded
// from the route parameters on every entry, changed only through Reduce,
// and encoded back after every change.
package view

import (
	"time"

	"github.com/example/cartelera/internal/domain/event"
)

// DefaultPageSize is the fixed number of events per catalog page.
const DefaultPageSize = 12

type Mode string

const (
	ModeGrid Mode = "grid"
	ModeList Mode = "list"
)

type Status string

const (
	StatusAny       Status = ""
	StatusAvailable Status = "available"
	StatusSoldOut   Status = "soldout"
)

type SortField string

const (
	SortByDate       SortField = "date"
	SortByPrice      SortField = "price"
	SortByPopularity SortField = "popularity"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort is date ascending.
var DefaultSort = Sort{Field: SortByDate, Direction: Asc}

func (s Sort) String() string {
	return string(s.Field) + "_" + string(s.Direction)
}

// Filters are the structured catalog constraints. Nil bounds are unset.
// Dates are calendar days at UTC midnight.
type Filters struct {
	Categories []event.Category `json:"categories"`
	City       string           `json:"city"`
	MinPrice   *float64         `json:"minPrice,omitempty"`
	MaxPrice   *float64         `json:"maxPrice,omitempty"`
	MinDate    *time.Time       `json:"minDate,omitempty"`
	MaxDate    *time.Time       `json:"maxDate,omitempty"`
	Status     Status           `json:"status"`
}

// IsZero reports whether no filter constraint is set.
func (f Filters) IsZero() bool {
	return len(f.Categories) == 0 && f.City == "" &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinDate == nil && f.MaxDate == nil &&
		f.Status == StatusAny
}

// State is everything the catalog page shows.
type State struct {
	Query    string  `json:"query"`
	Filters  Filters `json:"filters"`
	Sort     Sort    `json:"sort"`
	Mode     Mode    `json:"view"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Default is the state of a bare catalog route.
func Default() State {
	return State{
		Sort:     DefaultSort,
		Mode:     ModeGrid,
		Page:     1,
		PageSize: DefaultPageSize,
	}
}

// Normalize fixes out-of-domain values instead of rejecting them.
func (s State) Normalize() State {
	if s.Page < 1 {
		s.Page = 1
	}
	if s.PageSize < 1 {
		s.PageSize = DefaultPageSize
	}
	if s.Mode != ModeList {
		s.Mode = ModeGrid
	}
	if !validSort(s.Sort) {
		s.Sort = DefaultSort
	}
	switch s.Filters.Status {
	case StatusAvailable, StatusSoldOut:
	default:
		s.Filters.Status = StatusAny
	}
	return s
}

func validSort(s Sort) bool {
	switch s.Field {
	case SortByDate, SortByPrice, SortByPopularity:
	default:
		return false
	}
	return s.Direction == Asc || s.Direction == Desc
}

// Date returns a calendar day pointer, for building filters.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// Price returns a price bound pointer, for building filters.
func Price(v float64) *float64 {
	return &v
}
