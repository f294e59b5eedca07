package query

import (
	"sort"
	"strings"
	"time"

	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/view"
)

// PageSize is the fixed number of events on a catalog page.
const PageSize = view.DefaultPageSize

// Result is one rendered catalog page.
type Result struct {
	Items     []event.Record `json:"items"`
	Total     int            `json:"total"`
	PageCount int            `json:"pageCount"`
	Page      int            `json:"page"`
}

// Run filters, sorts and paginates the catalog for a view state. It does no
// I/O and never fails: out-of-range pages are clamped.
func Run(catalog *event.Catalog, s view.State) Result {
	s = s.Normalize()

	matched := Filter(catalog.Events(), s.Query, s.Filters)
	SortRecords(matched, s.Sort)

	pageCount := (len(matched) + s.PageSize - 1) / s.PageSize
	if pageCount < 1 {
		pageCount = 1
	}
	page := s.Page
	if page > pageCount {
		page = pageCount
	}

	start := (page - 1) * s.PageSize
	end := start + s.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	items := make([]event.Record, end-start)
	copy(items, matched[start:end])

	return Result{
		Items:     items,
		Total:     len(matched),
		PageCount: pageCount,
		Page:      page,
	}
}

// Filter keeps the records satisfying every constraint, in input order.
func Filter(records []event.Record, text string, f view.Filters) []event.Record {
	p := newPredicate(text, f)
	out := make([]event.Record, 0, len(records))
	for _, r := range records {
		if p.match(r) {
			out = append(out, r)
		}
	}
	return out
}

type predicate struct {
	text       string
	categories map[event.Category]struct{}
	city       string
	minPrice   *float64
	maxPrice   *float64
	from       *time.Time
	before     *time.Time
	status     view.Status
}

func newPredicate(text string, f view.Filters) predicate {
	p := predicate{
		text:     strings.ToLower(strings.TrimSpace(text)),
		city:     strings.TrimSpace(f.City),
		minPrice: f.MinPrice,
		maxPrice: f.MaxPrice,
		from:     f.MinDate,
		status:   f.Status,
	}
	if len(f.Categories) > 0 {
		p.categories = make(map[event.Category]struct{}, len(f.Categories))
		for _, c := range f.Categories {
			p.categories[c] = struct{}{}
		}
	}
	if f.MaxDate != nil {
		next := NextDay(*f.MaxDate)
		p.before = &next
	}
	return p
}

func (p predicate) match(r event.Record) bool {
	if p.text != "" && !strings.Contains(r.SearchText(), p.text) {
		return false
	}
	if p.categories != nil {
		if _, ok := p.categories[r.Category]; !ok {
			return false
		}
	}
	if p.city != "" && !strings.EqualFold(p.city, strings.TrimSpace(r.City)) {
		return false
	}
	if p.minPrice != nil && r.PriceFrom < *p.minPrice {
		return false
	}
	if p.maxPrice != nil && r.PriceFrom > *p.maxPrice {
		return false
	}
	if p.from != nil && r.Datetime.Before(*p.from) {
		return false
	}
	if p.before != nil && !r.Datetime.Before(*p.before) {
		return false
	}
	switch p.status {
	case view.StatusAvailable:
		return !r.SoldOut
	case view.StatusSoldOut:
		return r.SoldOut
	}
	return true
}

// NextDay is midnight UTC following the calendar day containing d. A
// maxDate bound keeps every instant strictly before it.
func NextDay(d time.Time) time.Time {
	y, m, day := d.UTC().Date()
	return time.Date(y, m, day+1, 0, 0, 0, 0, time.UTC)
}

// SortRecords orders records in place by the sort field. Equal keys keep
// their input order.
func SortRecords(records []event.Record, s view.Sort) {
	less := func(a, b event.Record) bool {
		switch s.Field {
		case view.SortByPrice:
			return a.PriceFrom < b.PriceFrom
		case view.SortByPopularity:
			return a.Popularity < b.Popularity
		default:
			return a.Datetime.Before(b.Datetime)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if s.Direction == view.Desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
