package view

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/cartelera/internal/domain/event"
)

// URL parameter keys.
const (
	KeyView     = "view"
	KeyQuery    = "query"
	KeyCategory = "cat"
	KeyCity     = "city"
	KeyMinPrice = "minPrice"
	KeyMaxPrice = "maxPrice"
	KeyMinDate  = "minDate"
	KeyMaxDate  = "maxDate"
	KeyStatus   = "status"
	KeySort     = "sort"
	KeyPage     = "page"
)

// Keys lists every parameter in canonical order.
var Keys = []string{
	KeyView, KeyQuery, KeyCategory, KeyCity,
	KeyMinPrice, KeyMaxPrice, KeyMinDate, KeyMaxDate,
	KeyStatus, KeySort, KeyPage,
}

const (
	categorySeparator = ","
	dateLayout        = "2006-01-02"
)

// Encode projects a state onto flat URL parameters. Every key is present;
// unset values encode as the empty string.
func Encode(s State) map[string]string {
	s = s.Normalize()

	cats := make([]string, len(s.Filters.Categories))
	for i, c := range s.Filters.Categories {
		cats[i] = string(c)
	}

	return map[string]string{
		KeyView:     string(s.Mode),
		KeyQuery:    s.Query,
		KeyCategory: strings.Join(cats, categorySeparator),
		KeyCity:     s.Filters.City,
		KeyMinPrice: formatPrice(s.Filters.MinPrice),
		KeyMaxPrice: formatPrice(s.Filters.MaxPrice),
		KeyMinDate:  formatDate(s.Filters.MinDate),
		KeyMaxDate:  formatDate(s.Filters.MaxDate),
		KeyStatus:   string(s.Filters.Status),
		KeySort:     s.Sort.String(),
		KeyPage:     strconv.Itoa(s.Page),
	}
}

// Decode rebuilds a state from URL parameters. It never fails: missing,
// empty or malformed values take their defaults.
func Decode(params map[string]string) State {
	s := Default()

	if params[KeyView] == string(ModeList) {
		s.Mode = ModeList
	}
	s.Query = params[KeyQuery]
	s.Filters.Categories = decodeCategories(params[KeyCategory])
	s.Filters.City = params[KeyCity]
	s.Filters.MinPrice = parsePrice(params[KeyMinPrice])
	s.Filters.MaxPrice = parsePrice(params[KeyMaxPrice])
	s.Filters.MinDate = parseDate(params[KeyMinDate])
	s.Filters.MaxDate = parseDate(params[KeyMaxDate])
	s.Filters.Status = parseStatus(params[KeyStatus])
	s.Sort = parseSort(params[KeySort])
	s.Page = parsePage(params[KeyPage])

	return s
}

// Values converts a state into url.Values.
func Values(s State) url.Values {
	v := make(url.Values, len(Keys))
	for k, val := range Encode(s) {
		v.Set(k, val)
	}
	return v
}

// FromValues decodes url.Values, using the first value of each key.
func FromValues(v url.Values) State {
	params := make(map[string]string, len(v))
	for k := range v {
		params[k] = v.Get(k)
	}
	return Decode(params)
}

// QueryString renders the canonical query string, keys in Keys order.
func QueryString(s State) string {
	params := Encode(s)
	var b strings.Builder
	for i, k := range Keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

func decodeCategories(raw string) []event.Category {
	var out []event.Category
	seen := make(map[event.Category]bool)
	for _, token := range strings.Split(raw, categorySeparator) {
		c, ok := event.ParseCategory(token)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func parsePrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(dateLayout)
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil
	}
	return &d
}

func parseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return StatusAvailable
	case "soldout", "sold_out":
		return StatusSoldOut
	default:
		return StatusAny
	}
}

func parseSort(raw string) Sort {
	field, dir, ok := strings.Cut(raw, "_")
	if !ok {
		return DefaultSort
	}
	s := Sort{Field: SortField(field), Direction: Direction(dir)}
	if !validSort(s) {
		return DefaultSort
	}
	return s
}

func parsePage(raw string) int {
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || p < 1 {
		return 1
	}
	return p
}
