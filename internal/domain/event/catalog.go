package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrDuplicateID = errors.New("duplicate event id")

// Catalog is the immutable, ordered set of records loaded for a session.
type Catalog struct {
	records []Record
	index   map[string]int
}

// NewCatalog validates the records and builds the id index. Input order is
// preserved and is the base order for stable sorting.
func NewCatalog(records []Record) (*Catalog, error) {
	c := &Catalog{
		records: make([]Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		c.index[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return c, nil
}

// ByID looks up a record by id.
func (c *Catalog) ByID(id string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Events returns a copy of all records in load order.
func (c *Catalog) Events() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Cities returns the distinct city names, sorted case-insensitively.
func (c *Catalog) Cities() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var cities []string
	for _, r := range c.records {
		key := strings.ToLower(r.City)
		if r.City == "" || seen[key] {
			continue
		}
		seen[key] = true
		cities = append(cities, r.City)
	}
	sort.Slice(cities, func(i, j int) bool {
		return strings.ToLower(cities[i]) < strings.ToLower(cities[j])
	})
	return cities
}

// Price resolves the current unit price of an event. It satisfies the
// price lookup used by cart totals.
func (c *Catalog) Price(id string) (float64, bool) {
	r, ok := c.ByID(id)
	if !ok {
		return 0, false
	}
	return r.PriceFrom, true
}

// Stock resolves the current orderable stock and sold-out flag of an event.
func (c *Catalog) Stock(id string) (stock int, soldOut bool, ok bool) {
	r, found := c.ByID(id)
	if !found {
		return 0, false, false
	}
	return r.Stock, r.SoldOut, true
}
