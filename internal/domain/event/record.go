package event

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event record")
)

type Category string

const (
	CategoryMusic    Category = "musica"
	CategoryTheatre  Category = "teatro"
	CategoryFestival Category = "festival"
	CategoryStandup  Category = "standup"
	CategoryOther    Category = "otros"
)

// Categories lists the closed set of category tokens in display order.
var Categories = []Category{
	CategoryMusic,
	CategoryTheatre,
	CategoryFestival,
	CategoryStandup,
	CategoryOther,
}

// ParseCategory returns the category for a token, false if the token is not
// part of the enumerated set.
func ParseCategory(token string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(token)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

type Policies struct {
	Age    string `json:"age,omitempty" yaml:"age,omitempty"`
	Refund string `json:"refund,omitempty" yaml:"refund,omitempty"`
}

// Record is one catalog entry. Records are immutable after load.
//
// SoldOut and Stock are enforced independently: SoldOut blocks purchases,
// Stock caps the orderable quantity.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Category    Category  `json:"category" yaml:"category"`
	City        string    `json:"city" yaml:"city"`
	Venue       string    `json:"venue" yaml:"venue"`
	Datetime    time.Time `json:"datetime" yaml:"datetime"`
	PriceFrom   float64   `json:"priceFrom" yaml:"priceFrom"`
	Currency    string    `json:"currency" yaml:"currency"`
	Stock       int       `json:"stock" yaml:"stock"`
	Popularity  float64   `json:"popularity" yaml:"popularity"`
	SoldOut     bool      `json:"soldOut" yaml:"soldOut"`
	Images      []string  `json:"images" yaml:"images"`
	Artists     []string  `json:"artists" yaml:"artists"`
	Description string    `json:"description" yaml:"description"`
	Policies    *Policies `json:"policies,omitempty" yaml:"policies,omitempty"`
}

// Validate checks the structural invariants a catalog relies on.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return errors.Join(ErrInvalidEvent, errors.New("id is required"))
	case len(r.Images) == 0:
		return errors.Join(ErrInvalidEvent, errors.New("event "+r.ID+": at least one image is required"))
	case r.PriceFrom < 0:
		return errors.Join(ErrInvalidEvent, errors.New("event "+r.ID+": priceFrom must not be negative"))
	case r.Stock < 0:
		return errors.Join(ErrInvalidEvent, errors.New("event "+r.ID+": stock must not be negative"))
	}
	return nil
}

// SearchText is the haystack used by free-text queries: title, city, venue
// and the space-joined artist names, lower-cased.
func (r Record) SearchText() string {
	return strings.ToLower(strings.Join([]string{r.Title, r.City, r.Venue, strings.Join(r.Artists, " ")}, " "))
}

// CanPurchase reports whether the event accepts new cart lines at all.
func (r Record) CanPurchase() bool {
	return !r.SoldOut && r.Stock > 0
}
