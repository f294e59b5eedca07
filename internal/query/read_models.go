package query

import "github.com/example/cartelera/internal/domain/event"

// CartLineView is a cart line resolved against the catalog.
type CartLineView struct {
	EventID  string       `json:"id"`
	Quantity int          `json:"qty"`
	Event    event.Record `json:"event"`
	Price    float64      `json:"price"`
	Subtotal float64      `json:"subtotal"`
}

type CartView struct {
	Lines    []CartLineView `json:"lines"`
	Count    int            `json:"count"`
	Total    float64        `json:"total"`
	Currency string         `json:"currency"`
}

type FavoritesView struct {
	Events []event.Record `json:"events"`
}

// Badges are the header counters. Cart counts tickets, not lines.
type Badges struct {
	Cart      int `json:"cart"`
	Favorites int `json:"favorites"`
}
