package readmodel

import (
	"sort"
	"time"
)

// EventStats is the activity read model for one catalog event, built from
// the domain event stream.
type EventStats struct {
	EventID     string    `json:"event_id"`
	TicketsSold int       `json:"tickets_sold"`
	Revenue     float64   `json:"revenue"`
	Currency    string    `json:"currency,omitempty"`
	Orders      int       `json:"orders"`
	CartAdds    int       `json:"cart_adds"`
	Favorites   int       `json:"favorites"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SortByRevenue orders stats by revenue, then tickets, then id.
func SortByRevenue(stats []EventStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		if a.TicketsSold != b.TicketsSold {
			return a.TicketsSold > b.TicketsSold
		}
		return a.EventID < b.EventID
	})
}
