package order

import "time"

const EventOrderPlaced = "OrderPlaced"

type OrderPlaced struct {
	OrderID   string    `json:"order_id"`
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Items     []Item    `json:"items"`
	Total     float64   `json:"total"`
	Currency  string    `json:"currency"`
	PlacedAt  time.Time `json:"placed_at"`
}
