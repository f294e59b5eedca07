package command

import "github.com/example/cartelera/internal/domain/order"

// Cart Commands
type AddToCart struct {
	SessionID string `json:"session_id"`
	EventID   string `json:"event_id"`
	Quantity  int    `json:"quantity"`
}

type SetQuantity struct {
	SessionID string `json:"session_id"`
	EventID   string `json:"event_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	SessionID string `json:"session_id"`
	EventID   string `json:"event_id"`
}

// Favorites Commands
type ToggleFavorite struct {
	SessionID string `json:"session_id"`
	EventID   string `json:"event_id"`
}

// Order Commands
type Checkout struct {
	SessionID string      `json:"session_id"`
	Buyer     order.Buyer `json:"buyer"`
}
