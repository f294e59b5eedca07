package cart

import "time"

const (
	EventItemAdded   = "ItemAddedToCart"
	EventQuantitySet = "CartQuantitySet"
	EventItemRemoved = "ItemRemovedFromCart"
	EventCartCleared = "CartCleared"
)

type ItemAddedToCart struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Quantity  int       `json:"quantity"`
	LineQty   int       `json:"line_quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type CartQuantitySet struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Requested int       `json:"requested"`
	Quantity  int       `json:"quantity"`
	SetAt     time.Time `json:"set_at"`
}

type ItemRemovedFromCart struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartCleared struct {
	SessionID string    `json:"session_id"`
	ClearedAt time.Time `json:"cleared_at"`
}
