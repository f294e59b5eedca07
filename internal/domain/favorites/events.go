package favorites

import "time"

const EventFavoriteToggled = "FavoriteToggled"

type FavoriteToggled struct {
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Favorite  bool      `json:"favorite"`
	ToggledAt time.Time `json:"toggled_at"`
}
