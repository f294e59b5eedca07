package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/infrastructure/store"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/readmodel"
	"github.com/rs/zerolog"
)

const (
	statsPrefix  = "stats:"
	markerPrefix = "projected:"
)

// StatsKey is the store key of an event's activity stats.
func StatsKey(eventID string) string { return statsPrefix + eventID }

// Projector folds domain events into per-event activity stats. Orders are
// applied at most once; cart and favorite counters are best-effort under
// redelivery.
type Projector struct {
	kv  store.KV
	log zerolog.Logger
	mu  sync.Mutex
}

func NewProjector(kv store.KV, logger zerolog.Logger) *Projector {
	return &Projector{kv: kv, log: logging.Component(logger, "projector")}
}

// HandleEvent is an eventbus.Handler.
func (p *Projector) HandleEvent(ctx context.Context, e eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Debug().Str("event_type", e.Type).Str("aggregate", e.AggregateType).Msg("received event")

	switch e.AggregateType {
	case order.AggregateType:
		return p.handleOrderEvent(ctx, e)
	case cart.AggregateType:
		return p.handleCartEvent(ctx, e)
	case favorites.AggregateType:
		return p.handleFavoritesEvent(ctx, e)
	}
	return nil
}

func (p *Projector) handleOrderEvent(ctx context.Context, e eventbus.Event) error {
	if e.Type != order.EventOrderPlaced {
		return nil
	}
	var placed order.OrderPlaced
	if err := e.Decode(&placed); err != nil {
		return err
	}

	marker := markerPrefix + placed.OrderID
	if _, seen, err := p.kv.Get(ctx, marker); err != nil {
		return err
	} else if seen {
		p.log.Debug().Str("order_id", placed.OrderID).Msg("order already projected")
		return nil
	}

	for _, item := range placed.Items {
		err := p.update(ctx, item.EventID, func(s *readmodel.EventStats) {
			s.TicketsSold += item.Quantity
			s.Revenue = cart.RoundCents(s.Revenue + item.Subtotal())
			s.Currency = placed.Currency
			s.Orders++
			s.UpdatedAt = placed.PlacedAt
		})
		if err != nil {
			return err
		}
	}
	return p.kv.Set(ctx, marker, []byte(placed.OrderID))
}

func (p *Projector) handleCartEvent(ctx context.Context, e eventbus.Event) error {
	if e.Type != cart.EventItemAdded {
		return nil
	}
	var added cart.ItemAddedToCart
	if err := e.Decode(&added); err != nil {
		return err
	}
	return p.update(ctx, added.EventID, func(s *readmodel.EventStats) {
		s.CartAdds += added.Quantity
		s.UpdatedAt = added.AddedAt
	})
}

func (p *Projector) handleFavoritesEvent(ctx context.Context, e eventbus.Event) error {
	if e.Type != favorites.EventFavoriteToggled {
		return nil
	}
	var toggled favorites.FavoriteToggled
	if err := e.Decode(&toggled); err != nil {
		return err
	}
	return p.update(ctx, toggled.EventID, func(s *readmodel.EventStats) {
		if toggled.Favorite {
			s.Favorites++
		} else if s.Favorites > 0 {
			s.Favorites--
		}
		s.UpdatedAt = toggled.ToggledAt
	})
}

func (p *Projector) update(ctx context.Context, eventID string, fn func(*readmodel.EventStats)) error {
	stats, err := p.get(ctx, eventID)
	if err != nil {
		return err
	}
	fn(&stats)
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return p.kv.Set(ctx, StatsKey(eventID), data)
}

func (p *Projector) get(ctx context.Context, eventID string) (readmodel.EventStats, error) {
	raw, ok, err := p.kv.Get(ctx, StatsKey(eventID))
	if err != nil {
		return readmodel.EventStats{}, err
	}
	stats := readmodel.EventStats{EventID: eventID}
	if !ok || len(raw) == 0 {
		return stats, nil
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		p.log.Warn().Err(err).Str("event_id", eventID).Msg("corrupt stats entry reset")
		return readmodel.EventStats{EventID: eventID}, nil
	}
	return stats, nil
}

// Stats returns the stats for one event; unknown events have zero stats.
func (p *Projector) Stats(ctx context.Context, eventID string) (readmodel.EventStats, error) {
	return p.get(ctx, eventID)
}

// AllStats lists every projected event, highest revenue first. The store
// must be able to list keys.
func (p *Projector) AllStats(ctx context.Context) ([]readmodel.EventStats, error) {
	lister, ok := p.kv.(store.KeyLister)
	if !ok {
		return nil, errors.New("store backend cannot list keys")
	}
	keys, err := lister.Keys(ctx, statsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	out := make([]readmodel.EventStats, 0, len(keys))
	for _, k := range keys {
		s, err := p.get(ctx, strings.TrimPrefix(k, statsPrefix))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	readmodel.SortByRevenue(out)
	return out, nil
}
