package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/cartelera/internal/clock"
	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/persistence"
	"github.com/example/cartelera/internal/query"
	"github.com/rs/zerolog"
)

// ErrCartNotCleared is returned with a placed order when the emptied cart
// could not be saved. The order itself is recorded.
var ErrCartNotCleared = errors.New("order placed but cart was not cleared")

// BadgeNotifier receives the header counters after every mutation.
type BadgeNotifier interface {
	NotifyBadges(session string, badges query.Badges)
}

type nopNotifier struct{}

func (nopNotifier) NotifyBadges(string, query.Badges) {}

type Handler struct {
	catalog   *event.Catalog
	gateway   *persistence.Gateway
	publisher eventbus.Publisher
	notifier  BadgeNotifier
	clock     clock.Clock
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Handler)

func WithPublisher(p eventbus.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

func WithNotifier(n BadgeNotifier) Option {
	return func(h *Handler) { h.notifier = n }
}

func WithClock(c clock.Clock) Option {
	return func(h *Handler) { h.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = logging.Component(l, "command") }
}

func NewHandler(catalog *event.Catalog, gateway *persistence.Gateway, opts ...Option) *Handler {
	h := &Handler{
		catalog:   catalog,
		gateway:   gateway,
		publisher: eventbus.Nop(),
		notifier:  nopNotifier{},
		clock:     clock.NewSystem(),
		log:       logging.Component(logging.Nop, "command"),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// lock serialises operations on one session.
func (h *Handler) lock(session string) func() {
	h.mu.Lock()
	l, ok := h.locks[session]
	if !ok {
		l = &sync.Mutex{}
		h.locks[session] = l
	}
	h.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// AddToCart merges quantity into the session cart after checking stock.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (query.Badges, error) {
	defer h.lock(cmd.SessionID)()

	ledger, err := h.loadCart(ctx, cmd.SessionID)
	if err != nil {
		return query.Badges{}, err
	}
	if err := ledger.Add(h.catalog, cmd.EventID, cmd.Quantity); err != nil {
		return query.Badges{}, err
	}
	if err := h.gateway.SaveCart(ctx, cmd.SessionID, ledger); err != nil {
		return query.Badges{}, err
	}

	h.publish(ctx, cart.EventItemAdded, cart.AggregateType, cmd.SessionID, cart.ItemAddedToCart{
		SessionID: cmd.SessionID,
		EventID:   cmd.EventID,
		Quantity:  cmd.Quantity,
		LineQty:   ledger.Quantity(cmd.EventID),
		AddedAt:   h.clock.Now(),
	})
	h.log.Info().Str("session", cmd.SessionID).Str("event_id", cmd.EventID).Int("quantity", cmd.Quantity).Msg("item added to cart")
	return h.refreshBadges(ctx, cmd.SessionID, ledger, nil), nil
}

// SetQuantity sets a line's quantity, clamped to [1, stock]. It returns
// the quantity actually stored.
func (h *Handler) SetQuantity(ctx context.Context, cmd SetQuantity) (int, query.Badges, error) {
	defer h.lock(cmd.SessionID)()

	ledger, err := h.loadCart(ctx, cmd.SessionID)
	if err != nil {
		return 0, query.Badges{}, err
	}
	applied, err := ledger.SetQuantity(h.catalog, cmd.EventID, cmd.Quantity)
	if err != nil {
		return 0, query.Badges{}, err
	}
	if err := h.gateway.SaveCart(ctx, cmd.SessionID, ledger); err != nil {
		return 0, query.Badges{}, err
	}

	h.publish(ctx, cart.EventQuantitySet, cart.AggregateType, cmd.SessionID, cart.CartQuantitySet{
		SessionID: cmd.SessionID,
		EventID:   cmd.EventID,
		Requested: cmd.Quantity,
		Quantity:  applied,
		SetAt:     h.clock.Now(),
	})
	if applied != cmd.Quantity {
		h.log.Debug().Str("session", cmd.SessionID).Str("event_id", cmd.EventID).
			Int("requested", cmd.Quantity).Int("applied", applied).Msg("quantity clamped")
	}
	return applied, h.refreshBadges(ctx, cmd.SessionID, ledger, nil), nil
}

// RemoveFromCart drops a line. Removing an absent line is not an error and
// writes nothing.
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (query.Badges, error) {
	defer h.lock(cmd.SessionID)()

	ledger, err := h.loadCart(ctx, cmd.SessionID)
	if err != nil {
		return query.Badges{}, err
	}
	if !ledger.Remove(cmd.EventID) {
		return h.refreshBadges(ctx, cmd.SessionID, ledger, nil), nil
	}
	if err := h.gateway.SaveCart(ctx, cmd.SessionID, ledger); err != nil {
		return query.Badges{}, err
	}

	h.publish(ctx, cart.EventItemRemoved, cart.AggregateType, cmd.SessionID, cart.ItemRemovedFromCart{
		SessionID: cmd.SessionID,
		EventID:   cmd.EventID,
		RemovedAt: h.clock.Now(),
	})
	return h.refreshBadges(ctx, cmd.SessionID, ledger, nil), nil
}

// ToggleFavorite flips membership and reports whether the event is now a
// favorite. Unknown events are rejected.
func (h *Handler) ToggleFavorite(ctx context.Context, cmd ToggleFavorite) (bool, query.Badges, error) {
	defer h.lock(cmd.SessionID)()

	if _, ok := h.catalog.ByID(cmd.EventID); !ok {
		return false, query.Badges{}, fmt.Errorf("%w: %s", event.ErrEventNotFound, cmd.EventID)
	}

	set, err := h.loadFavorites(ctx, cmd.SessionID)
	if err != nil {
		return false, query.Badges{}, err
	}
	favorite := set.Toggle(cmd.EventID)
	if err := h.gateway.SaveFavorites(ctx, cmd.SessionID, set); err != nil {
		return false, query.Badges{}, err
	}

	h.publish(ctx, favorites.EventFavoriteToggled, favorites.AggregateType, cmd.SessionID, favorites.FavoriteToggled{
		SessionID: cmd.SessionID,
		EventID:   cmd.EventID,
		Favorite:  favorite,
		ToggledAt: h.clock.Now(),
	})
	return favorite, h.refreshBadges(ctx, cmd.SessionID, nil, set), nil
}

// Checkout turns the session cart into an order, appends it to the order
// log and empties the cart. Validation failures leave the cart untouched.
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (order.Order, error) {
	defer h.lock(cmd.SessionID)()

	ledger, err := h.loadCart(ctx, cmd.SessionID)
	if err != nil {
		return order.Order{}, err
	}

	o, err := order.Place(cmd.Buyer, ledger.Lines(), h.catalog, h.clock.Now())
	if err != nil {
		return order.Order{}, err
	}
	if err := h.gateway.AppendOrder(ctx, cmd.SessionID, o); err != nil {
		return order.Order{}, err
	}

	h.publish(ctx, order.EventOrderPlaced, order.AggregateType, cmd.SessionID, order.OrderPlaced{
		OrderID:   o.ID,
		SessionID: cmd.SessionID,
		Email:     o.Buyer.Email,
		Name:      o.Buyer.Name,
		Items:     o.Items,
		Total:     o.Total,
		Currency:  o.Currency,
		PlacedAt:  o.CreatedAt,
	})
	h.log.Info().Str("session", cmd.SessionID).Str("order_id", o.ID).Float64("total", o.Total).Msg("order placed")

	ledger.Clear()
	if err := h.gateway.SaveCart(ctx, cmd.SessionID, ledger); err != nil {
		h.log.Error().Err(err).Str("session", cmd.SessionID).Str("order_id", o.ID).Msg("cart not cleared after checkout")
		return o, fmt.Errorf("%w: %v", ErrCartNotCleared, err)
	}

	h.publish(ctx, cart.EventCartCleared, cart.AggregateType, cmd.SessionID, cart.CartCleared{
		SessionID: cmd.SessionID,
		ClearedAt: h.clock.Now(),
	})
	h.refreshBadges(ctx, cmd.SessionID, ledger, nil)
	return o, nil
}

// Badges reads the current counters without notifying.
func (h *Handler) Badges(ctx context.Context, session string) (query.Badges, error) {
	ledger, err := h.loadCart(ctx, session)
	if err != nil {
		return query.Badges{}, err
	}
	set, err := h.loadFavorites(ctx, session)
	if err != nil {
		return query.Badges{}, err
	}
	return query.BadgesFor(ledger, set), nil
}

// loadCart treats a corrupt entry as an empty cart.
func (h *Handler) loadCart(ctx context.Context, session string) (*cart.Ledger, error) {
	ledger, err := h.gateway.LoadCart(ctx, session)
	if errors.Is(err, persistence.ErrStorageCorrupt) {
		h.log.Warn().Err(err).Str("session", session).Msg("cart reset")
		return ledger, nil
	}
	return ledger, err
}

func (h *Handler) loadFavorites(ctx context.Context, session string) (*favorites.Set, error) {
	set, err := h.gateway.LoadFavorites(ctx, session)
	if errors.Is(err, persistence.ErrStorageCorrupt) {
		h.log.Warn().Err(err).Str("session", session).Msg("favorites reset")
		return set, nil
	}
	return set, err
}

// refreshBadges computes the counters from whichever collections are
// already loaded and pushes them to the notifier.
func (h *Handler) refreshBadges(ctx context.Context, session string, ledger *cart.Ledger, set *favorites.Set) query.Badges {
	var err error
	if ledger == nil {
		if ledger, err = h.loadCart(ctx, session); err != nil {
			h.log.Warn().Err(err).Str("session", session).Msg("badge refresh skipped")
			return query.Badges{}
		}
	}
	if set == nil {
		if set, err = h.loadFavorites(ctx, session); err != nil {
			h.log.Warn().Err(err).Str("session", session).Msg("badge refresh skipped")
			return query.Badges{}
		}
	}
	badges := query.BadgesFor(ledger, set)
	h.notifier.NotifyBadges(session, badges)
	return badges
}

// publish is best-effort: failures are logged, never returned.
func (h *Handler) publish(ctx context.Context, eventType, aggregateType, session string, payload any) {
	e, err := eventbus.NewEvent(eventType, aggregateType, session, payload, h.clock.Now())
	if err != nil {
		h.log.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := h.publisher.Publish(ctx, e); err != nil {
		h.log.Warn().Err(err).Str("event_type", eventType).Str("event_id", e.ID).Msg("failed to publish event")
	}
}
