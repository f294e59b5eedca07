// Package persistence maps the cart, favorites and order log of a session
// to JSON blobs in a key-value store.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/infrastructure/store"
	"github.com/example/cartelera/internal/logging"
	"github.com/rs/zerolog"
)

// ErrStorageCorrupt reports an entry that could not be parsed. The caller
// still receives an empty collection.
var ErrStorageCorrupt = errors.New("stored entry is corrupt")

const (
	cartSuffix      = "cartelera_cart"
	favoritesSuffix = "cartelera_favs"
	ordersSuffix    = "cartelera_orders"
)

var sessionSuffixes = map[string]bool{cartSuffix: true, favoritesSuffix: true, ordersSuffix: true}

func CartKey(session string) string      { return session + ":" + cartSuffix }
func FavoritesKey(session string) string { return session + ":" + favoritesSuffix }
func OrdersKey(session string) string    { return session + ":" + ordersSuffix }

type Gateway struct {
	kv  store.KV
	log zerolog.Logger
}

func NewGateway(kv store.KV, logger zerolog.Logger) *Gateway {
	return &Gateway{kv: kv, log: logging.Component(logger, "persistence")}
}

// LoadCart restores the session cart. Missing, empty and corrupt entries
// yield an empty ledger; corruption is also reported as ErrStorageCorrupt.
func (g *Gateway) LoadCart(ctx context.Context, session string) (*cart.Ledger, error) {
	var lines []cart.Line
	if err := g.load(ctx, CartKey(session), &lines); err != nil {
		return cart.New(), err
	}
	return cart.New(lines...), nil
}

// SaveCart writes the full ledger.
func (g *Gateway) SaveCart(ctx context.Context, session string, ledger *cart.Ledger) error {
	return g.save(ctx, CartKey(session), ledger.Lines())
}

func (g *Gateway) LoadFavorites(ctx context.Context, session string) (*favorites.Set, error) {
	var ids []string
	if err := g.load(ctx, FavoritesKey(session), &ids); err != nil {
		return favorites.New(), err
	}
	return favorites.New(ids...), nil
}

func (g *Gateway) SaveFavorites(ctx context.Context, session string, set *favorites.Set) error {
	return g.save(ctx, FavoritesKey(session), set.IDs())
}

// Orders returns the session order log, oldest first.
func (g *Gateway) Orders(ctx context.Context, session string) ([]order.Order, error) {
	var orders []order.Order
	if err := g.load(ctx, OrdersKey(session), &orders); err != nil {
		return []order.Order{}, err
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

// AppendOrder adds an order to the end of the log. A corrupt log is
// replaced rather than blocking the purchase.
func (g *Gateway) AppendOrder(ctx context.Context, session string, o order.Order) error {
	orders, err := g.Orders(ctx, session)
	if err != nil && !errors.Is(err, ErrStorageCorrupt) {
		return err
	}
	return g.save(ctx, OrdersKey(session), append(orders, o))
}

// Sessions lists the sessions with stored data, when the backend can
// enumerate keys.
func (g *Gateway) Sessions(ctx context.Context) ([]string, error) {
	lister, ok := g.kv.(store.KeyLister)
	if !ok {
		return nil, errors.New("store backend cannot list keys")
	}
	keys, err := lister.Keys(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	sessions := []string{}
	for _, k := range keys {
		i := strings.LastIndex(k, ":")
		if i <= 0 || !sessionSuffixes[k[i+1:]] {
			continue
		}
		s := k[:i]
		if !seen[s] {
			seen[s] = true
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (g *Gateway) load(ctx context.Context, key string, into any) error {
	raw, found, err := g.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !found || len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("ignoring unparsable stored entry")
		return fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, key, err)
	}
	return nil
}

func (g *Gateway) save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := g.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
