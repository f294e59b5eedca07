package projection

import (
	"context"
	"testing"
	"time"

	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/infrastructure/store"
	"github.com/example/cartelera/internal/infrastructure/store/mocks"
	"github.com/example/cartelera/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, time.March, 1, 15, 0, 0, 0, time.UTC)

func newTestProjector() (*Projector, *store.MemoryKV) {
	kv := store.NewMemoryKV()
	return NewProjector(kv, logging.Nop), kv
}

func makeEvent(t *testing.T, eventType, aggregateType string, data any) eventbus.Event {
	t.Helper()
	e, err := eventbus.NewEvent(eventType, aggregateType, "s1", data, at)
	require.NoError(t, err)
	return e
}

func orderPlaced(t *testing.T, id string, items ...order.Item) eventbus.Event {
	return makeEvent(t, order.EventOrderPlaced, order.AggregateType, order.OrderPlaced{
		OrderID:  id,
		Items:    items,
		Currency: "PEN",
		PlacedAt: at,
	})
}

// ============================================
// Order Event Tests
// ============================================

func TestProjector_HandleOrderPlaced(t *testing.T) {
	projector, _ := newTestProjector()
	ctx := context.Background()

	require.NoError(t, projector.HandleEvent(ctx, orderPlaced(t, "o-1",
		order.Item{EventID: "evt-1", Quantity: 2, Price: 50},
		order.Item{EventID: "evt-2", Quantity: 1, Price: 25.5},
	)))
	require.NoError(t, projector.HandleEvent(ctx, orderPlaced(t, "o-2",
		order.Item{EventID: "evt-1", Quantity: 1, Price: 50},
	)))

	stats, err := projector.Stats(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TicketsSold)
	assert.Equal(t, 150.0, stats.Revenue)
	assert.Equal(t, 2, stats.Orders)
	assert.Equal(t, "PEN", stats.Currency)
	assert.True(t, stats.UpdatedAt.Equal(at))
}

func TestProjector_OrderPlacedIsIdempotent(t *testing.T) {
	projector, _ := newTestProjector()
	ctx := context.Background()
	e := orderPlaced(t, "o-1", order.Item{EventID: "evt-1", Quantity: 2, Price: 50})

	require.NoError(t, projector.HandleEvent(ctx, e))
	require.NoError(t, projector.HandleEvent(ctx, e))

	stats, err := projector.Stats(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TicketsSold)
	assert.Equal(t, 1, stats.Orders)
}

func TestProjector_StoreFailure(t *testing.T) {
	kv := mocks.NewMockKV()
	kv.SetErr = assert.AnError
	projector := NewProjector(kv, logging.Nop)

	err := projector.HandleEvent(context.Background(), orderPlaced(t, "o-1", order.Item{EventID: "evt-1", Quantity: 1, Price: 1}))

	assert.ErrorIs(t, err, assert.AnError)
}

// ============================================
// Cart and Favorites Event Tests
// ============================================

func TestProjector_CartAdds(t *testing.T) {
	projector, _ := newTestProjector()
	ctx := context.Background()

	for _, qty := range []int{1, 3} {
		require.NoError(t, projector.HandleEvent(ctx, makeEvent(t, cart.EventItemAdded, cart.AggregateType,
			cart.ItemAddedToCart{SessionID: "s1", EventID: "evt-1", Quantity: qty, AddedAt: at})))
	}
	require.NoError(t, projector.HandleEvent(ctx, makeEvent(t, cart.EventCartCleared, cart.AggregateType,
		cart.CartCleared{SessionID: "s1", ClearedAt: at})))

	stats, err := projector.Stats(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.CartAdds)
	assert.Zero(t, stats.TicketsSold)
}

func TestProjector_FavoritesNeverNegative(t *testing.T) {
	projector, _ := newTestProjector()
	ctx := context.Background()
	toggle := func(fav bool) eventbus.Event {
		return makeEvent(t, favorites.EventFavoriteToggled, favorites.AggregateType,
			favorites.FavoriteToggled{SessionID: "s1", EventID: "evt-1", Favorite: fav, ToggledAt: at})
	}

	require.NoError(t, projector.HandleEvent(ctx, toggle(false)))
	require.NoError(t, projector.HandleEvent(ctx, toggle(true)))
	require.NoError(t, projector.HandleEvent(ctx, toggle(true)))
	require.NoError(t, projector.HandleEvent(ctx, toggle(false)))

	stats, err := projector.Stats(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Favorites)
}

func TestProjector_IgnoresUnknownAggregates(t *testing.T) {
	projector, kv := newTestProjector()

	e := eventbus.Event{ID: "x", Type: "Something", AggregateType: "Other", Data: []byte(`{}`)}
	require.NoError(t, projector.HandleEvent(context.Background(), e))

	keys, err := kv.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestProjector_BadPayload(t *testing.T) {
	projector, _ := newTestProjector()
	e := eventbus.Event{ID: "x", Type: order.EventOrderPlaced, AggregateType: order.AggregateType, Data: []byte(`[]`)}

	assert.Error(t, projector.HandleEvent(context.Background(), e))
}

func TestProjector_CorruptStatsReset(t *testing.T) {
	projector, kv := newTestProjector()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, StatsKey("evt-1"), []byte("{")))

	require.NoError(t, projector.HandleEvent(ctx, orderPlaced(t, "o-1", order.Item{EventID: "evt-1", Quantity: 1, Price: 10})))

	stats, err := projector.Stats(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TicketsSold)
}

// ============================================
// Listing Tests
// ============================================

func TestProjector_AllStats(t *testing.T) {
	projector, kv := newTestProjector()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "s1:cartelera_cart", []byte("[]")))

	require.NoError(t, projector.HandleEvent(ctx, orderPlaced(t, "o-1",
		order.Item{EventID: "cheap", Quantity: 4, Price: 10},
		order.Item{EventID: "pricey", Quantity: 1, Price: 200},
	)))

	all, err := projector.AllStats(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "pricey", all[0].EventID)
	assert.Equal(t, "cheap", all[1].EventID)
}

func TestProjector_AllStats_Unsupported(t *testing.T) {
	projector := NewProjector(mocks.NewMockKV(), logging.Nop)

	_, err := projector.AllStats(context.Background())

	assert.Error(t, err)
}
