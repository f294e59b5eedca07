package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/cartelera/internal/clock"
	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/infrastructure/store/mocks"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/persistence"
	"github.com/example/cartelera/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 1, 15, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []query.Badges
}

func (n *recordingNotifier) NotifyBadges(_ string, b query.Badges) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, b)
}

func (n *recordingNotifier) last() query.Badges {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return query.Badges{}
	}
	return n.calls[len(n.calls)-1]
}

type testEnv struct {
	handler   *Handler
	kv        *mocks.MockKV
	gateway   *persistence.Gateway
	publisher *eventbus.Recorder
	notifier  *recordingNotifier
}

func testCatalog(t *testing.T) *event.Catalog {
	t.Helper()
	c, err := event.NewCatalog([]event.Record{
		{ID: "evt-1", Title: "Rock", PriceFrom: 50, Currency: "PEN", Stock: 5, Images: []string{"a.jpg"}},
		{ID: "evt-2", Title: "Teatro", PriceFrom: 25.5, Currency: "PEN", Stock: 10, Images: []string{"b.jpg"}},
		{ID: "soldout", Title: "Agotado", PriceFrom: 80, Currency: "PEN", Stock: 3, SoldOut: true, Images: []string{"c.jpg"}},
		{ID: "empty", Title: "Sin stock", PriceFrom: 10, Currency: "PEN", Stock: 0, Images: []string{"d.jpg"}},
	})
	require.NoError(t, err)
	return c
}

func newTestHandler(t *testing.T) *testEnv {
	kv := mocks.NewMockKV()
	gateway := persistence.NewGateway(kv, logging.Nop)
	publisher := eventbus.NewRecorder()
	notifier := &recordingNotifier{}

	handler := NewHandler(testCatalog(t), gateway,
		WithPublisher(publisher),
		WithNotifier(notifier),
		WithClock(clock.NewFixed(fixedNow)),
		WithLogger(logging.Nop),
	)
	return &testEnv{handler: handler, kv: kv, gateway: gateway, publisher: publisher, notifier: notifier}
}

func (e *testEnv) cartLines(t *testing.T, session string) []cart.Line {
	t.Helper()
	ledger, err := e.gateway.LoadCart(context.Background(), session)
	require.NoError(t, err)
	return ledger.Lines()
}

var validBuyer = order.Buyer{Name: "Ana Quispe", Email: "a@b.com", DNI: "12345678", Phone: "987654321"}

// ============================================
// Add To Cart Tests
// ============================================

func TestHandler_AddToCart_Success(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()

	badges, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, query.Badges{Cart: 2}, badges)
	assert.Equal(t, []cart.Line{{EventID: "evt-1", Quantity: 2}}, env.cartLines(t, "s1"))
	assert.Equal(t, []string{cart.EventItemAdded}, env.publisher.Types())
	assert.Equal(t, badges, env.notifier.last())

	var payload cart.ItemAddedToCart
	require.NoError(t, env.publisher.Events()[0].Decode(&payload))
	assert.Equal(t, 2, payload.LineQty)
	assert.True(t, fixedNow.Equal(payload.AddedAt))
}

func TestHandler_AddToCart_MergesQuantity(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()

	_, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 2})
	require.NoError(t, err)
	badges, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 5, badges.Cart)
	assert.Equal(t, []cart.Line{{EventID: "evt-1", Quantity: 5}}, env.cartLines(t, "s1"))
}

func TestHandler_AddToCart_Failures(t *testing.T) {
	tests := []struct {
		name    string
		cmd     AddToCart
		wantErr error
	}{
		{"exceeds stock", AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 6}, cart.ErrOutOfStock},
		{"sold out", AddToCart{SessionID: "s1", EventID: "soldout", Quantity: 1}, cart.ErrOutOfStock},
		{"zero stock", AddToCart{SessionID: "s1", EventID: "empty", Quantity: 1}, cart.ErrOutOfStock},
		{"zero quantity", AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 0}, cart.ErrInvalidQuantity},
		{"negative quantity", AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: -1}, cart.ErrInvalidQuantity},
		{"unknown event", AddToCart{SessionID: "s1", EventID: "nope", Quantity: 1}, event.ErrEventNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestHandler(t)

			_, err := env.handler.AddToCart(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.kv.SetCalls)
			assert.Empty(t, env.publisher.Events())
			assert.Empty(t, env.notifier.calls)
		})
	}
}

func TestHandler_AddToCart_MergedOverStockLeavesLedgerUnchanged(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 4})
	require.NoError(t, err)

	_, err = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 2})

	assert.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Equal(t, []cart.Line{{EventID: "evt-1", Quantity: 4}}, env.cartLines(t, "s1"))
}

func TestHandler_AddToCart_SaveFailure(t *testing.T) {
	env := newTestHandler(t)
	env.kv.SetErr = errors.New("store unavailable")

	_, err := env.handler.AddToCart(context.Background(), AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 1})

	assert.ErrorContains(t, err, "store unavailable")
	assert.Empty(t, env.publisher.Events())
}

func TestHandler_AddToCart_CorruptCartStartsEmpty(t *testing.T) {
	env := newTestHandler(t)
	env.kv.Seed(persistence.CartKey("s1"), []byte("{broken"))

	badges, err := env.handler.AddToCart(context.Background(), AddToCart{SessionID: "s1", EventID: "evt-2", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, badges.Cart)
	assert.Equal(t, []cart.Line{{EventID: "evt-2", Quantity: 1}}, env.cartLines(t, "s1"))
}

func TestHandler_AddToCart_PublishFailureIsNotSurfaced(t *testing.T) {
	env := newTestHandler(t)
	env.publisher.Err = errors.New("broker down")

	_, err := env.handler.AddToCart(context.Background(), AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 1})

	require.NoError(t, err)
	assert.Len(t, env.cartLines(t, "s1"), 1)
}

// ============================================
// Set Quantity Tests
// ============================================

func TestHandler_SetQuantity_Clamps(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 1})
	require.NoError(t, err)

	applied, badges, err := env.handler.SetQuantity(ctx, SetQuantity{SessionID: "s1", EventID: "evt-1", Quantity: 99})
	require.NoError(t, err)
	assert.Equal(t, 5, applied)
	assert.Equal(t, 5, badges.Cart)

	applied, _, err = env.handler.SetQuantity(ctx, SetQuantity{SessionID: "s1", EventID: "evt-1", Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	var payload cart.CartQuantitySet
	events := env.publisher.Events()
	require.NoError(t, events[len(events)-1].Decode(&payload))
	assert.Equal(t, 0, payload.Requested)
	assert.Equal(t, 1, payload.Quantity)
}

func TestHandler_SetQuantity_MissingLine(t *testing.T) {
	env := newTestHandler(t)

	_, _, err := env.handler.SetQuantity(context.Background(), SetQuantity{SessionID: "s1", EventID: "evt-1", Quantity: 2})

	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

// ============================================
// Remove Tests
// ============================================

func TestHandler_RemoveFromCart(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, _ = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 1})
	_, _ = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-2", Quantity: 2})

	badges, err := env.handler.RemoveFromCart(ctx, RemoveFromCart{SessionID: "s1", EventID: "evt-1"})

	require.NoError(t, err)
	assert.Equal(t, 2, badges.Cart)
	assert.Equal(t, []cart.Line{{EventID: "evt-2", Quantity: 2}}, env.cartLines(t, "s1"))
	assert.Equal(t, cart.EventItemRemoved, env.publisher.Types()[2])
}

func TestHandler_RemoveFromCart_AbsentIsNoop(t *testing.T) {
	env := newTestHandler(t)

	_, err := env.handler.RemoveFromCart(context.Background(), RemoveFromCart{SessionID: "s1", EventID: "evt-1"})

	require.NoError(t, err)
	assert.Empty(t, env.kv.SetCalls)
	assert.Empty(t, env.publisher.Events())
}

// ============================================
// Favorites Tests
// ============================================

func TestHandler_ToggleFavorite_Involution(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()

	favorite, badges, err := env.handler.ToggleFavorite(ctx, ToggleFavorite{SessionID: "s1", EventID: "evt-2"})
	require.NoError(t, err)
	assert.True(t, favorite)
	assert.Equal(t, 1, badges.Favorites)

	favorite, badges, err = env.handler.ToggleFavorite(ctx, ToggleFavorite{SessionID: "s1", EventID: "evt-2"})
	require.NoError(t, err)
	assert.False(t, favorite)
	assert.Equal(t, 0, badges.Favorites)

	assert.Equal(t, []string{favorites.EventFavoriteToggled, favorites.EventFavoriteToggled}, env.publisher.Types())
}

func TestHandler_ToggleFavorite_UnknownEvent(t *testing.T) {
	env := newTestHandler(t)

	_, _, err := env.handler.ToggleFavorite(context.Background(), ToggleFavorite{SessionID: "s1", EventID: "nope"})

	assert.ErrorIs(t, err, event.ErrEventNotFound)
	assert.Empty(t, env.kv.SetCalls)
}

func TestHandler_ToggleFavorite_SoldOutAllowed(t *testing.T) {
	env := newTestHandler(t)

	favorite, _, err := env.handler.ToggleFavorite(context.Background(), ToggleFavorite{SessionID: "s1", EventID: "soldout"})

	require.NoError(t, err)
	assert.True(t, favorite)
}

// ============================================
// Checkout Tests
// ============================================

func TestHandler_Checkout_Success(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 2})
	require.NoError(t, err)

	o, err := env.handler.Checkout(ctx, Checkout{SessionID: "s1", Buyer: validBuyer})

	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "EVT-1740841200000-evt-1", o.ID)
	assert.Equal(t, 100.0, o.Total)
	assert.Equal(t, "PEN", o.Currency)
	assert.Empty(t, env.cartLines(t, "s1"))
	assert.Equal(t, 0, env.notifier.last().Cart)

	orders, err := env.gateway.Orders(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)

	assert.Equal(t, []string{cart.EventItemAdded, order.EventOrderPlaced, cart.EventCartCleared}, env.publisher.Types())
	var placed order.OrderPlaced
	require.NoError(t, env.publisher.Events()[1].Decode(&placed))
	assert.Equal(t, "a@b.com", placed.Email)
	assert.Equal(t, 100.0, placed.Total)
}

func TestHandler_Checkout_InvalidDNILeavesCartUntouched(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 2})
	require.NoError(t, err)
	env.kv.Reset()

	buyer := validBuyer
	buyer.DNI = "123"
	_, err = env.handler.Checkout(ctx, Checkout{SessionID: "s1", Buyer: buyer})

	var verr *order.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dni", verr.Field)
	assert.ErrorIs(t, err, order.ErrValidation)
	assert.Empty(t, env.kv.SetCalls)
	assert.Equal(t, []cart.Line{{EventID: "evt-1", Quantity: 2}}, env.cartLines(t, "s1"))
}

func TestHandler_Checkout_EmptyCart(t *testing.T) {
	env := newTestHandler(t)

	_, err := env.handler.Checkout(context.Background(), Checkout{SessionID: "s1", Buyer: validBuyer})

	assert.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Empty(t, env.kv.SetCalls)
}

func TestHandler_Checkout_OrderLogFailureKeepsCart(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, _ = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-2", Quantity: 1})
	env.kv.SetErrFor[persistence.OrdersKey("s1")] = errors.New("write refused")

	_, err := env.handler.Checkout(ctx, Checkout{SessionID: "s1", Buyer: validBuyer})

	assert.ErrorContains(t, err, "write refused")
	assert.Len(t, env.cartLines(t, "s1"), 1)
	assert.NotContains(t, env.publisher.Types(), order.EventOrderPlaced)
}

func TestHandler_Checkout_CartClearFailureReturnsOrder(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, _ = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-2", Quantity: 2})
	env.kv.SetErrFor[persistence.CartKey("s1")] = errors.New("cart write refused")

	o, err := env.handler.Checkout(ctx, Checkout{SessionID: "s1", Buyer: validBuyer})

	assert.ErrorIs(t, err, ErrCartNotCleared)
	assert.Equal(t, 51.0, o.Total)
	orders, _ := env.gateway.Orders(ctx, "s1")
	assert.Len(t, orders, 1)
}

// ============================================
// Badges and Concurrency Tests
// ============================================

func TestHandler_Badges(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	_, _ = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 2})
	_, _ = env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-2", Quantity: 3})
	_, _, _ = env.handler.ToggleFavorite(ctx, ToggleFavorite{SessionID: "s1", EventID: "evt-1"})

	badges, err := env.handler.Badges(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, query.Badges{Cart: 5, Favorites: 1}, badges)

	other, err := env.handler.Badges(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, query.Badges{}, other)
}

func TestHandler_ConcurrentAddsRespectStock(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.handler.AddToCart(ctx, AddToCart{SessionID: "s1", EventID: "evt-1", Quantity: 1}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, []cart.Line{{EventID: "evt-1", Quantity: 5}}, env.cartLines(t, "s1"))
}
