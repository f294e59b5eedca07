package query

import (
	"time"

	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/view"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL bounds how long a search page is memoised.
const DefaultCacheTTL = 5 * time.Minute

type Handler struct {
	catalog *event.Catalog
	cache   *gocache.Cache
	log     zerolog.Logger
}

// NewHandler builds the read side over a loaded catalog. A ttl <= 0
// disables the search cache.
func NewHandler(catalog *event.Catalog, ttl time.Duration, logger zerolog.Logger) *Handler {
	h := &Handler{
		catalog: catalog,
		log:     logging.Component(logger, "query"),
	}
	if ttl > 0 {
		h.cache = gocache.New(ttl, 2*ttl)
	}
	return h
}

func (h *Handler) Catalog() *event.Catalog {
	return h.catalog
}

// Search runs the catalog query for a view state. Results are keyed by the
// canonical encoding of the normalised state. Only states built from
// enumerable values are cached; free text and numeric or date bounds are
// computed fresh so hand-edited URLs cannot grow the cache.
func (h *Handler) Search(s view.State) Result {
	s = s.Normalize()
	if h.cache == nil || !cacheable(s) {
		return Run(h.catalog, s)
	}

	key := view.QueryString(s)
	if cached, ok := h.cache.Get(key); ok {
		return cached.(Result)
	}

	result := Run(h.catalog, s)
	h.cache.SetDefault(key, result)
	h.log.Debug().
		Str("state", key).
		Int("total", result.Total).
		Int("page", result.Page).
		Msg("search result cached")
	return result
}

func cacheable(s view.State) bool {
	f := s.Filters
	return s.Query == "" && f.City == "" &&
		f.MinPrice == nil && f.MaxPrice == nil &&
		f.MinDate == nil && f.MaxDate == nil
}

func (h *Handler) GetEvent(id string) (event.Record, bool) {
	return h.catalog.ByID(id)
}

// CartView resolves each line against the current catalog. Lines whose
// event is no longer in the catalog are skipped. Prices are live.
func (h *Handler) CartView(ledger *cart.Ledger) CartView {
	v := CartView{Lines: []CartLineView{}}
	for _, line := range ledger.Lines() {
		rec, ok := h.catalog.ByID(line.EventID)
		if !ok {
			h.log.Warn().Str("event_id", line.EventID).Msg("cart line references unknown event")
			continue
		}
		if v.Currency == "" {
			v.Currency = rec.Currency
		}
		v.Lines = append(v.Lines, CartLineView{
			EventID:  line.EventID,
			Quantity: line.Quantity,
			Event:    rec,
			Price:    rec.PriceFrom,
			Subtotal: cart.RoundCents(rec.PriceFrom * float64(line.Quantity)),
		})
		v.Count += line.Quantity
	}
	v.Total = ledger.Total(h.catalog)
	return v
}

// FavoritesView lists favorite events in insertion order, skipping ids
// unknown to the catalog.
func (h *Handler) FavoritesView(set *favorites.Set) FavoritesView {
	v := FavoritesView{Events: []event.Record{}}
	for _, id := range set.IDs() {
		if rec, ok := h.catalog.ByID(id); ok {
			v.Events = append(v.Events, rec)
		}
	}
	return v
}

// BadgesFor computes the header counters.
func BadgesFor(ledger *cart.Ledger, set *favorites.Set) Badges {
	return Badges{Cart: ledger.Count(), Favorites: set.Len()}
}
