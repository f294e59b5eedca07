package api

import (
	"net/http"

	"github.com/example/cartelera/internal/api/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Handlers      *Handlers
	Logger        zerolog.Logger
	AllowedOrigin string
	// WebDir serves a static front end at / when set.
	WebDir string
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	// Catalog
	r.HandleFunc("/catalog", h.GetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/catalog/actions", h.CatalogAction).Methods(http.MethodPost)
	r.HandleFunc("/events/{id}", h.GetEvent).Methods(http.MethodGet)

	// Cart
	r.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/items", h.AddCartItem).Methods(http.MethodPost)
	r.HandleFunc("/cart/items/{id}", h.SetCartItem).Methods(http.MethodPut)
	r.HandleFunc("/cart/items/{id}", h.RemoveCartItem).Methods(http.MethodDelete)

	// Favorites
	r.HandleFunc("/favorites", h.GetFavorites).Methods(http.MethodGet)
	r.HandleFunc("/favorites/{id}/toggle", h.ToggleFavorite).Methods(http.MethodPost)

	// Orders
	r.HandleFunc("/checkout", h.Checkout).Methods(http.MethodPost)
	r.HandleFunc("/orders", h.GetOrders).Methods(http.MethodGet)

	// Header badges
	r.HandleFunc("/badges", h.GetBadges).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.Stream).Methods(http.MethodGet)

	// Static files (web UI)
	if cfg.WebDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebDir)))
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, "not found", http.StatusNotFound)
	})

	var handler http.Handler = r
	handler = middleware.Session(handler)
	handler = middleware.CORS(cfg.AllowedOrigin)(handler)
	handler = middleware.Recover(cfg.Logger)(handler)
	handler = middleware.Logging(cfg.Logger)(handler)
	return handler
}
