package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/cartelera/internal/api/middleware"
	"github.com/example/cartelera/internal/api/ws"
	"github.com/example/cartelera/internal/command"
	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/domain/favorites"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/logging"
	"github.com/example/cartelera/internal/persistence"
	"github.com/example/cartelera/internal/query"
	"github.com/example/cartelera/internal/view"
	"github.com/gorilla/mux"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	gateway      *persistence.Gateway
	hub          *ws.Hub
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, gateway *persistence.Gateway, hub *ws.Hub) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		gateway:      gateway,
		hub:          hub,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"events": h.queryHandler.Catalog().Len(),
	})
}

// Catalog Handlers

type catalogResponse struct {
	State     view.State        `json:"state"`
	Params    map[string]string `json:"params"`
	URL       string            `json:"url"`
	Items     []event.Record    `json:"items"`
	Total     int               `json:"total"`
	PageCount int               `json:"pageCount"`
	Page      int               `json:"page"`
	Prev      string            `json:"prev,omitempty"`
	Next      string            `json:"next,omitempty"`
}

// GetCatalog decodes the view state from the query string and returns the
// matching page. Prev and Next are hash routes for the adjacent pages.
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	state := view.FromValues(r.URL.Query())
	result := h.queryHandler.Search(state)
	state.Page = result.Page

	resp := catalogResponse{
		State:     state,
		Params:    view.Encode(state),
		URL:       view.CatalogHash(state),
		Items:     result.Items,
		Total:     result.Total,
		PageCount: result.PageCount,
		Page:      result.Page,
	}
	if result.Page > 1 {
		resp.Prev = view.CatalogHash(view.Reduce(state, view.ChangePage{Page: result.Page - 1}))
	}
	if result.Page < result.PageCount {
		resp.Next = view.CatalogHash(view.Reduce(state, view.ChangePage{Page: result.Page + 1}))
	}
	respondJSON(w, http.StatusOK, resp)
}

type viewResponse struct {
	State  view.State        `json:"state"`
	Params map[string]string `json:"params"`
	URL    string            `json:"url"`
}

// CatalogAction applies one view action to the state in the query string.
// The body is {"type": "...", ...params}; param values may be strings or
// numbers.
func (h *Handlers) CatalogAction(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	kind, _ := body["type"].(string)
	params := make(map[string]string, len(body))
	for k, v := range body {
		if k == "type" || v == nil {
			continue
		}
		params[k] = fmt.Sprint(v)
	}

	action, err := view.ParseAction(kind, params)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	state := view.Reduce(view.FromValues(r.URL.Query()), action)
	respondJSON(w, http.StatusOK, viewResponse{
		State:  state,
		Params: view.Encode(state),
		URL:    view.CatalogHash(state),
	})
}

type eventResponse struct {
	Event       event.Record `json:"event"`
	CanPurchase bool         `json:"canPurchase"`
	Favorite    bool         `json:"favorite"`
	InCart      int          `json:"inCart"`
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := h.queryHandler.GetEvent(id)
	if !ok {
		respondError(w, "event not found", http.StatusNotFound)
		return
	}

	session := middleware.GetSession(r.Context())
	ledger, err := h.loadCart(r, session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	set, err := h.loadFavorites(r, session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, eventResponse{
		Event:       rec,
		CanPurchase: rec.CanPurchase(),
		Favorite:    set.Has(id),
		InCart:      ledger.Quantity(id),
	})
}

// Cart Handlers

type cartResponse struct {
	Cart   query.CartView `json:"cart"`
	Badges query.Badges   `json:"badges"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.loadCart(r, middleware.GetSession(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.CartView(ledger))
}

type addItemRequest struct {
	EventID  string `json:"event_id"`
	Quantity *int   `json:"quantity"`
}

// AddCartItem merges tickets into the cart. A missing quantity means one.
func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	session := middleware.GetSession(r.Context())
	badges, err := h.cmdHandler.AddToCart(r.Context(), command.AddToCart{
		SessionID: session,
		EventID:   req.EventID,
		Quantity:  qty,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.respondCart(w, r, session, badges)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type setQuantityResponse struct {
	Quantity int `json:"quantity"`
	cartResponse
}

func (h *Handlers) SetCartItem(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	session := middleware.GetSession(r.Context())
	applied, badges, err := h.cmdHandler.SetQuantity(r.Context(), command.SetQuantity{
		SessionID: session,
		EventID:   mux.Vars(r)["id"],
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	ledger, err := h.loadCart(r, session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setQuantityResponse{
		Quantity:     applied,
		cartResponse: cartResponse{Cart: h.queryHandler.CartView(ledger), Badges: badges},
	})
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	badges, err := h.cmdHandler.RemoveFromCart(r.Context(), command.RemoveFromCart{
		SessionID: session,
		EventID:   mux.Vars(r)["id"],
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.respondCart(w, r, session, badges)
}

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, session string, badges query.Badges) {
	ledger, err := h.loadCart(r, session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Cart: h.queryHandler.CartView(ledger), Badges: badges})
}

// Favorites Handlers

func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	set, err := h.loadFavorites(r, middleware.GetSession(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queryHandler.FavoritesView(set))
}

func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favorite, badges, err := h.cmdHandler.ToggleFavorite(r.Context(), command.ToggleFavorite{
		SessionID: middleware.GetSession(r.Context()),
		EventID:   mux.Vars(r)["id"],
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"favorite": favorite, "badges": badges})
}

// Order Handlers

type checkoutResponse struct {
	Order   order.Order `json:"order"`
	Warning string      `json:"warning,omitempty"`
}

// Checkout places the order. When the order is recorded but the cart could
// not be emptied the response is still 201 and carries a warning.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var buyer order.Buyer
	if err := json.NewDecoder(r.Body).Decode(&buyer); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.cmdHandler.Checkout(r.Context(), command.Checkout{
		SessionID: middleware.GetSession(r.Context()),
		Buyer:     buyer,
	})
	switch {
	case errors.Is(err, command.ErrCartNotCleared):
		respondJSON(w, http.StatusCreated, checkoutResponse{Order: o, Warning: err.Error()})
	case err != nil:
		respondDomainError(w, r, err)
	default:
		respondJSON(w, http.StatusCreated, checkoutResponse{Order: o})
	}
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.gateway.Orders(r.Context(), middleware.GetSession(r.Context()))
	if err != nil && !errors.Is(err, persistence.ErrStorageCorrupt) {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// Badge Handlers

func (h *Handlers) GetBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.cmdHandler.Badges(r.Context(), middleware.GetSession(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, badges)
}

// Stream upgrades to a WebSocket that receives badge updates for the
// session.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, "streaming disabled", http.StatusNotFound)
		return
	}
	session := middleware.GetSession(r.Context())
	badges, err := h.cmdHandler.Badges(r.Context(), session)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.hub.Serve(w, r, session, badges)
}

// loadCart treats a corrupt entry as empty, matching the command side.
func (h *Handlers) loadCart(r *http.Request, session string) (*cart.Ledger, error) {
	ledger, err := h.gateway.LoadCart(r.Context(), session)
	if errors.Is(err, persistence.ErrStorageCorrupt) {
		logging.FromContext(r.Context()).Warn().Err(err).Str("session", session).Msg("cart reset")
		return ledger, nil
	}
	return ledger, err
}

func (h *Handlers) loadFavorites(r *http.Request, session string) (*favorites.Set, error) {
	set, err := h.gateway.LoadFavorites(r.Context(), session)
	if errors.Is(err, persistence.ErrStorageCorrupt) {
		logging.FromContext(r.Context()).Warn().Err(err).Str("session", session).Msg("favorites reset")
		return set, nil
	}
	return set, err
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
