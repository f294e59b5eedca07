package view

import (
	"net/url"
	"strings"
)

type RouteName string

const (
	RouteCatalog   RouteName = "catalog"
	RouteEvent     RouteName = "event"
	RouteCart      RouteName = "cart"
	RouteFavorites RouteName = "favorites"
	RouteCheckout  RouteName = "checkout"
)

// Route is a parsed navigation target such as "#/event/evt-1" or
// "#/catalog?page=2".
type Route struct {
	Name    RouteName
	EventID string
	Params  url.Values
}

// ParseRoute interprets a hash fragment. Unrecognised paths fall back to
// the catalog; malformed query strings keep whatever pairs could be read.
func ParseRoute(hash string) Route {
	raw := strings.TrimPrefix(hash, "#")
	raw = strings.TrimPrefix(raw, "/")
	path, qs, _ := strings.Cut(raw, "?")
	params, _ := url.ParseQuery(qs)
	if params == nil {
		params = url.Values{}
	}

	switch {
	case strings.HasPrefix(path, "event/"):
		id, _, _ := strings.Cut(strings.TrimPrefix(path, "event/"), "/")
		if unescaped, err := url.PathUnescape(id); err == nil {
			id = unescaped
		}
		return Route{Name: RouteEvent, EventID: id, Params: params}
	case path == string(RouteCart):
		return Route{Name: RouteCart, Params: params}
	case path == string(RouteFavorites):
		return Route{Name: RouteFavorites, Params: params}
	case path == string(RouteCheckout):
		return Route{Name: RouteCheckout, Params: params}
	}
	return Route{Name: RouteCatalog, Params: params}
}

// State decodes the catalog view state carried by the route parameters.
func (r Route) State() State {
	return FromValues(r.Params)
}

// String renders the route as a hash fragment. Catalog routes carry the
// canonical encoding of their state.
func (r Route) String() string {
	switch r.Name {
	case RouteEvent:
		return "#/event/" + url.PathEscape(r.EventID)
	case RouteCart, RouteFavorites, RouteCheckout:
		return "#/" + string(r.Name)
	}
	return CatalogHash(r.State())
}

// CatalogHash is the hash fragment for a catalog view.
func CatalogHash(s State) string {
	return "#/catalog?" + QueryString(s)
}
