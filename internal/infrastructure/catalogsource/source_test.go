package catalogsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/cartelera/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `[
  {"id":"evt-1","title":"Noche de Rock","category":"musica","city":"Lima","venue":"Estadio",
   "datetime":"2025-06-01T20:00:00-05:00","priceFrom":50,"currency":"PEN","stock":10,
   "popularity":0.8,"soldOut":false,"images":["img/1.jpg"],"artists":["Mar de Copas"],
   "description":"Rock","policies":{"age":"18+","refund":"No"}},
  {"id":"evt-2","title":"Impro","category":"teatro","city":"Cusco","venue":"Sala",
   "datetime":"2025-06-02T19:00:00-05:00","priceFrom":25.5,"currency":"PEN","stock":0,
   "popularity":0.2,"soldOut":true,"images":["img/2.jpg"]}
]`

const catalogYAML = `events:
  - id: evt-1
    title: Noche de Rock
    category: musica
    city: Lima
    venue: Estadio
    datetime: 2025-06-01T20:00:00-05:00
    priceFrom: 50
    currency: PEN
    stock: 10
    popularity: 0.8
    images: [img/1.jpg]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_JSONFile(t *testing.T) {
	catalog, err := Load(context.Background(), writeFile(t, "event.json", catalogJSON))

	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	rec, ok := catalog.ByID("evt-1")
	require.True(t, ok)
	assert.Equal(t, event.CategoryMusic, rec.Category)
	assert.Equal(t, 50.0, rec.PriceFrom)
	assert.Equal(t, []string{"Mar de Copas"}, rec.Artists)
	assert.Equal(t, "18+", rec.Policies.Age)
	assert.True(t, rec.Datetime.Equal(time.Date(2025, time.June, 2, 1, 0, 0, 0, time.UTC)))

	sold, _ := catalog.ByID("evt-2")
	assert.True(t, sold.SoldOut)
}

func TestLoad_JSONEnvelope(t *testing.T) {
	catalog, err := Load(context.Background(), writeFile(t, "event.json", `{"events":`+catalogJSON+`}`))

	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
}

func TestLoad_YAMLFile(t *testing.T) {
	catalog, err := Load(context.Background(), writeFile(t, "events.yaml", catalogYAML))

	require.NoError(t, err)
	rec, ok := catalog.ByID("evt-1")
	require.True(t, ok)
	assert.Equal(t, "Estadio", rec.Venue)
	assert.Equal(t, 10, rec.Stock)
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/event.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(catalogJSON))
		case "/events.yml":
			_, _ = w.Write([]byte(catalogYAML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	catalog, err := Load(context.Background(), srv.URL+"/event.json")
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	catalog, err = Load(context.Background(), srv.URL+"/events.yml?v=2")
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	_, err = Load(context.Background(), srv.URL+"/missing.json")
	assert.ErrorIs(t, err, ErrCatalogLoad)
	assert.ErrorContains(t, err, "404")
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name     string
		location func(t *testing.T) string
		cause    error
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }, os.ErrNotExist},
		{"empty file", func(t *testing.T) string { return writeFile(t, "event.json", "  ") }, nil},
		{"malformed json", func(t *testing.T) string { return writeFile(t, "event.json", `[{"id":`) }, nil},
		{"object without events", func(t *testing.T) string { return writeFile(t, "event.json", `{"items":[]}`) }, nil},
		{"missing images", func(t *testing.T) string {
			return writeFile(t, "event.json", `[{"id":"evt-1","images":[]}]`)
		}, event.ErrInvalidEvent},
		{"duplicate ids", func(t *testing.T) string {
			return writeFile(t, "event.json", `[{"id":"a","images":["x"]},{"id":"a","images":["y"]}]`)
		}, event.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location := tt.location(t)
			_, err := Load(context.Background(), location)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCatalogLoad)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, location, loadErr.Location)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestIsYAML(t *testing.T) {
	assert.True(t, isYAML("catalog.yaml"))
	assert.True(t, isYAML("https://cdn.example.com/catalog.YML?v=1"))
	assert.False(t, isYAML("event.json"))
	assert.False(t, isYAML("https://cdn.example.com/catalog"))
}
