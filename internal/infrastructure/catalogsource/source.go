// Package catalogsource reads the event catalog from a file or URL.
package catalogsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/example/cartelera/internal/domain/event"
	"github.com/goccy/go-yaml"
)

// ErrCatalogLoad matches every LoadError.
var ErrCatalogLoad = errors.New("catalog load failed")

// LoadError reports why the catalog at Location could not be used.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrCatalogLoad, e.Err} }

// HTTPClient is used for http(s) locations.
var HTTPClient = &http.Client{Timeout: 15 * time.Second}

// Load reads and validates the catalog. Paths ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. The document is either a list
// of records or an object with an "events" list.
func Load(ctx context.Context, location string) (*event.Catalog, error) {
	raw, err := read(ctx, location)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	records, err := decode(raw, isYAML(location))
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}

	catalog, err := event.NewCatalog(records)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	return catalog, nil
}

func read(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return os.ReadFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func isYAML(location string) bool {
	p := location
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

type envelope struct {
	Events []event.Record `json:"events" yaml:"events"`
}

func decode(raw []byte, asYAML bool) ([]event.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	if asYAML {
		var records []event.Record
		if err := yaml.Unmarshal(trimmed, &records); err == nil {
			return records, nil
		}
		var env envelope
		if err := yaml.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if env.Events == nil {
			return nil, errors.New("decode yaml: no events list")
		}
		return env.Events, nil
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		if env.Events == nil {
			return nil, errors.New("decode json: no events list")
		}
		return env.Events, nil
	}

	var records []event.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return records, nil
}
