// Package fetch downloads source layers and hands them to the pipeline
// as raw tables.
//
// Each configured protocol maps to one Fetcher implementation, resolved
// once from the source definition. The rest of the pipeline never
// inspects protocol tags; it sees only the Fetcher interface and the
// tables it produces. All fetchers validate the same contract on the way
// out: at least one record, every configured field present, and a
// declared CRS.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/roach88/geodiff/internal/config"
	"github.com/roach88/geodiff/internal/feature"
	"github.com/roach88/geodiff/internal/proj"
)

// Fetcher downloads one source layer. Implementations are safe to reuse
// across runs; each Fetch call is independent.
type Fetcher interface {
	Fetch(ctx context.Context) (*feature.Table, error)
}

// New resolves the Fetcher for a source definition. A nil client means
// http.DefaultClient.
func New(src config.Source, client *http.Client) (Fetcher, error) {
	if client == nil {
		client = http.DefaultClient
	}
	switch src.Protocol {
	case config.ProtocolESRI:
		return newESRIFetcher(src, client), nil
	case config.ProtocolWFS:
		return newWFSFetcher(src, client)
	case config.ProtocolFile:
		return &fileFetcher{
			layer:    src.OutLayer,
			location: src.Location,
			fields:   src.Fields,
			client:   client,
		}, nil
	default:
		return nil, fmt.Errorf("layer %s: unknown protocol %q", src.OutLayer, src.Protocol)
	}
}

// getJSON performs one GET and returns the body, treating any non-200
// status as an error.
func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", url, err)
	}
	return body, nil
}

// tableFromFeatures converts decoded GeoJSON features into a raw table.
// Field order is sorted for determinism; properties maps carry no order
// of their own.
func tableFromFeatures(layer string, crs int, features []*geojson.Feature) *feature.Table {
	var fields []string
	seen := make(map[string]bool)
	rows := make([]feature.Row, len(features))
	for i, f := range features {
		attrs := make(map[string]feature.Value, len(f.Properties))
		for k, v := range f.Properties {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
			attrs[k] = feature.ValueOf(v)
		}
		rows[i] = feature.Row{Attrs: attrs, Geom: f.Geometry}
	}
	sort.Strings(fields)
	return &feature.Table{Layer: layer, CRS: crs, Fields: fields, Rows: rows}
}

// validateTable enforces the download contract: records exist, every
// configured field is present (case-insensitively), and the CRS is
// known.
func validateTable(t *feature.Table, fields []string) error {
	if len(t.Rows) == 0 {
		return &feature.EmptyDatasetError{Layer: t.Layer}
	}
	for _, want := range fields {
		found := false
		for _, col := range t.Fields {
			if strings.EqualFold(col, want) {
				found = true
				break
			}
		}
		if !found {
			return &feature.MissingFieldError{Layer: t.Layer, Field: want}
		}
	}
	if t.CRS == 0 {
		return &feature.MissingCRSError{Layer: t.Layer}
	}
	return nil
}

// crsOf extracts the EPSG code from a GeoJSON crs member, falling back
// when the document carries none.
func crsOf(fc *geojson.FeatureCollection, fallback int) (int, error) {
	raw, ok := fc.ExtraMembers["crs"].(map[string]any)
	if !ok {
		return fallback, nil
	}
	props, ok := raw["properties"].(map[string]any)
	if !ok {
		return fallback, nil
	}
	name, ok := props["name"].(string)
	if !ok {
		return fallback, nil
	}
	return proj.ParseCRS(name)
}
