package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/roach88/geodiff/internal/config"
	"github.com/roach88/geodiff/internal/feature"
)

// esriFetcher pages through an ArcGIS REST feature service query
// endpoint. Results are requested as GeoJSON in WGS 84; the server
// decides the page size and flags truncation with exceededTransferLimit.
type esriFetcher struct {
	layer   string
	baseURL string
	where   string
	fields  []string
	client  *http.Client
}

func newESRIFetcher(src config.Source, client *http.Client) *esriFetcher {
	where := src.Query
	if where == "" {
		where = "1=1"
	}
	return &esriFetcher{
		layer:   src.OutLayer,
		baseURL: strings.TrimRight(src.Location, "/"),
		where:   where,
		fields:  src.Fields,
		client:  client,
	}
}

func (f *esriFetcher) Fetch(ctx context.Context) (*feature.Table, error) {
	var features []*geojson.Feature
	offset := 0
	for {
		page, exceeded, err := f.page(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", f.layer, err)
		}
		features = append(features, page...)
		if !exceeded || len(page) == 0 {
			break
		}
		offset += len(page)
	}

	table := tableFromFeatures(f.layer, 4326, features)
	if err := validateTable(table, f.fields); err != nil {
		return nil, err
	}
	return table, nil
}

// page requests one result window and reports whether the server
// truncated it.
func (f *esriFetcher) page(ctx context.Context, offset int) ([]*geojson.Feature, bool, error) {
	params := url.Values{
		"where":        {f.where},
		"outFields":    {strings.Join(f.fields, ",")},
		"outSR":        {"4326"},
		"f":            {"geojson"},
		"resultOffset": {strconv.Itoa(offset)},
	}
	body, err := getJSON(ctx, f.client, f.baseURL+"/query?"+params.Encode())
	if err != nil {
		return nil, false, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, false, fmt.Errorf("decode page at offset %d: %w", offset, err)
	}
	return fc.Features, exceededLimit(fc), nil
}

// exceededLimit reads the truncation flag, which servers place either at
// the top level of the GeoJSON document or under a "properties" member
// depending on version.
func exceededLimit(fc *geojson.FeatureCollection) bool {
	if v, ok := fc.ExtraMembers["exceededTransferLimit"].(bool); ok {
		return v
	}
	if props, ok := fc.ExtraMembers["properties"].(map[string]any); ok {
		if v, ok := props["exceededTransferLimit"].(bool); ok {
			return v
		}
	}
	return false
}
