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

// bcgwEndpoint is the public WFS endpoint for the BC Geographic
// Warehouse, the default when a source names a bare type instead of a
// full service URL.
const bcgwEndpoint = "https://openmaps.gov.bc.ca/geo/pub/wfs"

// wfsPageSize is the GetFeature window requested per round trip.
const wfsPageSize = 10000

// wfsFetcher pages through an OGC WFS 2.0 endpoint with startIndex, in
// GeoJSON output, requesting BC Albers coordinates.
type wfsFetcher struct {
	layer    string
	endpoint string
	typeName string
	filter   string
	fields   []string
	pageSize int
	client   *http.Client
}

func newWFSFetcher(src config.Source, client *http.Client) (*wfsFetcher, error) {
	f := &wfsFetcher{
		layer:    src.OutLayer,
		filter:   src.Query,
		fields:   src.Fields,
		pageSize: wfsPageSize,
		client:   client,
	}

	// A URL location names the endpoint, with the type in source_layer.
	// A bare location is a BC Geographic Warehouse type name.
	if strings.HasPrefix(src.Location, "http://") || strings.HasPrefix(src.Location, "https://") {
		if src.SourceLayer == "" {
			return nil, fmt.Errorf("layer %s: wfs source with a service URL requires source_layer", src.OutLayer)
		}
		f.endpoint = src.Location
		f.typeName = src.SourceLayer
	} else {
		f.endpoint = bcgwEndpoint
		f.typeName = src.Location
	}
	return f, nil
}

func (f *wfsFetcher) Fetch(ctx context.Context) (*feature.Table, error) {
	var (
		features []*geojson.Feature
		crs      = 3005
		start    = 0
	)
	for {
		fc, err := f.page(ctx, start)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", f.layer, err)
		}
		if start == 0 {
			crs, err = crsOf(fc, 3005)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", f.layer, err)
			}
		}
		features = append(features, fc.Features...)
		if len(fc.Features) < f.pageSize {
			break
		}
		start += len(fc.Features)
	}

	table := tableFromFeatures(f.layer, crs, features)
	if err := validateTable(table, f.fields); err != nil {
		return nil, err
	}
	return table, nil
}

func (f *wfsFetcher) page(ctx context.Context, start int) (*geojson.FeatureCollection, error) {
	params := url.Values{
		"service":      {"WFS"},
		"version":      {"2.0.0"},
		"request":      {"GetFeature"},
		"typeNames":    {f.typeName},
		"outputFormat": {"application/json"},
		"srsName":      {"EPSG:3005"},
		"count":        {strconv.Itoa(f.pageSize)},
		"startIndex":   {strconv.Itoa(start)},
	}
	if f.filter != "" {
		params.Set("CQL_FILTER", f.filter)
	}

	body, err := getJSON(ctx, f.client, f.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode page at startIndex %d: %w", start, err)
	}
	return fc, nil
}
