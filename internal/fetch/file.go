package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/roach88/geodiff/internal/feature"
)

// fileFetcher reads a GeoJSON document from a local path or an HTTP URL.
// Environment variables in local paths are expanded, so configurations
// can say $DATA_DIR/wells.geojson. Documents without a crs member are
// taken as WGS 84, per the GeoJSON default.
type fileFetcher struct {
	layer    string
	location string
	fields   []string
	client   *http.Client
}

func (f *fileFetcher) Fetch(ctx context.Context) (*feature.Table, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(f.location, "http://") || strings.HasPrefix(f.location, "https://") {
		body, err = getJSON(ctx, f.client, f.location)
	} else {
		body, err = os.ReadFile(os.ExpandEnv(f.location))
	}
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", f.layer, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("layer %s: decode %s: %w", f.layer, f.location, err)
	}
	crs, err := crsOf(fc, 4326)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", f.layer, err)
	}

	table := tableFromFeatures(f.layer, crs, fc.Features)
	if err := validateTable(table, f.fields); err != nil {
		return nil, err
	}
	return table, nil
}
