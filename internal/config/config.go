// Package config loads and validates source configuration files.
//
// A configuration file is a JSON or YAML list of source definitions.
// Every file is validated against the embedded CUE schema before
// decoding, so shape errors (wrong types, unknown protocols, malformed
// layer names) are reported with the schema's vocabulary rather than as
// decode panics deeper in the pipeline. A second pass applies the
// relational checks CUE cannot express, such as key fields being a
// subset of the retained fields.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Protocol identifies how a source is fetched.
type Protocol string

const (
	ProtocolESRI Protocol = "esri" // ArcGIS REST feature service, paged
	ProtocolWFS  Protocol = "wfs"  // OGC WFS 2.0 GetFeature, paged
	ProtocolFile Protocol = "file" // GeoJSON document, local path or URL
)

// Schedule tags a source with its download cadence.
type Schedule string

const (
	ScheduleDaily     Schedule = "D"
	ScheduleWeekly    Schedule = "W"
	ScheduleMonthly   Schedule = "M"
	ScheduleQuarterly Schedule = "Q"
	ScheduleAnnual    Schedule = "A"
)

// ParseSchedule resolves a case-insensitive schedule tag.
func ParseSchedule(s string) (Schedule, error) {
	switch Schedule(strings.ToUpper(strings.TrimSpace(s))) {
	case ScheduleDaily:
		return ScheduleDaily, nil
	case ScheduleWeekly:
		return ScheduleWeekly, nil
	case ScheduleMonthly:
		return ScheduleMonthly, nil
	case ScheduleQuarterly:
		return ScheduleQuarterly, nil
	case ScheduleAnnual:
		return ScheduleAnnual, nil
	default:
		return "", fmt.Errorf("unknown schedule %q (valid: D, W, M, Q, A)", s)
	}
}

// Source is one layer to download and diff. Field names mirror the
// configuration file keys.
type Source struct {
	OutLayer    string   `json:"out_layer"`
	Protocol    Protocol `json:"protocol"`
	Location    string   `json:"source"`
	SourceLayer string   `json:"source_layer,omitempty"`
	Query       string   `json:"query,omitempty"`
	Fields      []string `json:"fields"`
	PrimaryKey  []string `json:"primary_key,omitempty"`
	HashFields  []string `json:"hash_fields,omitempty"`
	MetadataURL string   `json:"metadata_url,omitempty"`
	Schedule    Schedule `json:"schedule"`
}

// Load reads and validates one configuration file.
func Load(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Parse validates configuration bytes against the schema and decodes
// them. YAML is a superset of JSON, so both formats take the same path.
// The filename appears in errors only.
func Parse(data []byte, filename string) ([]Source, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &FileError{File: filename, Detail: err.Error()}
	}
	if raw == nil {
		return nil, &FileError{File: filename, Detail: "configuration is empty"}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	sources := schema.LookupPath(cue.ParsePath("#Sources"))
	if err := sources.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Sources: %w", err)
	}

	unified := sources.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &FileError{File: filename, Detail: cueerrors.Details(err, nil)}
	}

	var out []Source
	if err := unified.Decode(&out); err != nil {
		return nil, &FileError{File: filename, Detail: err.Error()}
	}
	if err := check(out); err != nil {
		return nil, err
	}
	return out, nil
}

// check applies the relational constraints the schema cannot express.
func check(sources []Source) error {
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if seen[src.OutLayer] {
			return &ValidationError{Layer: src.OutLayer, Field: "out_layer", Message: "layer name is used more than once"}
		}
		seen[src.OutLayer] = true

		if len(src.Fields) == 0 {
			return &ValidationError{Layer: src.OutLayer, Field: "fields", Message: "at least one field is required"}
		}
		if err := subset(src.PrimaryKey, src.Fields); err != nil {
			return &ValidationError{Layer: src.OutLayer, Field: "primary_key", Message: err.Error()}
		}
		if err := subset(src.HashFields, src.Fields); err != nil {
			return &ValidationError{Layer: src.OutLayer, Field: "hash_fields", Message: err.Error()}
		}
	}
	return nil
}

// subset verifies every listed name appears in fields, ignoring case.
func subset(names, fields []string) error {
	for _, n := range names {
		found := false
		for _, f := range fields {
			if strings.EqualFold(n, f) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%q is not listed in fields", n)
		}
	}
	return nil
}

// FilterLayer returns the sources whose out_layer matches name. An empty
// name keeps everything.
func FilterLayer(sources []Source, name string) []Source {
	if name == "" {
		return sources
	}
	var out []Source
	for _, src := range sources {
		if src.OutLayer == name {
			out = append(out, src)
		}
	}
	return out
}

// FilterSchedule returns the sources tagged with the given schedule. An
// empty schedule keeps everything.
func FilterSchedule(sources []Source, schedule Schedule) []Source {
	if schedule == "" {
		return sources
	}
	var out []Source
	for _, src := range sources {
		if src.Schedule == schedule {
			out = append(out, src)
		}
	}
	return out
}
