// Package report renders per-layer run summaries: the comparison
// counters plus any duplicate records dropped during key generation,
// and their ticket-ready issue form written to issues.json.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/roach88/geodiff/internal/diff"
	"github.com/roach88/geodiff/internal/feature"
)

// LayerReport is the run summary for one layer. Field order follows the
// change report schema downstream tooling consumes.
type LayerReport struct {
	Layer string `json:"layer"`
	diff.Summary
	NDuplicates  int    `json:"n_duplicates"`
	DuplicateIDs string `json:"duplicate_ids,omitempty"`
}

// New assembles a layer report from a comparison summary and the
// duplicate report of the run's key generation.
func New(layer string, s diff.Summary, dups feature.DuplicateReport) LayerReport {
	r := LayerReport{Layer: layer, Summary: s, NDuplicates: len(dups)}
	if len(dups) > 0 {
		r.DuplicateIDs = strings.Join(dups.IDs(), ",")
	}
	return r
}

// Issue is one ticket-ready rendering of a layer report.
type Issue struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewIssue renders a report as an issue. The title qualifies the layer
// with the administrative prefix; the body lists duplicate counters
// first, then the change counters, one "key: value" pair per line,
// joined with HTML line breaks.
func NewIssue(prefix string, r LayerReport) Issue {
	return Issue{
		Title: "Data changes: " + path.Join(prefix, r.Layer),
		Body:  strings.Join(r.bodyLines(), "<br />"),
	}
}

func (r LayerReport) bodyLines() []string {
	var lines []string
	add := func(key string, value any) {
		lines = append(lines, fmt.Sprintf("%s: %v", key, value))
	}

	if r.NDuplicates > 0 {
		add("n_duplicates", r.NDuplicates)
		add("duplicate_ids", r.DuplicateIDs)
	}
	add("record_count_original", r.RecordCountOriginal)
	add("record_count_new", r.RecordCountNew)
	add("record_count_difference", r.RecordCountDifference)
	add("record_count_difference_pct", r.RecordCountDifferencePct)
	add("n_unchanged", r.Unchanged)
	add("n_deletions", r.Deletions)
	add("n_additions", r.Additions)
	add("n_modified", r.Modified)
	add("n_modified_spatial_only", r.ModifiedSpatialOnly)
	add("n_modified_spatial_attributes", r.ModifiedSpatialAttributes)
	add("n_modified_attributes_only", r.ModifiedAttributesOnly)
	return lines
}

// Render marshals v as indented JSON without HTML escaping, so issue
// bodies keep their literal <br /> separators. The output ends with a
// newline.
func Render(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteIssues writes the collected issues as a JSON array. A run with
// no issues still writes the file, with an empty array, so consumers
// can rely on its presence.
func WriteIssues(file string, issues []Issue) error {
	if issues == nil {
		issues = []Issue{}
	}
	data, err := Render(issues)
	if err != nil {
		return fmt.Errorf("write issues: %w", err)
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("write issues: %w", err)
	}
	return nil
}
