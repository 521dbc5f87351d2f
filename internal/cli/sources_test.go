package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyConfig = `[{"out_layer": "parks", "protocol": "file", "source": "./parks.geojson", "fields": ["name"], "schedule": "D"}]`

const monthlyConfig = `- out_layer: trails
  protocol: file
  source: ./trails.geojson
  fields:
    - name
  schedule: M
`

// writeTree lays out a sources directory from relative path -> content.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func execSources(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewSourcesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSourcesCommand_Lists(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"nanaimo/parks.json":  dailyConfig,
		"victoria.yaml":       monthlyConfig,
		"_drafts/future.json": dailyConfig,
		"_scratch.json":       dailyConfig,
		"README.md":           "not a config",
	})

	out, _, err := execSources(t, "--path", dir)
	require.NoError(t, err)

	assert.Equal(t, "nanaimo/parks\nvictoria\n", out)
}

func TestSourcesCommand_ScheduleFilter(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"daily.json":   dailyConfig,
		"monthly.yaml": monthlyConfig,
		"broken.json":  `{"out_layer":`,
	})

	out, errOut, err := execSources(t, "--path", dir, "--schedule", "M")
	require.NoError(t, err)

	assert.Equal(t, "monthly\n", out)
	assert.Contains(t, errOut, "skipping unparseable configuration")
	assert.Contains(t, errOut, "broken.json")
}

func TestSourcesCommand_JSONFormat(t *testing.T) {
	dir := writeTree(t, map[string]string{"daily.json": dailyConfig})

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewSourcesCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"--path", dir})
	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []any{"daily"}, resp.Data)
}

func TestSourcesCommand_MissingDirectory(t *testing.T) {
	_, _, err := execSources(t, "--path", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSourcesCommand_InvalidSchedule(t *testing.T) {
	dir := writeTree(t, map[string]string{"daily.json": dailyConfig})

	_, _, err := execSources(t, "--path", dir, "--schedule", "hourly")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid schedule")
}
