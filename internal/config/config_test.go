package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martflow/pkg/errors"
	"martflow/pkg/models"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	cfg, err := Load(Options{ProjectDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "embedded", cfg.Sources.Format)
	assert.True(t, cfg.Pipeline.Parallel)
	assert.Equal(t, "local", cfg.Target)
	assert.Equal(t, DefaultSegments(), cfg.Segments)
	assert.Equal(t, filepath.Join(dir, "target", "martflow.db"), cfg.Targets["local"].Path)
	assert.Equal(t, filepath.Join(dir, "target", "run_results.json"), cfg.Manifest.Path)
}

func TestLoadFromProjectDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	writeConfig(t, dir, `
project: shop
sources:
  format: csv
  path: seeds
pipeline:
  parallel: false
  as_of: "2024-03-31"
segments:
  - name: gold
    min_revenue: "500"
  - name: rest
target: files
targets:
  files:
    type: csv
    path: out
tests:
  warn: [assert_no_future_orders]
`)

	cfg, err := Load(Options{ProjectDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.Project)
	assert.Equal(t, filepath.Join(dir, "seeds"), cfg.Sources.Path)
	assert.False(t, cfg.Pipeline.Parallel)
	assert.Equal(t, "2024-03-31", cfg.Pipeline.AsOf)
	require.Len(t, cfg.Segments, 2)
	assert.Equal(t, "gold", cfg.Segments[0].Name)
	assert.Len(t, cfg.Targets, 1, "declared targets replace the defaults")
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Targets["files"].Path)
	assert.Equal(t, []string{"assert_no_future_orders"}, cfg.Tests.Warn)
}

func TestLoadTargetOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	cfg, err := Load(Options{ProjectDir: dir, Target: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Target)

	t.Setenv("MARTFLOW_TARGET", "csv")
	cfg, err = Load(Options{ProjectDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Target)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetErrorCode(err))
}

func TestLoadRejectsUnknownTarget(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	_, err := Load(Options{ProjectDir: dir, Target: "prod"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestValidateSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []models.Segment
		wantErr  string
	}{
		{name: "defaults", segments: DefaultSegments()},
		{name: "single catch-all", segments: []models.Segment{{Name: "all"}}},
		{name: "empty", segments: nil, wantErr: "at least one segment"},
		{
			name:     "catch-all not last",
			segments: []models.Segment{{Name: "a"}, {Name: "b", MinRevenue: "1"}},
			wantErr:  "not last",
		},
		{
			name:     "last has threshold",
			segments: []models.Segment{{Name: "a", MinRevenue: "10"}},
			wantErr:  "must not set min_revenue",
		},
		{
			name:     "not descending",
			segments: []models.Segment{{Name: "a", MinRevenue: "100"}, {Name: "b", MinRevenue: "100"}, {Name: "c"}},
			wantErr:  "not below",
		},
		{
			name:     "duplicate",
			segments: []models.Segment{{Name: "a", MinRevenue: "100"}, {Name: "a"}},
			wantErr:  "declared twice",
		},
		{
			name:     "bad amount",
			segments: []models.Segment{{Name: "a", MinRevenue: "lots"}, {Name: "b"}},
			wantErr:  "invalid amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegments(tt.segments)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	cfg.Sources.Format = "parquet"
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Sources.Format = "csv"
	assert.Error(t, Validate(cfg), "csv sources need a path")

	cfg = Default()
	cfg.Pipeline.AsOf = "31/03/2024"
	assert.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Targets["local"] = models.Target{Type: "bigquery"}
	assert.Error(t, Validate(cfg))
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg := Default()
	cfg.Project = "saved"
	require.NoError(t, Save(cfg, path))
	assert.True(t, Exists(dir))

	loaded, err := Load(Options{File: path})
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Project)
	assert.Equal(t, cfg.Segments, loaded.Segments)
}
