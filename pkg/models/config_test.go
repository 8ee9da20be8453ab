package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigYAMLLayout(t *testing.T) {
	raw := `
project: ecommerce_analytics
sources:
  format: csv
  path: seeds
segments:
  - name: high_value
    min_revenue: "300"
  - name: low_value
target: local
targets:
  local:
    type: sqlite
    path: martflow.db
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "ecommerce_analytics", cfg.Project)
	assert.Equal(t, "csv", cfg.Sources.Format)
	require.Len(t, cfg.Segments, 2)
	assert.Equal(t, "300", cfg.Segments[0].MinRevenue)
	assert.Empty(t, cfg.Segments[1].MinRevenue)

	name, target, ok := cfg.ActiveTarget()
	assert.True(t, ok)
	assert.Equal(t, "local", name)
	assert.Equal(t, "sqlite", target.Type)
}

func TestActiveTargetMissing(t *testing.T) {
	cfg := Config{Target: "prod"}
	_, _, ok := cfg.ActiveTarget()
	assert.False(t, ok)
}
