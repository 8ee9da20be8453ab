// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"martflow/internal/common"
	"martflow/internal/pipeline"
	"martflow/internal/source"
)

// DemoRaw reads the bundled demo seeds.
func DemoRaw(t *testing.T) *source.Raw {
	t.Helper()
	raw, err := source.EmbeddedReader{}.Read(context.Background())
	require.NoError(t, err)
	return raw
}

// DemoResults runs the pipeline over the demo seeds.
func DemoResults(t *testing.T) *pipeline.Results {
	t.Helper()
	res, err := pipeline.NewRunner(pipeline.Options{}).Run(context.Background(), DemoRaw(t))
	require.NoError(t, err)
	return res
}

// WriteFile writes content below dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal))
	require.NoError(t, os.WriteFile(path, []byte(content), common.FilePermissionSecure))
	return path
}

// CopySeeds writes the demo seed CSVs into dir. Replacements rewrite
// individual lines, keyed by the exact original line.
func CopySeeds(t *testing.T, dir string, replacements map[string]string) {
	t.Helper()
	seeds := source.SeedFiles()
	entries, err := fs.ReadDir(seeds, ".")
	require.NoError(t, err)

	for _, e := range entries {
		data, err := fs.ReadFile(seeds, e.Name())
		require.NoError(t, err)

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if repl, ok := replacements[strings.TrimRight(line, "\r")]; ok {
				lines[i] = repl
			}
		}
		WriteFile(t, dir, e.Name(), strings.Join(lines, "\n"))
	}
}

// NewProject creates a project directory holding martflow.yaml.
func NewProject(t *testing.T, configYAML string) string {
	t.Helper()
	dir := t.TempDir()
	if configYAML != "" {
		WriteFile(t, dir, "martflow.yaml", configYAML)
	}
	return dir
}
