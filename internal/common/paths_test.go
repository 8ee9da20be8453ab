package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	abs, err := CleanPath("target/csv")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	_, err = CleanPath("../outside")
	assert.Error(t, err)

	// a name that merely contains two dots is fine
	_, err = CleanPath("/tmp/report..v2")
	assert.NoError(t, err)
}

func TestJoinPath(t *testing.T) {
	base := t.TempDir()

	p, err := JoinPath(base, "dim_customers.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "dim_customers.csv"), p)

	_, err = JoinPath(base, "..", "escape.csv")
	assert.Error(t, err)
}

func TestValidatePathRejectsSiblingPrefix(t *testing.T) {
	base := t.TempDir()
	_, err := ValidatePath(base+"-other/file", base)
	assert.Error(t, err)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.NoError(t, EnsureDir(""))
}
