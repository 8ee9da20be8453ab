package source

import (
	"context"
	"embed"
	"io/fs"
)

//go:embed seeds/*.csv
var seeds embed.FS

// EmbeddedReader serves the demo dataset compiled into the binary.
type EmbeddedReader struct{}

// Read implements Reader.
func (EmbeddedReader) Read(ctx context.Context) (*Raw, error) {
	sub, err := fs.Sub(seeds, "seeds")
	if err != nil {
		return nil, err
	}
	return readCSVTables(ctx, sub, "embedded:seeds")
}

// SeedFiles exposes the bundled CSV files so `martflow init` can copy them
// into a new project.
func SeedFiles() fs.FS {
	sub, _ := fs.Sub(seeds, "seeds")
	return sub
}
