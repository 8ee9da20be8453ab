package source

import (
	"context"
	"fmt"

	"martflow/pkg/errors"
	"martflow/pkg/models"
)

// Reader loads the raw sources.
type Reader interface {
	Read(ctx context.Context) (*Raw, error)
}

// NewReader selects a reader by sources.format.
func NewReader(cfg models.Sources) (Reader, error) {
	switch cfg.Format {
	case "", "embedded":
		return EmbeddedReader{}, nil
	case "csv":
		return &CSVReader{Dir: cfg.Path}, nil
	case "xlsx":
		return &XLSXReader{Path: cfg.Path}, nil
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown source format %q", cfg.Format), "sources.format")
	}
}
