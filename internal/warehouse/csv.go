package warehouse

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"martflow/internal/common"
	"martflow/internal/dataset"
	"martflow/pkg/errors"
)

// CSVWriter writes one <table>.csv per table into a directory.
type CSVWriter struct {
	dir string
	log *zap.Logger
}

// NewCSVWriter creates a CSVWriter for dir.
func NewCSVWriter(dir string, log *zap.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, log: log}
}

// Write implements Writer. Each file is written to a temporary name and
// renamed, so readers never see a half-written table.
func (w *CSVWriter) Write(ctx context.Context, tables []dataset.Table) error {
	if err := common.EnsureDir(w.dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create output directory").
			WithContext("path", w.dir)
	}

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeCanceled, "write canceled")
		}

		path, err := common.JoinPath(w.dir, t.Name+".csv")
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeFilePermission, "invalid table file name").
				WithContext("table", t.Name)
		}

		if err := writeCSV(path, t); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write table").
				WithContext("table", t.Name).
				WithContext("path", path)
		}
		w.log.Info("table materialized", zap.String("target", "csv"), zap.String("table", t.Name), zap.Int("rows", t.Len()))
	}
	return nil
}

func writeCSV(path string, t dataset.Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+t.Name+"-*.csv")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	cw := csv.NewWriter(tmp)
	if err = cw.Write(t.ColumnNames()); err != nil {
		_ = tmp.Close()
		return err
	}
	for _, row := range t.Rows {
		if err = cw.Write(dataset.FormatRow(row)); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), common.FilePermissionNormal); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Close implements Writer.
func (w *CSVWriter) Close() error { return nil }
