package warehouse

import (
	"context"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"martflow/internal/common"
	"martflow/internal/dataset"
	"martflow/internal/money"
	"martflow/pkg/errors"
)

const defaultSheet = "Sheet1"

// XLSXWriter writes every table as a sheet of one workbook.
type XLSXWriter struct {
	path string
	log  *zap.Logger
}

// NewXLSXWriter creates an XLSXWriter for path.
func NewXLSXWriter(path string, log *zap.Logger) *XLSXWriter {
	return &XLSXWriter{path: path, log: log}
}

// Write implements Writer. The workbook is rebuilt from scratch.
func (w *XLSXWriter) Write(ctx context.Context, tables []dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	keepDefault := false
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeCanceled, "write canceled")
		}
		if t.Name == defaultSheet {
			keepDefault = true
		}
		if err := writeSheet(f, t); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write sheet").
				WithContext("table", t.Name)
		}
	}
	if !keepDefault && len(tables) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to tidy workbook")
		}
	}

	if err := common.EnsureDir(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create output directory")
	}
	if err := f.SaveAs(w.path); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to save workbook").
			WithContext("path", w.path)
	}

	for _, t := range tables {
		w.log.Info("table materialized", zap.String("target", "xlsx"), zap.String("table", t.Name), zap.Int("rows", t.Len()))
	}
	return nil
}

func writeSheet(f *excelize.File, t dataset.Table) error {
	if _, err := f.NewSheet(t.Name); err != nil {
		return err
	}

	header := make([]any, len(t.Columns))
	for i, name := range t.ColumnNames() {
		header[i] = name
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := sheetValues(row)
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// sheetValues keeps integers numeric, writes amounts as numbers and dates as
// ISO text so spreadsheets sort them correctly without locale surprises.
func sheetValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
			out[i] = nil
		case money.Amount:
			out[i] = x.Float64()
		case int64, string:
			out[i] = x
		default:
			out[i] = dataset.Format(x)
		}
	}
	return out
}

// Close implements Writer.
func (w *XLSXWriter) Close() error { return nil }
