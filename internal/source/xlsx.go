package source

import (
	"context"

	"github.com/xuri/excelize/v2"

	"martflow/pkg/errors"
)

// XLSXReader reads one workbook with a sheet per raw table.
type XLSXReader struct {
	Path string
}

// Read implements Reader.
func (r *XLSXReader) Read(ctx context.Context) (*Raw, error) {
	f, err := excelize.OpenFile(r.Path)
	if err != nil {
		return nil, errors.SourceError(errors.ErrCodeSourceNotFound, "cannot open workbook", r.Path, err)
	}
	defer f.Close()

	raw := &Raw{}
	for _, table := range Tables() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCanceled, "source read canceled")
		}

		if idx, _ := f.GetSheetIndex(table); idx < 0 {
			return nil, errors.SourceError(errors.ErrCodeSourceNotFound, "workbook has no sheet "+table, r.Path, nil).
				WithContext("table", table)
		}

		sheetRows, err := f.GetRows(table)
		if err != nil {
			return nil, errors.SourceError(errors.ErrCodeSourceRead, "cannot read sheet "+table, r.Path, err)
		}
		if len(sheetRows) == 0 {
			return nil, errors.SourceError(errors.ErrCodeSourceFormat, "sheet "+table+" has no header row", r.Path, nil)
		}

		var rows []record
		for i, values := range sheetRows[1:] {
			// a row without cells is the sheet form of an empty CSV line
			if len(values) == 0 {
				continue
			}
			// sheet rows are 1-based and the header occupies row 1
			rows = append(rows, record{line: i + 2, values: values})
		}

		if err := decodeTable(raw, table, r.Path, sheetRows[0], rows); err != nil {
			return nil, err
		}
	}
	return raw, nil
}
