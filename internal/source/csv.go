package source

import (
	"context"
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"martflow/pkg/errors"
)

// CSVReader reads raw_customers.csv, raw_orders.csv and raw_products.csv
// from a directory.
type CSVReader struct {
	Dir string
}

// Read implements Reader.
func (r *CSVReader) Read(ctx context.Context) (*Raw, error) {
	return readCSVTables(ctx, os.DirFS(r.Dir), r.Dir)
}

func readCSVTables(ctx context.Context, fsys fs.FS, root string) (*Raw, error) {
	raw := &Raw{}
	for _, table := range Tables() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCanceled, "source read canceled")
		}

		name := table + ".csv"
		path := filepath.Join(root, name)

		f, err := fsys.Open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, errors.SourceError(errors.ErrCodeSourceNotFound, "source file not found", path, err)
			}
			return nil, errors.SourceError(errors.ErrCodeSourceRead, "cannot open source file", path, err)
		}

		head, rows, err := readCSV(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.SourceError(errors.ErrCodeSourceRead, "cannot parse "+name, path, err)
		}
		if head == nil {
			return nil, errors.SourceError(errors.ErrCodeSourceFormat, name+" has no header row", path, nil)
		}

		if err := decodeTable(raw, table, path, head, rows); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// readCSV returns the header and every data row, each tagged with
// the line it starts on.
func readCSV(r io.Reader) ([]string, []record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var head []string
	var rows []record
	for {
		values, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if head == nil {
			head = values
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, record{line: line, values: values})
	}
	return head, rows, nil
}
