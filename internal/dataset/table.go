// Package dataset describes materializable tables independently of where
// they are written.
package dataset

import (
	"fmt"
	"time"

	"martflow/internal/money"
)

// ColumnType is the logical type of a column.
type ColumnType string

const (
	Integer ColumnType = "INTEGER"
	Text    ColumnType = "TEXT"
	Decimal ColumnType = "DECIMAL"
	Date    ColumnType = "DATE"
)

// DateLayout is the canonical rendering of Date values.
const DateLayout = "2006-01-02"

// Column is a named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is a fully materialized result set. Row values are int64, string,
// money.Amount, time.Time or nil, matching the column type.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Validate checks every row has one value per column with a matching type.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table %s row %d: %d values for %d columns", t.Name, i, len(row), len(t.Columns))
		}
		for j, v := range row {
			if v == nil {
				continue
			}
			if !matches(t.Columns[j].Type, v) {
				return fmt.Errorf("table %s row %d column %s: unexpected %T", t.Name, i, t.Columns[j].Name, v)
			}
		}
	}
	return nil
}

func matches(ct ColumnType, v any) bool {
	switch v.(type) {
	case int64:
		return ct == Integer
	case string:
		return ct == Text
	case money.Amount:
		return ct == Decimal
	case time.Time:
		return ct == Date
	default:
		return false
	}
}

// Format renders a value as text. Nil renders as the empty string so CSV
// output distinguishes nothing from a zero.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return fmt.Sprintf("%d", x)
	case string:
		return x
	case money.Amount:
		return x.String()
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// FormatRow renders every value of a row.
func FormatRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = Format(v)
	}
	return out
}

// Nullable converts an optional amount to a row value.
func Nullable(a *money.Amount) any {
	if a == nil {
		return nil
	}
	return *a
}
