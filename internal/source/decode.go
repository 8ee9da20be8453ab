package source

import (
	"fmt"
	"strings"

	"martflow/pkg/errors"
)

// record is one data row with the line it was read from.
type record struct {
	line   int
	values []string
}

// header maps a column name to its position in a row.
type header map[string]int

// parseHeader matches the required columns by name, ignoring order, case
// and surrounding whitespace. Extra columns are ignored.
func parseHeader(table, path string, row []string, required []string) (header, error) {
	h := header{}
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.SourceError(errors.ErrCodeSourceFormat,
			fmt.Sprintf("%s is missing columns: %s", table, strings.Join(missing, ", ")), path, nil).
			WithContext("table", table)
	}
	return h, nil
}

// get returns the named cell, or "" when the row is short.
func (h header) get(values []string, col string) string {
	i := h[col]
	if i >= len(values) {
		return ""
	}
	return values[i]
}

// decodeTable turns header plus records into the typed raw slice for table.
func decodeTable(raw *Raw, table, path string, head []string, rows []record) error {
	switch table {
	case CustomersTable:
		h, err := parseHeader(table, path, head, customerColumns)
		if err != nil {
			return err
		}
		for _, r := range rows {
			raw.Customers = append(raw.Customers, RawCustomer{
				Line:       r.line,
				CustomerID: h.get(r.values, "customer_id"),
				Name:       h.get(r.values, "name"),
				Email:      h.get(r.values, "email"),
				Region:     h.get(r.values, "region"),
				SignupDate: h.get(r.values, "signup_date"),
			})
		}
	case OrdersTable:
		h, err := parseHeader(table, path, head, orderColumns)
		if err != nil {
			return err
		}
		for _, r := range rows {
			raw.Orders = append(raw.Orders, RawOrder{
				Line:       r.line,
				OrderID:    h.get(r.values, "order_id"),
				CustomerID: h.get(r.values, "customer_id"),
				ProductID:  h.get(r.values, "product_id"),
				Quantity:   h.get(r.values, "quantity"),
				UnitPrice:  h.get(r.values, "unit_price"),
				OrderDate:  h.get(r.values, "order_date"),
				Status:     h.get(r.values, "status"),
			})
		}
	case ProductsTable:
		h, err := parseHeader(table, path, head, productColumns)
		if err != nil {
			return err
		}
		for _, r := range rows {
			raw.Products = append(raw.Products, RawProduct{
				Line:      r.line,
				ProductID: h.get(r.values, "product_id"),
				Name:      h.get(r.values, "name"),
				Category:  h.get(r.values, "category"),
				UnitCost:  h.get(r.values, "unit_cost"),
			})
		}
	default:
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("unknown source table %q", table))
	}
	return nil
}

// Tables lists the raw table names in read order.
func Tables() []string {
	return []string{CustomersTable, OrdersTable, ProductsTable}
}
