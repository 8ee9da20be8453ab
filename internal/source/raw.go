// Package source reads the three raw tables the pipeline starts from.
package source

import (
	"strconv"

	"martflow/internal/dataset"
)

// Raw table names, also used as file and sheet names.
const (
	CustomersTable = "raw_customers"
	OrdersTable    = "raw_orders"
	ProductsTable  = "raw_products"
)

var (
	customerColumns = []string{"customer_id", "name", "email", "region", "signup_date"}
	orderColumns    = []string{"order_id", "customer_id", "product_id", "quantity", "unit_price", "order_date", "status"}
	productColumns  = []string{"product_id", "name", "category", "unit_cost"}
)

// RawCustomer is an untyped customer record. Line is the 1-based position
// in the source, used when a value cannot be cast.
type RawCustomer struct {
	Line       int
	CustomerID string
	Name       string
	Email      string
	Region     string
	SignupDate string
}

// RawOrder is an untyped order line.
type RawOrder struct {
	Line       int
	OrderID    string
	CustomerID string
	ProductID  string
	Quantity   string
	UnitPrice  string
	OrderDate  string
	Status     string
}

// RawProduct is an untyped product record.
type RawProduct struct {
	Line      int
	ProductID string
	Name      string
	Category  string
	UnitCost  string
}

// Raw holds the three source tables exactly as read.
type Raw struct {
	Customers []RawCustomer
	Orders    []RawOrder
	Products  []RawProduct
}

// Tables renders the raw sources as text tables for seeding a target.
func (r *Raw) Tables() []dataset.Table {
	customers := dataset.Table{Name: CustomersTable, Columns: textColumns(customerColumns)}
	for _, c := range r.Customers {
		customers.Rows = append(customers.Rows, []any{c.CustomerID, c.Name, c.Email, c.Region, c.SignupDate})
	}

	orders := dataset.Table{Name: OrdersTable, Columns: textColumns(orderColumns)}
	for _, o := range r.Orders {
		orders.Rows = append(orders.Rows, []any{o.OrderID, o.CustomerID, o.ProductID, o.Quantity, o.UnitPrice, o.OrderDate, o.Status})
	}

	products := dataset.Table{Name: ProductsTable, Columns: textColumns(productColumns)}
	for _, p := range r.Products {
		products.Rows = append(products.Rows, []any{p.ProductID, p.Name, p.Category, p.UnitCost})
	}

	return []dataset.Table{customers, orders, products}
}

func textColumns(names []string) []dataset.Column {
	cols := make([]dataset.Column, len(names))
	for i, n := range names {
		cols[i] = dataset.Column{Name: n, Type: dataset.Text}
	}
	return cols
}

// Ref describes where a record came from, e.g. "raw_orders line 7".
func Ref(table string, line int) string {
	return table + " line " + strconv.Itoa(line)
}
