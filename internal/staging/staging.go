// Package staging cleans raw records one at a time: trims text, normalizes
// case and casts every typed column. Any value that cannot be cast aborts
// the run with an error naming the model, column and record.
package staging

import (
	"strconv"
	"strings"
	"time"

	"martflow/internal/dataset"
	"martflow/internal/money"
	"martflow/internal/source"
	"martflow/pkg/errors"
)

// Model names produced by this stage.
const (
	CustomersModel = "stg_customers"
	OrdersModel    = "stg_orders"
	ProductsModel  = "stg_products"
)

// Customer is a cleaned customer. SignupDate is zero when the source was blank.
type Customer struct {
	CustomerID int64
	Name       string
	Email      string
	Region     string
	SignupDate time.Time
}

// Order is a cleaned order line.
type Order struct {
	OrderID    int64
	CustomerID int64
	ProductID  int64
	Quantity   int64
	UnitPrice  money.Amount
	OrderDate  time.Time
	Status     string
}

// Product is a cleaned product.
type Product struct {
	ProductID int64
	Name      string
	Category  string
	UnitCost  money.Amount
}

// Output groups the three staging models.
type Output struct {
	Customers []Customer
	Orders    []Order
	Products  []Product
}

// Run cleans all three sources.
func Run(raw *source.Raw) (*Output, error) {
	customers, err := Customers(raw.Customers)
	if err != nil {
		return nil, err
	}
	orders, err := Orders(raw.Orders)
	if err != nil {
		return nil, err
	}
	products, err := Products(raw.Products)
	if err != nil {
		return nil, err
	}
	return &Output{Customers: customers, Orders: orders, Products: products}, nil
}

// Customers cleans raw customers, preserving input order.
func Customers(raw []source.RawCustomer) ([]Customer, error) {
	out := make([]Customer, 0, len(raw))
	for _, r := range raw {
		c := caster{model: CustomersModel, record: recordRef(r.CustomerID, source.CustomersTable, r.Line)}

		row := Customer{
			CustomerID: c.id("customer_id", r.CustomerID),
			Name:       strings.TrimSpace(r.Name),
			Email:      strings.ToLower(strings.TrimSpace(r.Email)),
			Region:     strings.TrimSpace(r.Region),
			SignupDate: c.date("signup_date", r.SignupDate),
		}
		if c.err != nil {
			return nil, c.err
		}
		out = append(out, row)
	}
	return out, nil
}

// Orders cleans raw order lines, preserving input order.
func Orders(raw []source.RawOrder) ([]Order, error) {
	out := make([]Order, 0, len(raw))
	for _, r := range raw {
		c := caster{model: OrdersModel, record: recordRef(r.OrderID, source.OrdersTable, r.Line)}

		row := Order{
			OrderID:    c.id("order_id", r.OrderID),
			CustomerID: c.id("customer_id", r.CustomerID),
			ProductID:  c.id("product_id", r.ProductID),
			Quantity:   c.integer("quantity", r.Quantity),
			UnitPrice:  c.amount("unit_price", r.UnitPrice),
			OrderDate:  c.date("order_date", r.OrderDate),
			Status:     strings.ToLower(strings.TrimSpace(r.Status)),
		}
		if c.err != nil {
			return nil, c.err
		}
		out = append(out, row)
	}
	return out, nil
}

// Products cleans raw products, preserving input order.
func Products(raw []source.RawProduct) ([]Product, error) {
	out := make([]Product, 0, len(raw))
	for _, r := range raw {
		c := caster{model: ProductsModel, record: recordRef(r.ProductID, source.ProductsTable, r.Line)}

		row := Product{
			ProductID: c.id("product_id", r.ProductID),
			Name:      strings.TrimSpace(r.Name),
			Category:  strings.TrimSpace(r.Category),
			UnitCost:  c.amount("unit_cost", r.UnitCost),
		}
		if c.err != nil {
			return nil, c.err
		}
		out = append(out, row)
	}
	return out, nil
}

// recordRef identifies a record by its id, or by source line when the id
// itself is unusable.
func recordRef(id, table string, line int) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	return source.Ref(table, line)
}

// caster accumulates the first cast failure of a record.
type caster struct {
	model  string
	record string
	err    error
}

func (c *caster) fail(column, value string, cause error) {
	if c.err == nil {
		c.err = errors.CastError(c.model, column, c.record, value, cause)
	}
}

func (c *caster) id(column, value string) int64 {
	v := strings.TrimSpace(value)
	if v == "" {
		c.fail(column, value, errors.New(errors.ErrCodeCastFailed, "identifier is empty"))
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		c.fail(column, value, err)
	}
	return n
}

func (c *caster) integer(column, value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		c.fail(column, value, err)
	}
	return n
}

func (c *caster) amount(column, value string) money.Amount {
	a, err := money.Parse(value)
	if err != nil {
		c.fail(column, value, err)
	}
	return a
}

// date parses YYYY-MM-DD at UTC midnight. Blank dates stay zero (null).
func (c *caster) date(column, value string) time.Time {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}
	}
	d, err := time.ParseInLocation(dataset.DateLayout, v, time.UTC)
	if err != nil {
		c.fail(column, value, err)
	}
	return d
}
