package marts

import (
	"martflow/internal/dataset"
	"martflow/internal/intermediate"
	"martflow/internal/staging"
)

// Model names produced by this stage.
const (
	CustomersModel  = "dim_customers"
	DailySalesModel = "fct_daily_sales"
)

// Customer is a customer aggregate with its segment.
type Customer struct {
	intermediate.CustomerOrder
	Segment string
}

// Customers assigns every aggregate a segment. Order and cardinality are
// unchanged.
func Customers(rows []intermediate.CustomerOrder, seg Segmenter) []Customer {
	out := make([]Customer, len(rows))
	for i, r := range rows {
		out[i] = Customer{CustomerOrder: r, Segment: seg.Segment(r.TotalRevenue)}
	}
	return out
}

// CustomersTable renders dim_customers.
func CustomersTable(rows []Customer) dataset.Table {
	t := dataset.Table{
		Name: CustomersModel,
		Columns: []dataset.Column{
			{Name: "customer_id", Type: dataset.Integer},
			{Name: "name", Type: dataset.Text},
			{Name: "email", Type: dataset.Text},
			{Name: "region", Type: dataset.Text},
			{Name: "signup_date", Type: dataset.Date},
			{Name: "order_count", Type: dataset.Integer},
			{Name: "total_revenue", Type: dataset.Decimal},
			{Name: "total_quantity", Type: dataset.Integer},
			{Name: "segment", Type: dataset.Text},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.CustomerID, r.Name, r.Email, r.Region, staging.DateValue(r.SignupDate),
			r.OrderCount, r.TotalRevenue, r.TotalQuantity, r.Segment,
		})
	}
	return t
}
