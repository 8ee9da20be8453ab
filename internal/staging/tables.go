package staging

import (
	"time"

	"martflow/internal/dataset"
)

// DateValue renders a possibly-zero date as a row value.
func DateValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// CustomersTable renders stg_customers.
func CustomersTable(rows []Customer) dataset.Table {
	t := dataset.Table{
		Name: CustomersModel,
		Columns: []dataset.Column{
			{Name: "customer_id", Type: dataset.Integer},
			{Name: "name", Type: dataset.Text},
			{Name: "email", Type: dataset.Text},
			{Name: "region", Type: dataset.Text},
			{Name: "signup_date", Type: dataset.Date},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.CustomerID, r.Name, r.Email, r.Region, DateValue(r.SignupDate)})
	}
	return t
}

// OrdersTable renders stg_orders.
func OrdersTable(rows []Order) dataset.Table {
	t := dataset.Table{
		Name: OrdersModel,
		Columns: []dataset.Column{
			{Name: "order_id", Type: dataset.Integer},
			{Name: "customer_id", Type: dataset.Integer},
			{Name: "product_id", Type: dataset.Integer},
			{Name: "quantity", Type: dataset.Integer},
			{Name: "unit_price", Type: dataset.Decimal},
			{Name: "order_date", Type: dataset.Date},
			{Name: "status", Type: dataset.Text},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.OrderID, r.CustomerID, r.ProductID, r.Quantity, r.UnitPrice, DateValue(r.OrderDate), r.Status})
	}
	return t
}

// ProductsTable renders stg_products.
func ProductsTable(rows []Product) dataset.Table {
	t := dataset.Table{
		Name: ProductsModel,
		Columns: []dataset.Column{
			{Name: "product_id", Type: dataset.Integer},
			{Name: "name", Type: dataset.Text},
			{Name: "category", Type: dataset.Text},
			{Name: "unit_cost", Type: dataset.Decimal},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.ProductID, r.Name, r.Category, r.UnitCost})
	}
	return t
}
