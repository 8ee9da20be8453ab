package intermediate

import (
	"sort"
	"time"

	"martflow/internal/dataset"
	"martflow/internal/money"
	"martflow/internal/staging"
)

// CustomerOrder is a customer with lifetime order totals.
type CustomerOrder struct {
	CustomerID    int64
	Name          string
	Email         string
	Region        string
	SignupDate    time.Time
	OrderCount    int64
	TotalRevenue  money.Amount
	TotalQuantity int64
}

// CustomerOrders left-joins every customer to its order items. Customers
// without items get zero totals, never nulls. One row per input customer,
// ordered by customer_id.
func CustomerOrders(customers []staging.Customer, items []OrderItem) []CustomerOrder {
	type totals struct {
		orders   map[int64]struct{}
		revenue  money.Amount
		quantity int64
	}
	byCustomer := make(map[int64]*totals)
	for _, it := range items {
		t, ok := byCustomer[it.CustomerID]
		if !ok {
			t = &totals{orders: map[int64]struct{}{}}
			byCustomer[it.CustomerID] = t
		}
		t.orders[it.OrderID] = struct{}{}
		t.revenue = t.revenue.Add(it.Revenue)
		t.quantity += it.Quantity
	}

	out := make([]CustomerOrder, 0, len(customers))
	for _, c := range customers {
		row := CustomerOrder{
			CustomerID: c.CustomerID,
			Name:       c.Name,
			Email:      c.Email,
			Region:     c.Region,
			SignupDate: c.SignupDate,
		}
		if t, ok := byCustomer[c.CustomerID]; ok {
			row.OrderCount = int64(len(t.orders))
			row.TotalRevenue = t.revenue
			row.TotalQuantity = t.quantity
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// CustomerOrdersTable renders int_customer_orders.
func CustomerOrdersTable(rows []CustomerOrder) dataset.Table {
	t := dataset.Table{
		Name: CustomerOrdersModel,
		Columns: []dataset.Column{
			{Name: "customer_id", Type: dataset.Integer},
			{Name: "name", Type: dataset.Text},
			{Name: "email", Type: dataset.Text},
			{Name: "region", Type: dataset.Text},
			{Name: "signup_date", Type: dataset.Date},
			{Name: "order_count", Type: dataset.Integer},
			{Name: "total_revenue", Type: dataset.Decimal},
			{Name: "total_quantity", Type: dataset.Integer},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.CustomerID, r.Name, r.Email, r.Region, staging.DateValue(r.SignupDate),
			r.OrderCount, r.TotalRevenue, r.TotalQuantity,
		})
	}
	return t
}
