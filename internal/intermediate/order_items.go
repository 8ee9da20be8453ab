// Package intermediate joins and aggregates the staging models.
package intermediate

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"martflow/internal/dataset"
	"martflow/internal/money"
	"martflow/internal/staging"
	"martflow/pkg/errors"
)

// Model names produced by this stage.
const (
	OrderItemsModel     = "int_order_items"
	CustomerOrdersModel = "int_customer_orders"
)

// RecognizedStatuses are the order statuses that count as sales. Returned
// lines keep their positive revenue; refunds are not netted.
var RecognizedStatuses = []string{"completed", "returned"}

// OrderItem is an order line enriched with its product and line metrics.
type OrderItem struct {
	OrderID     int64
	CustomerID  int64
	ProductID   int64
	ProductName string
	Category    string
	Quantity    int64
	UnitPrice   money.Amount
	UnitCost    money.Amount
	Revenue     money.Amount
	Cost        money.Amount
	Margin      money.Amount
	OrderDate   time.Time
	Status      string
}

func recognized(status string) bool {
	for _, s := range RecognizedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OrderItems inner-joins orders to products and keeps recognized statuses.
// Orders whose product does not exist drop out here; the relationships test
// on stg_orders reports them. Output is ordered by order_id, product_id.
// A line whose revenue or cost does not fit numeric(12,2) fails the stage.
func OrderItems(orders []staging.Order, products []staging.Product) ([]OrderItem, error) {
	byID := make(map[int64][]staging.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = append(byID[p.ProductID], p)
	}

	var out []OrderItem
	for _, o := range orders {
		if !recognized(o.Status) {
			continue
		}
		for _, p := range byID[o.ProductID] {
			revenue, err := o.UnitPrice.MulChecked(o.Quantity)
			if err != nil {
				return nil, lineError(o, "revenue", o.UnitPrice, err)
			}
			cost, err := p.UnitCost.MulChecked(o.Quantity)
			if err != nil {
				return nil, lineError(o, "cost", p.UnitCost, err)
			}
			out = append(out, OrderItem{
				OrderID:     o.OrderID,
				CustomerID:  o.CustomerID,
				ProductID:   o.ProductID,
				ProductName: p.Name,
				Category:    p.Category,
				Quantity:    o.Quantity,
				UnitPrice:   o.UnitPrice,
				UnitCost:    p.UnitCost,
				Revenue:     revenue,
				Cost:        cost,
				Margin:      revenue.Sub(cost),
				OrderDate:   o.OrderDate,
				Status:      o.Status,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func lineError(o staging.Order, column string, unit money.Amount, cause error) error {
	return errors.CastError(OrderItemsModel, column, strconv.FormatInt(o.OrderID, 10),
		fmt.Sprintf("%d x %s", o.Quantity, unit), cause)
}

// OrderItemsTable renders int_order_items.
func OrderItemsTable(rows []OrderItem) dataset.Table {
	t := dataset.Table{
		Name: OrderItemsModel,
		Columns: []dataset.Column{
			{Name: "order_id", Type: dataset.Integer},
			{Name: "customer_id", Type: dataset.Integer},
			{Name: "product_id", Type: dataset.Integer},
			{Name: "product_name", Type: dataset.Text},
			{Name: "category", Type: dataset.Text},
			{Name: "quantity", Type: dataset.Integer},
			{Name: "unit_price", Type: dataset.Decimal},
			{Name: "unit_cost", Type: dataset.Decimal},
			{Name: "revenue", Type: dataset.Decimal},
			{Name: "cost", Type: dataset.Decimal},
			{Name: "margin", Type: dataset.Decimal},
			{Name: "order_date", Type: dataset.Date},
			{Name: "status", Type: dataset.Text},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.OrderID, r.CustomerID, r.ProductID, r.ProductName, r.Category,
			r.Quantity, r.UnitPrice, r.UnitCost, r.Revenue, r.Cost, r.Margin,
			staging.DateValue(r.OrderDate), r.Status,
		})
	}
	return t
}
