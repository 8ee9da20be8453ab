package marts

import (
	"sort"
	"time"

	"martflow/internal/dataset"
	"martflow/internal/intermediate"
	"martflow/internal/money"
	"martflow/internal/staging"
)

// DailySale is one (order_date, product_id) group of order items.
type DailySale struct {
	OrderDate   time.Time
	ProductID   int64
	ProductName string
	Category    string
	OrderCount  int64
	UnitsSold   int64
	Revenue     money.Amount
	Cost        money.Amount
	Margin      money.Amount
}

type dayProduct struct {
	day     int64 // unix seconds of the UTC date
	product int64
}

// DailySales groups order items by date and product. Only combinations
// that occur are emitted, ordered by date then product_id.
func DailySales(items []intermediate.OrderItem) []DailySale {
	groups := make(map[dayProduct]*DailySale)
	orders := make(map[dayProduct]map[int64]struct{})

	for _, it := range items {
		key := dayProduct{day: it.OrderDate.Unix(), product: it.ProductID}
		g, ok := groups[key]
		if !ok {
			g = &DailySale{
				OrderDate:   it.OrderDate,
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Category:    it.Category,
			}
			groups[key] = g
			orders[key] = map[int64]struct{}{}
		}
		orders[key][it.OrderID] = struct{}{}
		g.UnitsSold += it.Quantity
		g.Revenue = g.Revenue.Add(it.Revenue)
		g.Cost = g.Cost.Add(it.Cost)
		g.Margin = g.Margin.Add(it.Margin)
	}

	out := make([]DailySale, 0, len(groups))
	for key, g := range groups {
		g.OrderCount = int64(len(orders[key]))
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// DailySalesTable renders fct_daily_sales.
func DailySalesTable(rows []DailySale) dataset.Table {
	t := dataset.Table{
		Name: DailySalesModel,
		Columns: []dataset.Column{
			{Name: "order_date", Type: dataset.Date},
			{Name: "product_id", Type: dataset.Integer},
			{Name: "product_name", Type: dataset.Text},
			{Name: "category", Type: dataset.Text},
			{Name: "order_count", Type: dataset.Integer},
			{Name: "units_sold", Type: dataset.Integer},
			{Name: "revenue", Type: dataset.Decimal},
			{Name: "cost", Type: dataset.Decimal},
			{Name: "margin", Type: dataset.Decimal},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			staging.DateValue(r.OrderDate), r.ProductID, r.ProductName, r.Category,
			r.OrderCount, r.UnitsSold, r.Revenue, r.Cost, r.Margin,
		})
	}
	return t
}
