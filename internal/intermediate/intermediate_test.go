package intermediate

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martflow/internal/money"
	"martflow/internal/source"
	"martflow/internal/staging"
	"martflow/pkg/errors"
)

func demo(t *testing.T) *staging.Output {
	t.Helper()
	raw, err := source.EmbeddedReader{}.Read(context.Background())
	require.NoError(t, err)
	out, err := staging.Run(raw)
	require.NoError(t, err)
	return out
}

func demoItems(t *testing.T, stg *staging.Output) []OrderItem {
	t.Helper()
	items, err := OrderItems(stg.Orders, stg.Products)
	require.NoError(t, err)
	return items
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestOrderItemsOnDemoSeeds(t *testing.T) {
	stg := demo(t)
	items := demoItems(t, stg)

	require.Len(t, items, 10)

	var revenue, cost money.Amount
	var units int64
	for i, it := range items {
		assert.Contains(t, RecognizedStatuses, it.Status)
		assert.Equal(t, it.UnitPrice.Mul(it.Quantity), it.Revenue)
		assert.Equal(t, it.Revenue.Sub(it.Cost), it.Margin)
		if i > 0 {
			assert.Less(t, items[i-1].OrderID, it.OrderID)
		}
		revenue = revenue.Add(it.Revenue)
		cost = cost.Add(it.Cost)
		units += it.Quantity
	}
	assert.Equal(t, money.MustParse("1139.80"), revenue)
	assert.Equal(t, money.MustParse("570.00"), cost)
	assert.Equal(t, int64(20), units)

	first := items[0]
	assert.Equal(t, int64(1001), first.OrderID)
	assert.Equal(t, "Widget A", first.ProductName)
	assert.Equal(t, money.MustParse("59.98"), first.Revenue)
	assert.Equal(t, money.MustParse("29.98"), first.Margin)
}

func TestReturnedLinesKeepPositiveRevenue(t *testing.T) {
	stg := demo(t)
	for _, it := range demoItems(t, stg) {
		if it.OrderID == 1006 {
			assert.Equal(t, "returned", it.Status)
			assert.Equal(t, money.MustParse("59.99"), it.Revenue)
			assert.Equal(t, money.MustParse("29.99"), it.Margin)
			return
		}
	}
	t.Fatal("order 1006 missing")
}

func TestOrderItemsDropsPendingAndOrphans(t *testing.T) {
	orders := []staging.Order{
		{OrderID: 1, CustomerID: 1, ProductID: 1, Quantity: 1, UnitPrice: money.Cents(100), OrderDate: day(1), Status: "pending"},
		{OrderID: 2, CustomerID: 1, ProductID: 99, Quantity: 1, UnitPrice: money.Cents(100), OrderDate: day(1), Status: "completed"},
		{OrderID: 3, CustomerID: 1, ProductID: 1, Quantity: 3, UnitPrice: money.Cents(100), OrderDate: day(2), Status: "completed"},
	}
	products := []staging.Product{{ProductID: 1, Name: "P", Category: "C", UnitCost: money.Cents(40)}}

	items, err := OrderItems(orders, products)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].OrderID)
	assert.Equal(t, money.Cents(120), items[0].Cost)
	assert.Equal(t, money.Cents(180), items[0].Margin)

	items, err = OrderItems(nil, products)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderItemsRejectsOverflowingLines(t *testing.T) {
	products := []staging.Product{{ProductID: 1, Name: "P", Category: "C", UnitCost: money.Cents(100)}}
	tests := []struct {
		name   string
		order  staging.Order
		column string
	}{
		{
			name:   "revenue wraps int64",
			order:  staging.Order{OrderID: 7, CustomerID: 1, ProductID: 1, Quantity: 92233720368547758, UnitPrice: money.Cents(200), Status: "completed"},
			column: "revenue",
		},
		{
			name:   "revenue beyond numeric(12,2)",
			order:  staging.Order{OrderID: 8, CustomerID: 1, ProductID: 1, Quantity: 1_000_000_000, UnitPrice: money.Cents(100_000), Status: "completed"},
			column: "revenue",
		},
		{
			name:   "cost beyond numeric(12,2)",
			order:  staging.Order{OrderID: 9, CustomerID: 1, ProductID: 1, Quantity: 10_000_000_000, UnitPrice: money.Cents(1), Status: "completed"},
			column: "cost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := OrderItems([]staging.Order{tt.order}, products)
			require.Error(t, err)
			assert.Nil(t, items)
			assert.True(t, errors.IsCode(err, errors.ErrCodeCastFailed))
			assert.ErrorIs(t, err, money.ErrOutOfRange)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.column, appErr.Context["column"])
			assert.Equal(t, strconv.FormatInt(tt.order.OrderID, 10), appErr.Context["record"])
		})
	}
}

func TestCustomerOrdersOnDemoSeeds(t *testing.T) {
	stg := demo(t)
	rows := CustomerOrders(stg.Customers, demoItems(t, stg))

	require.Len(t, rows, len(stg.Customers))

	expected := map[int64]struct {
		count   int64
		revenue string
		qty     int64
	}{
		1: {2, "109.97", 3},
		2: {2, "299.96", 4},
		3: {3, "509.92", 8},
		4: {1, "79.98", 2},
		5: {2, "139.97", 3},
		6: {0, "0.00", 0},
	}
	for _, r := range rows {
		want := expected[r.CustomerID]
		assert.Equal(t, want.count, r.OrderCount, "customer %d", r.CustomerID)
		assert.Equal(t, money.MustParse(want.revenue), r.TotalRevenue, "customer %d", r.CustomerID)
		assert.Equal(t, want.qty, r.TotalQuantity, "customer %d", r.CustomerID)
	}
}

func TestCustomerOrdersCountsDistinctOrders(t *testing.T) {
	customers := []staging.Customer{{CustomerID: 2}, {CustomerID: 1}}
	items := []OrderItem{
		{OrderID: 10, CustomerID: 1, ProductID: 1, Quantity: 1, Revenue: money.Cents(500)},
		{OrderID: 10, CustomerID: 1, ProductID: 2, Quantity: 2, Revenue: money.Cents(250)},
		{OrderID: 11, CustomerID: 1, ProductID: 1, Quantity: 1, Revenue: money.Cents(100)},
		{OrderID: 12, CustomerID: 3, ProductID: 1, Quantity: 1, Revenue: money.Cents(100)},
	}

	rows := CustomerOrders(customers, items)
	require.Len(t, rows, 2, "items of unknown customers do not add rows")
	assert.Equal(t, int64(1), rows[0].CustomerID)
	assert.Equal(t, int64(2), rows[0].OrderCount)
	assert.Equal(t, money.Cents(850), rows[0].TotalRevenue)
	assert.Equal(t, int64(4), rows[0].TotalQuantity)
	assert.Equal(t, money.Zero, rows[1].TotalRevenue)
}

func TestTables(t *testing.T) {
	stg := demo(t)
	items := demoItems(t, stg)

	tbl := OrderItemsTable(items)
	assert.NoError(t, tbl.Validate())
	assert.Equal(t, OrderItemsModel, tbl.Name)

	agg := CustomerOrdersTable(CustomerOrders(stg.Customers, items))
	assert.NoError(t, agg.Validate())
	assert.Equal(t, 6, agg.Len())
}
