package marts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martflow/internal/intermediate"
	"martflow/internal/money"
	"martflow/internal/source"
	"martflow/internal/staging"
	"martflow/pkg/models"
)

func demoItems(t *testing.T) (*staging.Output, []intermediate.OrderItem) {
	t.Helper()
	raw, err := source.EmbeddedReader{}.Read(context.Background())
	require.NoError(t, err)
	stg, err := staging.Run(raw)
	require.NoError(t, err)
	items, err := intermediate.OrderItems(stg.Orders, stg.Products)
	require.NoError(t, err)
	return stg, items
}

func TestDefaultSegmenterBoundaries(t *testing.T) {
	seg := DefaultSegmenter()
	tests := []struct {
		revenue string
		want    string
	}{
		{"-5.00", LowValue},
		{"0.00", LowValue},
		{"99.99", LowValue},
		{"100.00", MediumValue},
		{"299.99", MediumValue},
		{"300.00", HighValue},
		{"100000.00", HighValue},
	}
	for _, tt := range tests {
		t.Run(tt.revenue, func(t *testing.T) {
			assert.Equal(t, tt.want, seg.Segment(money.MustParse(tt.revenue)))
		})
	}
	assert.Equal(t, []string{HighValue, MediumValue, LowValue}, seg.Names())
}

func TestNewSegmenterFromConfig(t *testing.T) {
	seg, err := NewSegmenter([]models.Segment{
		{Name: "gold", MinRevenue: "500"},
		{Name: "silver", MinRevenue: "50.5"},
		{Name: "bronze"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gold", seg.Segment(money.MustParse("500.00")))
	assert.Equal(t, "silver", seg.Segment(money.MustParse("50.50")))
	assert.Equal(t, "bronze", seg.Segment(money.MustParse("50.49")))

	seg, err = NewSegmenter(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSegmenter().Names(), seg.Names())

	_, err = NewSegmenter([]models.Segment{{Name: "x", MinRevenue: "abc"}, {Name: "y"}})
	assert.Error(t, err)
}

func TestCustomersOnDemoSeeds(t *testing.T) {
	stg, items := demoItems(t)
	dim := Customers(intermediate.CustomerOrders(stg.Customers, items), DefaultSegmenter())

	require.Len(t, dim, 6)
	want := map[int64]string{1: MediumValue, 2: MediumValue, 3: HighValue, 4: LowValue, 5: MediumValue, 6: LowValue}
	for _, c := range dim {
		assert.Equal(t, want[c.CustomerID], c.Segment, "customer %d", c.CustomerID)
	}

	alice := dim[0]
	assert.Equal(t, int64(2), alice.OrderCount)
	assert.Equal(t, money.MustParse("109.97"), alice.TotalRevenue)

	frank := dim[5]
	assert.Equal(t, int64(0), frank.OrderCount)
	assert.Equal(t, money.Zero, frank.TotalRevenue)

	tbl := CustomersTable(dim)
	assert.NoError(t, tbl.Validate())
	assert.Equal(t, "segment", tbl.Columns[len(tbl.Columns)-1].Name)
}

func TestDailySalesOnDemoSeeds(t *testing.T) {
	_, items := demoItems(t)
	facts := DailySales(items)

	require.Len(t, facts, 10)

	var units, itemUnits int64
	for i, f := range facts {
		units += f.UnitsSold
		if i > 0 {
			prev := facts[i-1]
			ordered := prev.OrderDate.Before(f.OrderDate) ||
				(prev.OrderDate.Equal(f.OrderDate) && prev.ProductID < f.ProductID)
			assert.True(t, ordered, "row %d out of order", i)
		}
	}
	for _, it := range items {
		itemUnits += it.Quantity
	}
	assert.Equal(t, itemUnits, units)

	first := facts[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first.OrderDate)
	assert.Equal(t, int64(1), first.ProductID)
	assert.Equal(t, money.MustParse("59.98"), first.Revenue)

	assert.NoError(t, DailySalesTable(facts).Validate())
}

func TestDailySalesGroupsDistinctOrders(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []intermediate.OrderItem{
		{OrderID: 1, ProductID: 7, ProductName: "P", Quantity: 1, Revenue: money.Cents(100), Cost: money.Cents(60), Margin: money.Cents(40), OrderDate: d},
		{OrderID: 1, ProductID: 7, ProductName: "P", Quantity: 2, Revenue: money.Cents(200), Cost: money.Cents(120), Margin: money.Cents(80), OrderDate: d},
		{OrderID: 2, ProductID: 7, ProductName: "P", Quantity: 1, Revenue: money.Cents(100), Cost: money.Cents(60), Margin: money.Cents(40), OrderDate: d},
	}

	facts := DailySales(items)
	require.Len(t, facts, 1)
	assert.Equal(t, int64(2), facts[0].OrderCount)
	assert.Equal(t, int64(4), facts[0].UnitsSold)
	assert.Equal(t, money.Cents(400), facts[0].Revenue)
	assert.Equal(t, money.Cents(160), facts[0].Margin)

	assert.Empty(t, DailySales(nil))
}
