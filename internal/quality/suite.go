package quality

import (
	"strconv"
	"time"

	"martflow/internal/dataset"
	"martflow/internal/intermediate"
	"martflow/internal/marts"
	"martflow/internal/money"
	"martflow/internal/pipeline"
	"martflow/internal/reporting"
	"martflow/internal/staging"
)

// OrderStatuses are the statuses a cleaned order may carry.
var OrderStatuses = []string{"completed", "pending", "cancelled", "returned"}

// Options configures the project test suite.
type Options struct {
	// AsOf is the ingestion date; orders after it are reported.
	AsOf time.Time
	// Segments are the accepted dim_customers.segment values.
	Segments []string
	// Warn downgrades the named tests to warnings.
	Warn []string
	// Skip drops the named tests.
	Skip []string
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// Suite evaluates every project test against one pipeline run.
func Suite(res *pipeline.Results, opts Options) *Report {
	stg := res.Staging

	customerID := func(c staging.Customer) string { return itoa(c.CustomerID) }
	orderID := func(o staging.Order) string { return itoa(o.OrderID) }
	productID := func(p staging.Product) string { return itoa(p.ProductID) }
	itemID := func(it intermediate.OrderItem) string { return itoa(it.OrderID) + "/" + itoa(it.ProductID) }
	aggID := func(c intermediate.CustomerOrder) string { return itoa(c.CustomerID) }
	dimID := func(c marts.Customer) string { return itoa(c.CustomerID) }
	factID := func(f marts.DailySale) string { return f.OrderDate.Format(dataset.DateLayout) + "/" + itoa(f.ProductID) }

	segments := opts.Segments
	if len(segments) == 0 {
		segments = marts.DefaultSegmenter().Names()
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	results := []Result{
		// stg_customers
		Unique(staging.CustomersModel, "customer_id", stg.Customers, customerID),
		NotNull(staging.CustomersModel, "customer_id", stg.Customers, func(staging.Customer) bool { return false }, customerID),
		NotNull(staging.CustomersModel, "email", stg.Customers, func(c staging.Customer) bool { return c.Email == "" }, customerID),

		// stg_products
		Unique(staging.ProductsModel, "product_id", stg.Products, productID),
		NotNull(staging.ProductsModel, "product_id", stg.Products, func(staging.Product) bool { return false }, productID),
		Expect("assert_non_negative_unit_cost", staging.ProductsModel, stg.Products,
			func(p staging.Product) bool { return p.UnitCost < money.Zero }, productID),

		// stg_orders
		Unique(staging.OrdersModel, "order_id", stg.Orders, orderID),
		NotNull(staging.OrdersModel, "order_id", stg.Orders, func(staging.Order) bool { return false }, orderID),
		NotNull(staging.OrdersModel, "order_date", stg.Orders, func(o staging.Order) bool { return o.OrderDate.IsZero() }, orderID),
		AcceptedValues(staging.OrdersModel, "status", stg.Orders, func(o staging.Order) string { return o.Status }, OrderStatuses, orderID),
		Relationships(staging.OrdersModel, "customer_id", stg.Orders, func(o staging.Order) string { return itoa(o.CustomerID) },
			staging.CustomersModel, "customer_id", stg.Customers, customerID, orderID),
		Relationships(staging.OrdersModel, "product_id", stg.Orders, func(o staging.Order) string { return itoa(o.ProductID) },
			staging.ProductsModel, "product_id", stg.Products, productID, orderID),
		Expect("assert_positive_quantity", staging.OrdersModel, stg.Orders,
			func(o staging.Order) bool { return o.Quantity <= 0 }, orderID),
		Expect("assert_no_future_orders", staging.OrdersModel, stg.Orders,
			func(o staging.Order) bool { return o.OrderDate.After(asOf) }, orderID),

		// int_order_items
		AcceptedValues(intermediate.OrderItemsModel, "status", res.OrderItems,
			func(it intermediate.OrderItem) string { return it.Status }, intermediate.RecognizedStatuses, itemID),
		Expect("assert_revenue_matches_price", intermediate.OrderItemsModel, res.OrderItems,
			func(it intermediate.OrderItem) bool { return it.Revenue != it.UnitPrice.Mul(it.Quantity) }, itemID),
		Expect("assert_margin_matches_cost", intermediate.OrderItemsModel, res.OrderItems,
			func(it intermediate.OrderItem) bool {
				return it.Cost != it.UnitCost.Mul(it.Quantity) || it.Margin != it.Revenue.Sub(it.Cost)
			}, itemID),

		// int_customer_orders
		Unique(intermediate.CustomerOrdersModel, "customer_id", res.CustomerOrders, aggID),
		NotNull(intermediate.CustomerOrdersModel, "customer_id", res.CustomerOrders, func(intermediate.CustomerOrder) bool { return false }, aggID),

		// dim_customers
		Unique(marts.CustomersModel, "customer_id", res.Customers, dimID),
		NotNull(marts.CustomersModel, "customer_id", res.Customers, func(marts.Customer) bool { return false }, dimID),
		AcceptedValues(marts.CustomersModel, "segment", res.Customers, func(c marts.Customer) string { return c.Segment }, segments, dimID),
		Expect("assert_customer_count_matches", marts.CustomersModel, []int{len(res.Customers)},
			func(n int) bool { return n != len(stg.Customers) }, func(n int) string { return strconv.Itoa(n) + " rows" }),

		// fct_daily_sales
		Unique(marts.DailySalesModel, "order_date_product_id", res.DailySales, factID),
		Expect("assert_units_reconcile", marts.DailySalesModel, []reconciliation{unitsReconciliation(res)},
			reconciliation.broken, reconciliation.describe),

		// rpt_sales_summary
		Expect("assert_single_summary_row", reporting.SummaryModel, []int{reporting.SummaryTable(res.Summary).Len()},
			func(n int) bool { return n != 1 }, func(n int) string { return strconv.Itoa(n) + " rows" }),
		Expect("assert_revenue_reconciles", reporting.SummaryModel, []reconciliation{revenueReconciliation(res)},
			reconciliation.broken, reconciliation.describe),
	}

	return newReport(results, opts)
}

// reconciliation compares two totals that must agree.
type reconciliation struct {
	left, right string
}

func (r reconciliation) broken() bool { return r.left != r.right }
func (r reconciliation) describe() string { return r.left + " != " + r.right }

func unitsReconciliation(res *pipeline.Results) reconciliation {
	var facts, items int64
	for _, f := range res.DailySales {
		facts += f.UnitsSold
	}
	for _, it := range res.OrderItems {
		items += it.Quantity
	}
	return reconciliation{left: itoa(facts), right: itoa(items)}
}

func revenueReconciliation(res *pipeline.Results) reconciliation {
	var dim money.Amount
	for _, c := range res.Customers {
		dim = dim.Add(c.TotalRevenue)
	}
	return reconciliation{left: dim.String(), right: res.Summary.TotalRevenue.String()}
}
