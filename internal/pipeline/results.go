package pipeline

import (
	"time"

	"martflow/internal/dataset"
	"martflow/internal/intermediate"
	"martflow/internal/marts"
	"martflow/internal/reporting"
	"martflow/internal/source"
	"martflow/internal/staging"
)

// Results holds the output of every stage of one run.
type Results struct {
	Raw            *source.Raw
	Staging        *staging.Output
	OrderItems     []intermediate.OrderItem
	CustomerOrders []intermediate.CustomerOrder
	Customers      []marts.Customer
	DailySales     []marts.DailySale
	Summary        reporting.SalesSummary

	// Timings is the wall time spent computing each model.
	Timings map[string]time.Duration
}

// Table renders a single model, including raw seeds.
func (r *Results) Table(name string) (dataset.Table, bool) {
	switch name {
	case source.CustomersTable, source.OrdersTable, source.ProductsTable:
		if r.Raw == nil {
			return dataset.Table{}, false
		}
		for _, t := range r.Raw.Tables() {
			if t.Name == name {
				return t, true
			}
		}
	case staging.CustomersModel, staging.OrdersModel, staging.ProductsModel:
		if r.Staging == nil {
			return dataset.Table{}, false
		}
	}

	switch name {
	case staging.CustomersModel:
		return staging.CustomersTable(r.Staging.Customers), true
	case staging.OrdersModel:
		return staging.OrdersTable(r.Staging.Orders), true
	case staging.ProductsModel:
		return staging.ProductsTable(r.Staging.Products), true
	case intermediate.OrderItemsModel:
		return intermediate.OrderItemsTable(r.OrderItems), true
	case intermediate.CustomerOrdersModel:
		return intermediate.CustomerOrdersTable(r.CustomerOrders), true
	case marts.CustomersModel:
		return marts.CustomersTable(r.Customers), true
	case marts.DailySalesModel:
		return marts.DailySalesTable(r.DailySales), true
	case reporting.SummaryModel:
		return reporting.SummaryTable(r.Summary), true
	}
	return dataset.Table{}, false
}

// Tables renders the models of the given layers in DAG order. With no
// layers every model is returned.
func (r *Results) Tables(layers ...Layer) []dataset.Table {
	nodes := []Node(Models)
	if len(layers) > 0 {
		nodes = Models.InLayers(layers...)
	}

	tables := make([]dataset.Table, 0, len(nodes))
	for _, n := range nodes {
		if t, ok := r.Table(n.Name); ok {
			tables = append(tables, t)
		}
	}
	return tables
}
