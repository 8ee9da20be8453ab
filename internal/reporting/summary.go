// Package reporting produces the single-row sales summary.
package reporting

import (
	"martflow/internal/dataset"
	"martflow/internal/marts"
	"martflow/internal/money"
)

// SummaryModel is the model name of the summary report.
const SummaryModel = "rpt_sales_summary"

// SalesSummary holds the headline KPIs. AvgRevenuePerUnit is nil when no
// units were sold.
type SalesSummary struct {
	TotalRevenue      money.Amount
	TotalUnits        int64
	TotalMargin       money.Amount
	ActiveDays        int64
	AvgRevenuePerUnit *money.Amount
}

// Summarize folds the daily facts into exactly one row, with zero sums for
// empty input.
func Summarize(facts []marts.DailySale) SalesSummary {
	var s SalesSummary
	days := make(map[int64]struct{})
	for _, f := range facts {
		s.TotalRevenue = s.TotalRevenue.Add(f.Revenue)
		s.TotalUnits += f.UnitsSold
		s.TotalMargin = s.TotalMargin.Add(f.Margin)
		days[f.OrderDate.Unix()] = struct{}{}
	}
	s.ActiveDays = int64(len(days))

	if avg, ok := s.TotalRevenue.Div(s.TotalUnits); ok {
		s.AvgRevenuePerUnit = &avg
	}
	return s
}

// SummaryTable renders rpt_sales_summary.
func SummaryTable(s SalesSummary) dataset.Table {
	return dataset.Table{
		Name: SummaryModel,
		Columns: []dataset.Column{
			{Name: "total_revenue", Type: dataset.Decimal},
			{Name: "total_units", Type: dataset.Integer},
			{Name: "total_margin", Type: dataset.Decimal},
			{Name: "active_days", Type: dataset.Integer},
			{Name: "avg_revenue_per_unit", Type: dataset.Decimal},
		},
		Rows: [][]any{{
			s.TotalRevenue, s.TotalUnits, s.TotalMargin, s.ActiveDays,
			dataset.Nullable(s.AvgRevenuePerUnit),
		}},
	}
}
