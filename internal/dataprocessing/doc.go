// Package dataprocessing turns files into domain records and domain records
// into analytical tables.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. Parser and readers: header-mapped CSV loading for the star schema, the
// analytical tables, sales transactions and forecasting input. Cells that do
// not parse become NaN or the zero time so later stages can impute or drop.
// 2. Processor: forward fill with median fallback for numeric series.
// 3. Analytics: joins facts with their dimensions and derives profit margin,
// revenue variance, forecast accuracy and SLA breach rate, then rolls both
// fact tables up to combined monthly metrics.
//
// # Data Flow
//
//	FinanceDataset → AnalyticsBuilder → financials/operations analytical → BuildCombinedMonthly
//
// Every ratio guards its divisor: a zero or non-finite divisor yields 0.
package dataprocessing
