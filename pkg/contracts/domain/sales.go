package domain

import (
	"time"
)

// SaleRecord is one transaction line of the sales dataset. Numeric fields
// use NaN for missing values; a zero Date marks an unparseable date.
type SaleRecord struct {
	Date            time.Time `json:"date"`
	Region          string    `json:"region"`
	ProductName     string    `json:"product_name"`
	ProductCategory string    `json:"product_category"`
	UnitsSold       float64   `json:"units_sold"`
	UnitPrice       float64   `json:"unit_price"`
	Revenue         float64   `json:"revenue"`
	SalesTarget     float64   `json:"sales_target"`
}

// SaleFeatures are the columns derived from a clean SaleRecord.
type SaleFeatures struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Quarter        int     `json:"quarter"`
	YearMonth      string  `json:"year_month"`
	Variance       float64 `json:"variance"`
	VariancePct    float64 `json:"variance_pct"`
	AboveTarget    bool    `json:"above_target"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	RevenuePerUnit float64 `json:"revenue_per_unit"`
}

// ProcessedSale is a cleaned sale with its derived features.
type ProcessedSale struct {
	SaleRecord
	SaleFeatures
}

// SalesKPIs summarizes the whole dataset.
type SalesKPIs struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalTarget      float64 `json:"total_target"`
	TotalUnits       float64 `json:"total_units"`
	TransactionCount int     `json:"transaction_count"`
	AvgOrderValue    float64 `json:"avg_order_value"`
	Variance         float64 `json:"variance"`
	VariancePct      float64 `json:"variance_pct"`
}

// RegionPerformance is the per-region aggregate.
type RegionPerformance struct {
	Region           string  `json:"region"`
	Revenue          float64 `json:"revenue"`
	Target           float64 `json:"sales_target"`
	UnitsSold        float64 `json:"units_sold"`
	TransactionCount int     `json:"transaction_count"`
	Variance         float64 `json:"variance"`
	VariancePct      float64 `json:"variance_pct"`
	AvgOrderValue    float64 `json:"avg_order_value"`
}

// CategoryPerformance is the per-category aggregate.
type CategoryPerformance struct {
	Category          string  `json:"product_category"`
	Revenue           float64 `json:"revenue"`
	UnitsSold         float64 `json:"units_sold"`
	UniqueProducts    int     `json:"unique_products"`
	RevenuePerProduct float64 `json:"revenue_per_product"`
}

// MonthlySales is one month of the sales trend.
type MonthlySales struct {
	YearMonth string  `json:"year_month"`
	Revenue   float64 `json:"revenue"`
	Target    float64 `json:"sales_target"`
	UnitsSold float64 `json:"units_sold"`
}

// ProductPerformance ranks a single product.
type ProductPerformance struct {
	ProductName   string  `json:"product_name"`
	Revenue       float64 `json:"revenue"`
	UnitsSold     float64 `json:"units_sold"`
	RegionsSoldIn int     `json:"regions_sold_in"`
}

// SalesReport bundles every aggregate of the sales analysis.
type SalesReport struct {
	KPIs        SalesKPIs             `json:"kpis"`
	Regions     []RegionPerformance   `json:"regions"`
	Categories  []CategoryPerformance `json:"categories"`
	Monthly     []MonthlySales        `json:"monthly"`
	TopProducts []ProductPerformance  `json:"top_products"`
}
