// internal/models/product.go
package models

// PriorityLevel buckets products on the overview screen.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
)

// RankMetric selects the metric the priority classifier sorts by.
type RankMetric string

const (
	RankByIssues  RankMetric = "issues"
	RankByRevenue RankMetric = "revenue"
	RankByUnits   RankMetric = "units"
)

// ProductSummary is the overview-screen view of one product, carrying
// the metrics the priority classifier can rank by.
type ProductSummary struct {
	Asin       string  `json:"asin"`
	SKU        *string `json:"sku"`
	Title      string  `json:"title"`
	IssueCount int     `json:"issueCount"`
	Revenue    float64 `json:"revenue"`
	UnitsSold  int     `json:"unitsSold"`
}

// PrioritizedProduct is a ProductSummary with its assigned bucket.
type PrioritizedProduct struct {
	ProductSummary
	Priority PriorityLevel `json:"priority"`
}
