// Package aggregate merges normalized rows across products and
// categories, derives summary counts, and ranks products into priority
// buckets for the overview screen.
package aggregate

import (
	"sort"

	"sellerqi-insights/internal/issues/account"
	"sellerqi-insights/internal/issues/conversion"
	"sellerqi-insights/internal/issues/inventory"
	"sellerqi-insights/internal/issues/ranking"
	"sellerqi-insights/internal/models"
)

// FlattenRanking concatenates per-product ranking rows in product order.
func FlattenRanking(products []models.RankingProduct) []models.IssueRow {
	var rows []models.IssueRow
	for _, p := range products {
		rows = append(rows, ranking.Normalize(p)...)
	}
	return rows
}

// FlattenConversion concatenates per-product conversion rows in product
// order. Buy-box synthesis belongs to the page-level normalizer; this
// helper covers the per-product path only.
func FlattenConversion(products []models.ConversionProduct) []models.IssueRow {
	var rows []models.IssueRow
	for _, p := range products {
		rows = append(rows, conversion.Normalize(p)...)
	}
	return rows
}

// FlattenInventory concatenates per-product inventory rows in product order.
func FlattenInventory(products []models.InventoryProduct) []models.IssueRow {
	var rows []models.IssueRow
	for _, p := range products {
		rows = append(rows, inventory.Normalize(p)...)
	}
	return rows
}

// CategoryCounts carries the per-category row counts of one account.
type CategoryCounts struct {
	Ranking    int `json:"ranking"`
	Conversion int `json:"conversion"`
	Inventory  int `json:"inventory"`
	Account    int `json:"account"`
}

// GrandTotal is always the sum of the independently computed category
// counts, never a separately fetched summary number that could drift
// out of sync.
func (c CategoryCounts) GrandTotal() int {
	return c.Ranking + c.Conversion + c.Inventory + c.Account
}

// CountPages derives category counts from fully normalized pages.
func CountPages(
	rankingPage models.RankingPage,
	conversionPage models.ConversionPage,
	inventoryPage models.InventoryPage,
	accountPage models.AccountPage,
) CategoryCounts {
	return CategoryCounts{
		Ranking:    len(ranking.NormalizePage(rankingPage)),
		Conversion: len(conversion.NormalizePage(conversionPage)),
		Inventory:  len(inventory.NormalizePage(inventoryPage)),
		Account:    len(account.NormalizePage(accountPage)),
	}
}

// metricOf returns the sortable value of a product for the chosen metric.
func metricOf(p models.ProductSummary, metric models.RankMetric) float64 {
	switch metric {
	case models.RankByRevenue:
		return p.Revenue
	case models.RankByUnits:
		return float64(p.UnitsSold)
	default:
		return float64(p.IssueCount)
	}
}

// Prioritize ranks products by the chosen metric (descending, ties
// broken by original array order) and buckets the ranked list into
// thirds: the first ceil(n/3) are high, the next ceil(n/3) medium, the
// rest low. With totals not divisible by three the high and medium
// buckets are never smaller than the low bucket.
func Prioritize(products []models.ProductSummary, metric models.RankMetric) []models.PrioritizedProduct {
	ranked := make([]models.ProductSummary, len(products))
	copy(ranked, products)

	sort.SliceStable(ranked, func(i, j int) bool {
		return metricOf(ranked[i], metric) > metricOf(ranked[j], metric)
	})

	n := len(ranked)
	firstBoundary := (n + 2) / 3 // ceil(n/3)
	secondBoundary := 2 * firstBoundary

	out := make([]models.PrioritizedProduct, 0, n)
	for i, p := range ranked {
		level := models.PriorityLow
		switch {
		case i < firstBoundary:
			level = models.PriorityHigh
		case i < secondBoundary:
			level = models.PriorityMedium
		}
		out = append(out, models.PrioritizedProduct{ProductSummary: p, Priority: level})
	}

	return out
}
