// Package conversion normalizes the flat conversion payload and
// synthesizes buy-box rows from the separate buy-box measurement array.
package conversion

import (
	"fmt"
	"strings"

	"sellerqi-insights/internal/models"
)

const buyBoxHeadingFragment = "Buy Box"

// sources are iterated in this fixed order.
var sources = []struct {
	label string
	get   func(*models.ConversionData) *models.NamedError
}{
	{"Images", func(d *models.ConversionData) *models.NamedError { return d.ImageResultErrorData }},
	{"Videos", func(d *models.ConversionData) *models.NamedError { return d.VideoResultErrorData }},
	{"Rating", func(d *models.ConversionData) *models.NamedError { return d.RatingResultErrorData }},
	{"Buy Box", func(d *models.ConversionData) *models.NamedError { return d.BuyBoxResultErrorData }},
	{"A+", func(d *models.ConversionData) *models.NamedError { return d.APlusResultErrorData }},
	{"Brand Story", func(d *models.ConversionData) *models.NamedError { return d.BrandStoryResultErrorData }},
}

// Normalize converts one conversion product into zero or more issue
// rows. A source contributes a row only when present with status
// exactly "Error"; the source's own type (default "Issue") is the
// sub-label.
func Normalize(p models.ConversionProduct) []models.IssueRow {
	if p.Data == nil {
		return nil
	}

	var rows []models.IssueRow

	for _, source := range sources {
		e := source.get(p.Data)
		if e == nil || e.Status != models.StatusError {
			continue
		}
		subLabel := e.Type
		if subLabel == "" {
			subLabel = "Issue"
		}
		row := models.IssueRow{
			Asin:         p.Asin,
			SKU:          p.SKU,
			Title:        p.Title,
			IssueHeading: source.label + " | " + subLabel,
			Message:      e.Message,
			Solution:     e.HowToSolve,
		}
		if row.Renderable() {
			rows = append(rows, row)
		}
	}

	return rows
}

// synthesizeBuyBoxRow builds the override row for one qualifying
// buy-box record, or nil when the percentage does not qualify.
func synthesizeBuyBoxRow(rec models.BuyBoxRecord) *models.IssueRow {
	var row models.IssueRow

	switch {
	case rec.BuyBoxPercentage == 0:
		row = models.IssueRow{
			Asin:         rec.Asin(),
			SKU:          rec.SKU,
			Title:        rec.Title,
			IssueHeading: "Buy Box | No Buy Box",
			Message: fmt.Sprintf(
				"This listing never won the Buy Box despite %d page views across %d sessions.",
				rec.PageViews, rec.Sessions),
			Solution: "Review your pricing, fulfillment method, and account health to regain Buy Box eligibility.",
		}
	case rec.BuyBoxPercentage > 0 && rec.BuyBoxPercentage < 50:
		row = models.IssueRow{
			Asin:         rec.Asin(),
			SKU:          rec.SKU,
			Title:        rec.Title,
			IssueHeading: "Buy Box | Low Buy Box Percentage",
			Message: fmt.Sprintf(
				"You own the Buy Box only %.1f%% of the time.",
				rec.BuyBoxPercentage),
			Solution: "Adjust your price to stay competitive with other offers on this listing.",
		}
	default:
		return nil
	}

	return &row
}

// NormalizePage flattens a conversion category page. Synthesized
// buy-box rows take precedence: once any exist for the page, the
// per-product conversion rows whose heading mentions the Buy Box are
// discarded so the table never carries conflicting buy-box entries.
func NormalizePage(page models.ConversionPage) []models.IssueRow {
	var rows []models.IssueRow
	for _, p := range page.Products {
		rows = append(rows, Normalize(p)...)
	}

	var synthesized []models.IssueRow
	for _, rec := range page.BuyBoxData {
		if row := synthesizeBuyBoxRow(rec); row != nil && row.Renderable() {
			synthesized = append(synthesized, *row)
		}
	}

	if len(synthesized) == 0 {
		return rows
	}

	kept := rows[:0:0]
	for _, row := range rows {
		if strings.Contains(row.IssueHeading, buyBoxHeadingFragment) {
			continue
		}
		kept = append(kept, row)
	}

	return append(kept, synthesized...)
}
