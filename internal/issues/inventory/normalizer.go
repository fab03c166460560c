// Package inventory normalizes the per-product inventory payload,
// including the polymorphic replenishment field.
package inventory

import (
	"sellerqi-insights/internal/models"
)

// checks are iterated in this fixed order; replenishment runs last and
// may emit several rows, one per record.
var checks = []struct {
	label string
	get   func(*models.InventoryData) *models.NamedError
}{
	{"Long-Term Storage Fees", func(d *models.InventoryData) *models.NamedError { return d.LongTermStorageFeeErrorData }},
	{"Unfulfillable Inventory", func(d *models.InventoryData) *models.NamedError { return d.UnfulfilledErrorData }},
	{"Stranded Inventory", func(d *models.InventoryData) *models.NamedError { return d.StrandedInventoryErrorData }},
	{"Inbound Non-Compliance", func(d *models.InventoryData) *models.NamedError { return d.InboundNonComplianceErrorData }},
}

// Normalize converts one inventory product into zero or more issue
// rows. Each named check contributes at most one row when its status is
// exactly "Error". Replenishment data arrives as either a single record
// or an array of per-SKU records; both forms normalize through the same
// per-record mapping, each row carrying its own SKU (falling back to
// the product-level SKU) and the recommended quantity when present.
func Normalize(p models.InventoryProduct) []models.IssueRow {
	if p.Data == nil {
		return nil
	}

	var rows []models.IssueRow

	for _, check := range checks {
		e := check.get(p.Data)
		if e == nil || e.Status != models.StatusError {
			continue
		}
		row := models.IssueRow{
			Asin:         p.Asin,
			SKU:          p.SKU,
			Title:        p.Title,
			IssueHeading: "Inventory | " + check.label,
			Message:      e.Message,
			Solution:     e.HowToSolve,
		}
		if row.Renderable() {
			rows = append(rows, row)
		}
	}

	if p.Data.ReplenishmentErrorData != nil {
		for _, rec := range p.Data.ReplenishmentErrorData.Records {
			if row := normalizeReplenishment(p, rec); row != nil {
				rows = append(rows, *row)
			}
		}
	}

	return rows
}

func normalizeReplenishment(p models.InventoryProduct, rec models.ReplenishmentRecord) *models.IssueRow {
	if rec.Status != models.StatusError {
		return nil
	}

	sku := rec.SKU
	if sku == nil {
		sku = p.SKU
	}

	row := models.IssueRow{
		Asin:         p.Asin,
		SKU:          sku,
		Title:        p.Title,
		IssueHeading: "Inventory | Replenishment Required",
		Message:      rec.Message,
		Solution:     rec.HowToSolve,
	}
	if qty := rec.Qty(); qty != nil {
		row.Extra = map[string]interface{}{
			"recommendedReplenishmentQty": *qty,
		}
	}
	if !row.Renderable() {
		return nil
	}
	return &row
}

// NormalizePage flattens an inventory category page in product order.
func NormalizePage(page models.InventoryPage) []models.IssueRow {
	var rows []models.IssueRow
	for _, p := range page.Products {
		rows = append(rows, Normalize(p)...)
	}
	return rows
}
