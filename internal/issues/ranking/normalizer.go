// Package ranking normalizes the nested per-product ranking payload
// into flat issue rows.
package ranking

import (
	"sellerqi-insights/internal/models"
)

// sections and checks are iterated in this fixed order; row order in the
// output is section order, then check order.
var sections = []struct {
	label string
	get   func(*models.RankingData) *models.RankingSection
}{
	{"Title", func(d *models.RankingData) *models.RankingSection { return d.TitleResult }},
	{"Bullet Points", func(d *models.RankingData) *models.RankingSection { return d.BulletPoints }},
	{"Description", func(d *models.RankingData) *models.RankingSection { return d.Description }},
	{"Backend Keywords", func(d *models.RankingData) *models.RankingSection { return d.BackendKeyWords }},
}

var checks = []struct {
	label string
	get   func(*models.RankingSection) *models.RankingCheck
}{
	{"Restricted Words", func(s *models.RankingSection) *models.RankingCheck { return s.RestictedWords }},
	{"Special Characters", func(s *models.RankingSection) *models.RankingCheck { return s.CheckSpecialCharacters }},
	{"Character Limit", func(s *models.RankingSection) *models.RankingCheck { return s.CharLim }},
}

// Normalize converts one ranking product into zero or more issue rows.
// A check contributes a row only when its status is exactly "Error";
// missing sections and checks contribute nothing.
func Normalize(p models.RankingProduct) []models.IssueRow {
	if p.Data == nil {
		return nil
	}

	var rows []models.IssueRow

	for _, section := range sections {
		sec := section.get(p.Data)
		if sec == nil {
			continue
		}
		for _, check := range checks {
			c := check.get(sec)
			if c == nil || c.Status != models.StatusError {
				continue
			}
			row := models.IssueRow{
				Asin:         p.Asin,
				SKU:          p.SKU,
				Title:        p.Title,
				IssueHeading: section.label + " | " + check.label,
				Message:      c.Message,
				Solution:     c.HowTOSolve,
			}
			if row.Renderable() {
				rows = append(rows, row)
			}
		}
	}

	// The top-level character-limit check has no sub-check suffix.
	if c := p.Data.CharLim; c != nil && c.Status == models.StatusError {
		row := models.IssueRow{
			Asin:         p.Asin,
			SKU:          p.SKU,
			Title:        p.Title,
			IssueHeading: "Character Limit",
			Message:      c.Message,
			Solution:     c.HowTOSolve,
		}
		if row.Renderable() {
			rows = append(rows, row)
		}
	}

	return rows
}

// NormalizePage flattens a ranking category page in product order.
func NormalizePage(page models.RankingPage) []models.IssueRow {
	var rows []models.IssueRow
	for _, p := range page.Products {
		rows = append(rows, Normalize(p)...)
	}
	return rows
}
