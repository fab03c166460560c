// Package account normalizes account-level health checks. Account rows
// apply to the whole seller account, so they carry no asin.
package account

import (
	"sort"

	"sellerqi-insights/internal/models"
)

// Normalize converts the account check map into issue rows. Map
// iteration order is not stable, so checks are emitted in sorted
// check-name order to keep normalization deterministic.
func Normalize(data *models.AccountData) []models.IssueRow {
	if data == nil || len(data.Checks) == 0 {
		return nil
	}

	names := make([]string, 0, len(data.Checks))
	for name := range data.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []models.IssueRow
	for _, name := range names {
		check := data.Checks[name]
		if check.Status != models.StatusError {
			continue
		}
		subLabel := check.Type
		if subLabel == "" {
			subLabel = name
		}
		row := models.IssueRow{
			IssueHeading: "Account | " + subLabel,
			Message:      check.Message,
			Solution:     check.HowToSolve,
		}
		if row.Renderable() {
			rows = append(rows, row)
		}
	}

	return rows
}

// NormalizePage flattens an account category page.
func NormalizePage(page models.AccountPage) []models.IssueRow {
	return Normalize(page.Data)
}
