// internal/models/issue.go
package models

// StatusError is the upstream discriminator for "an issue exists".
// Any other value of a status field, including absence, means no issue.
const StatusError = "Error"

// Category identifies one of the top-level issue groupings.
type Category string

const (
	CategoryRanking       Category = "ranking"
	CategoryConversion    Category = "conversion"
	CategoryInventory     Category = "inventory"
	CategoryAccount       Category = "account"
	CategoryKeyword       Category = "keyword"
	CategoryReimbursement Category = "reimbursement"
)

// IssueCategories are the categories whose payloads normalize into rows.
var IssueCategories = []Category{
	CategoryRanking,
	CategoryConversion,
	CategoryInventory,
	CategoryAccount,
}

// IsIssueCategory reports whether rows are derived for the category.
func (c Category) IsIssueCategory() bool {
	for _, ic := range IssueCategories {
		if c == ic {
			return true
		}
	}
	return false
}

// Valid reports whether the category is one the service fetches at all.
func (c Category) Valid() bool {
	switch c {
	case CategoryRanking, CategoryConversion, CategoryInventory,
		CategoryAccount, CategoryKeyword, CategoryReimbursement:
		return true
	}
	return false
}

// IssueRow is one normalized, flattened record representing a single
// detected problem for one product in one category.
type IssueRow struct {
	Asin         string                 `json:"asin"`
	SKU          *string                `json:"sku"`
	Title        string                 `json:"title"`
	IssueHeading string                 `json:"issueHeading"`
	Message      string                 `json:"message"`
	Solution     string                 `json:"solution"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// Renderable reports whether the row carries the fields every rendered
// row must have. Rows failing this are dropped, never rendered malformed.
func (r IssueRow) Renderable() bool {
	return r.IssueHeading != "" && r.Message != ""
}

// DisplayTitle falls back to "N/A" when the product has no title.
func (r IssueRow) DisplayTitle() string {
	if r.Title == "" {
		return "N/A"
	}
	return r.Title
}

// PaginationState tracks incremental loading for one category.
// Page always reflects the last successfully fetched page, not the
// next one to fetch.
type PaginationState struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}
