// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"os"
)

// Load reads a catalog override file.
func Load(path string) (*CategoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat CategoryCatalog
	err = json.Unmarshal(data, &cat)
	return &cat, err
}

// Default returns the built-in catalog matching the categories the
// service ships with.
func Default() *CategoryCatalog {
	return &CategoryCatalog{
		Version: "1.0",
		Categories: []Category{
			{
				ID:          "ranking",
				DisplayName: "Rankings",
				Description: "Listing-quality checks per section: restricted words, special characters, character limits",
				Normalized:  true,
				Paginated:   true,
				Freshness:   "page",
				ErrorCodes:  []string{"UPSTREAM_FETCH_FAILED", "PAYLOAD_INVALID"},
				Tags:        []string{"listing", "seo"},
			},
			{
				ID:          "conversion",
				DisplayName: "Conversion",
				Description: "Media, content, and buy-box checks, including synthesized buy-box rows",
				Normalized:  true,
				Paginated:   true,
				Freshness:   "page",
				ErrorCodes:  []string{"UPSTREAM_FETCH_FAILED", "PAYLOAD_INVALID"},
				Tags:        []string{"listing", "buybox"},
			},
			{
				ID:          "inventory",
				DisplayName: "Inventory",
				Description: "Stock-level checks and per-SKU replenishment recommendations",
				Normalized:  true,
				Paginated:   true,
				Freshness:   "page",
				ErrorCodes:  []string{"UPSTREAM_FETCH_FAILED", "PAYLOAD_INVALID"},
				Tags:        []string{"fba", "stock"},
			},
			{
				ID:          "account",
				DisplayName: "Account Health",
				Description: "Account-level checks with no per-product rows",
				Normalized:  true,
				Paginated:   false,
				Freshness:   "page",
				ErrorCodes:  []string{"UPSTREAM_FETCH_FAILED", "PAYLOAD_INVALID"},
				Tags:        []string{"account"},
			},
			{
				ID:          "keyword",
				DisplayName: "Keywords",
				Description: "Pre-aggregated keyword view served verbatim",
				Normalized:  false,
				Paginated:   true,
				Freshness:   "page",
				ErrorCodes:  []string{"UPSTREAM_FETCH_FAILED"},
				Tags:        []string{"passthrough"},
			},
			{
				ID:          "reimbursement",
				DisplayName: "Reimbursements",
				Description: "Pre-aggregated reimbursement view served verbatim",
				Normalized:  false,
				Paginated:   true,
				Freshness:   "page",
				ErrorCodes:  []string{"UPSTREAM_FETCH_FAILED"},
				Tags:        []string{"passthrough"},
			},
		},
	}
}

// Find returns the catalog entry with the given id, or nil.
func (c *CategoryCatalog) Find(id string) *Category {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i]
		}
	}
	return nil
}
