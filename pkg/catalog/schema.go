// pkg/catalog/schema.go
package catalog

// CategoryCatalog describes the issue categories the service serves.
type CategoryCatalog struct {
	Version    string     `json:"version"`
	Categories []Category `json:"categories"`
}

// Category is one catalog entry. Normalized categories run through the
// row pipeline; pass-through categories are cached and served verbatim.
type Category struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Normalized  bool     `json:"normalized"`
	Paginated   bool     `json:"paginated"`
	Freshness   string   `json:"freshness"`
	ErrorCodes  []string `json:"errorCodes"`
	Tags        []string `json:"tags"`
}
