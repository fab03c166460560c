// internal/models/payloads.go
//
// Upstream category payload shapes. Field names mirror the aggregation
// API verbatim, including its legacy spellings ("RestictedWords",
// "HowTOSolve"); every nested field is optional and a missing field
// means "no issue for this check".
package models

import "encoding/json"

// RankingCheck is one listing-quality check result in the ranking payload.
type RankingCheck struct {
	Status     string `json:"status"`
	Message    string `json:"Message"`
	HowTOSolve string `json:"HowTOSolve"`
}

// RankingSection groups the per-section checks of the ranking payload.
type RankingSection struct {
	RestictedWords         *RankingCheck `json:"RestictedWords"`
	CheckSpecialCharacters *RankingCheck `json:"checkSpecialCharacters"`
	CharLim                *RankingCheck `json:"charLim"`
}

// RankingData is the nested per-product ranking error object.
type RankingData struct {
	TitleResult     *RankingSection `json:"TitleResult"`
	BulletPoints    *RankingSection `json:"BulletPoints"`
	Description     *RankingSection `json:"Description"`
	BackendKeyWords *RankingSection `json:"BackendKeyWords"`
	CharLim         *RankingCheck   `json:"charLim"`
}

// RankingProduct is one product entry of a ranking category page.
type RankingProduct struct {
	Asin  string       `json:"asin"`
	SKU   *string      `json:"sku"`
	Title string       `json:"Title"`
	Data  *RankingData `json:"data"`
}

// NamedError is a flat named error object used by the conversion,
// inventory, and account payloads.
type NamedError struct {
	Status     string `json:"status"`
	Message    string `json:"Message"`
	HowToSolve string `json:"HowToSolve"`
	Type       string `json:"type"`
}

// ConversionData is the flat set of named error objects of one product.
type ConversionData struct {
	ImageResultErrorData      *NamedError `json:"imageResultErrorData"`
	VideoResultErrorData      *NamedError `json:"videoResultErrorData"`
	RatingResultErrorData     *NamedError `json:"productReviewResultErrorData"`
	BuyBoxResultErrorData     *NamedError `json:"buyBoxResultErrorData"`
	APlusResultErrorData      *NamedError `json:"aplusResultErrorData"`
	BrandStoryResultErrorData *NamedError `json:"brandStoryResultErrorData"`
}

// ConversionProduct is one product entry of a conversion category page.
type ConversionProduct struct {
	Asin  string          `json:"asin"`
	SKU   *string         `json:"sku"`
	Title string          `json:"Title"`
	Data  *ConversionData `json:"data"`
}

// BuyBoxRecord is a per-listing buy-box measurement, delivered as a
// separate array and joined to products by asin.
type BuyBoxRecord struct {
	ChildAsin        string  `json:"childAsin"`
	ParentAsin       string  `json:"parentAsin"`
	Title            string  `json:"Title"`
	SKU              *string `json:"sku"`
	BuyBoxPercentage float64 `json:"buyBoxPercentage"`
	PageViews        int     `json:"pageViews"`
	Sessions         int     `json:"sessions"`
}

// Asin returns the join key, preferring the child asin.
func (b BuyBoxRecord) Asin() string {
	if b.ChildAsin != "" {
		return b.ChildAsin
	}
	return b.ParentAsin
}

// ReplenishmentRecord is one replenishment-risk entry. The upstream
// sends either a single object or an array of them, one per SKU.
type ReplenishmentRecord struct {
	Status                      string   `json:"status"`
	Message                     string   `json:"Message"`
	HowToSolve                  string   `json:"HowToSolve"`
	SKU                         *string  `json:"sku"`
	RecommendedReplenishmentQty *float64 `json:"recommendedReplenishmentQty"`
	Data                        *float64 `json:"data"`
}

// Qty resolves the recommended quantity, preferring the current field
// over the legacy "data" field.
func (r ReplenishmentRecord) Qty() *float64 {
	if r.RecommendedReplenishmentQty != nil {
		return r.RecommendedReplenishmentQty
	}
	return r.Data
}

// ReplenishmentField accepts both the single-object and the
// array-of-objects wire forms and exposes a uniform record list.
type ReplenishmentField struct {
	Records []ReplenishmentRecord
}

func (f *ReplenishmentField) UnmarshalJSON(b []byte) error {
	var many []ReplenishmentRecord
	if err := json.Unmarshal(b, &many); err == nil {
		f.Records = many
		return nil
	}

	var one ReplenishmentRecord
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	f.Records = []ReplenishmentRecord{one}
	return nil
}

func (f ReplenishmentField) MarshalJSON() ([]byte, error) {
	if len(f.Records) == 1 {
		return json.Marshal(f.Records[0])
	}
	return json.Marshal(f.Records)
}

// InventoryData is the per-product inventory error object.
type InventoryData struct {
	LongTermStorageFeeErrorData   *NamedError         `json:"longTermStorageFeeErrorData"`
	UnfulfilledErrorData          *NamedError         `json:"unfulfilledErrorData"`
	StrandedInventoryErrorData    *NamedError         `json:"strandedInventoryErrorData"`
	InboundNonComplianceErrorData *NamedError         `json:"inboundNonComplianceErrorData"`
	ReplenishmentErrorData        *ReplenishmentField `json:"replenishmentErrorData"`
}

// InventoryProduct is one product entry of an inventory category page.
type InventoryProduct struct {
	Asin  string         `json:"asin"`
	SKU   *string        `json:"sku"`
	Title string         `json:"Title"`
	Data  *InventoryData `json:"data"`
}

// AccountData carries account-level checks keyed by check name.
// Account rows have no asin.
type AccountData struct {
	Checks map[string]NamedError `json:"checks"`
}

// --- Category pages ---

// PageMeta is the pagination envelope shared by all category pages.
type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type RankingPage struct {
	PageMeta
	Products []RankingProduct `json:"products"`
}

type ConversionPage struct {
	PageMeta
	Products   []ConversionProduct `json:"products"`
	BuyBoxData []BuyBoxRecord      `json:"buyBoxData"`
}

type InventoryPage struct {
	PageMeta
	Products []InventoryProduct `json:"products"`
}

type AccountPage struct {
	PageMeta
	Data *AccountData `json:"data"`
}
