package conversion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerqi-insights/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func strPtr(s string) *string {
	return &s
}

func createNamedError(status, message, solution, errType string) *models.NamedError {
	return &models.NamedError{
		Status:     status,
		Message:    message,
		HowToSolve: solution,
		Type:       errType,
	}
}

func createProduct(asin string, data *models.ConversionData) models.ConversionProduct {
	return models.ConversionProduct{
		Asin:  asin,
		SKU:   strPtr(asin + "-SKU"),
		Title: "Product " + asin,
		Data:  data,
	}
}

func createBuyBoxRecord(asin string, pct float64, pageViews, sessions int) models.BuyBoxRecord {
	return models.BuyBoxRecord{
		ChildAsin:        asin,
		Title:            "Product " + asin,
		SKU:              strPtr(asin + "-SKU"),
		BuyBoxPercentage: pct,
		PageViews:        pageViews,
		Sessions:         sessions,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestNormalize_SourceOrderAndTypeSubLabel(t *testing.T) {
	p := createProduct("B001", &models.ConversionData{
		ImageResultErrorData:      createNamedError("Error", "Too few images", "Add images", "Image Count"),
		VideoResultErrorData:      createNamedError("Error", "No product video", "Upload a video", ""),
		BrandStoryResultErrorData: createNamedError("Error", "Missing brand story", "Publish one", "Missing"),
	})

	rows := Normalize(p)
	require.Len(t, rows, 3)

	assert.Equal(t, "Images | Image Count", rows[0].IssueHeading)
	assert.Equal(t, "Videos | Issue", rows[1].IssueHeading, "empty type falls back to Issue")
	assert.Equal(t, "Brand Story | Missing", rows[2].IssueHeading)
}

func TestNormalize_StatusDiscriminator(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		wantRows int
	}{
		{name: "Error emits", status: "Error", wantRows: 1},
		{name: "Warning does not emit", status: "Warning", wantRows: 0},
		{name: "empty status does not emit", status: "", wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := createProduct("B002", &models.ConversionData{
				RatingResultErrorData: createNamedError(tt.status, "Low rating", "Improve reviews", "Rating"),
			})
			assert.Len(t, Normalize(p), tt.wantRows)
		})
	}
}

func TestNormalize_NilData(t *testing.T) {
	assert.Empty(t, Normalize(createProduct("B003", nil)))
	assert.Empty(t, Normalize(createProduct("B003", &models.ConversionData{})))
}

// ==========================
// Buy-Box Synthesis Tests
// ==========================

func TestNormalizePage_BuyBoxZeroPercent(t *testing.T) {
	page := models.ConversionPage{
		BuyBoxData: []models.BuyBoxRecord{createBuyBoxRecord("B010", 0, 120, 80)},
	}

	rows := NormalizePage(page)
	require.Len(t, rows, 1)

	assert.Equal(t, "Buy Box | No Buy Box", rows[0].IssueHeading)
	assert.Contains(t, rows[0].Message, "120 page views")
	assert.Contains(t, rows[0].Message, "80 sessions")
	assert.Equal(t, "B010", rows[0].Asin)
}

func TestNormalizePage_BuyBoxLowPercent(t *testing.T) {
	page := models.ConversionPage{
		BuyBoxData: []models.BuyBoxRecord{createBuyBoxRecord("B011", 32.46, 0, 0)},
	}

	rows := NormalizePage(page)
	require.Len(t, rows, 1)

	assert.Equal(t, "Buy Box | Low Buy Box Percentage", rows[0].IssueHeading)
	assert.Contains(t, rows[0].Message, "32.5%", "percentage rendered to one decimal")
}

func TestNormalizePage_BuyBoxHealthyPercentEmitsNothing(t *testing.T) {
	page := models.ConversionPage{
		BuyBoxData: []models.BuyBoxRecord{
			createBuyBoxRecord("B012", 50, 10, 5),
			createBuyBoxRecord("B013", 97.3, 10, 5),
		},
	}

	assert.Empty(t, NormalizePage(page))
}

// A product with both a conversion-level buy-box error and a qualifying
// buy-box record ends up with exactly one buy-box row, the synthesized one.
func TestNormalizePage_SynthesizedRowsTakePrecedence(t *testing.T) {
	page := models.ConversionPage{
		Products: []models.ConversionProduct{
			createProduct("B014", &models.ConversionData{
				ImageResultErrorData:  createNamedError("Error", "Too few images", "Add images", "Image Count"),
				BuyBoxResultErrorData: createNamedError("Error", "Buy Box lost", "Win it back", "Lost"),
			}),
		},
		BuyBoxData: []models.BuyBoxRecord{createBuyBoxRecord("B014", 12.0, 40, 30)},
	}

	rows := NormalizePage(page)
	require.Len(t, rows, 2)

	buyBoxRows := 0
	for _, row := range rows {
		if strings.Contains(row.IssueHeading, "Buy Box") {
			buyBoxRows++
			assert.Equal(t, "Buy Box | Low Buy Box Percentage", row.IssueHeading,
				"only the synthesized row survives")
		}
	}
	assert.Equal(t, 1, buyBoxRows)

	assert.Equal(t, "Images | Image Count", rows[0].IssueHeading,
		"non-buy-box conversion rows are kept ahead of synthesized rows")
}

func TestNormalizePage_ConversionBuyBoxRowKeptWithoutSynthesis(t *testing.T) {
	page := models.ConversionPage{
		Products: []models.ConversionProduct{
			createProduct("B015", &models.ConversionData{
				BuyBoxResultErrorData: createNamedError("Error", "Buy Box lost", "Win it back", "Lost"),
			}),
		},
	}

	rows := NormalizePage(page)
	require.Len(t, rows, 1)
	assert.Equal(t, "Buy Box | Lost", rows[0].IssueHeading)
}

func TestNormalizePage_ParentAsinFallback(t *testing.T) {
	rec := models.BuyBoxRecord{ParentAsin: "BPARENT", BuyBoxPercentage: 10}
	page := models.ConversionPage{BuyBoxData: []models.BuyBoxRecord{rec}}

	rows := NormalizePage(page)
	require.Len(t, rows, 1)
	assert.Equal(t, "BPARENT", rows[0].Asin)
}
