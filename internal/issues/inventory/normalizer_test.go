package inventory

import (
	"encoding/json"
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

func floatPtr(f float64) *float64 {
	return &f
}

func createNamedError(status, message, solution string) *models.NamedError {
	return &models.NamedError{
		Status:     status,
		Message:    message,
		HowToSolve: solution,
	}
}

func createProduct(asin, sku string, data *models.InventoryData) models.InventoryProduct {
	return models.InventoryProduct{
		Asin:  asin,
		SKU:   strPtr(sku),
		Title: "Product " + asin,
		Data:  data,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestNormalize_CheckOrder(t *testing.T) {
	p := createProduct("B001", "SKU1", &models.InventoryData{
		LongTermStorageFeeErrorData:   createNamedError("Error", "LTSF charged", "Remove aged stock"),
		UnfulfilledErrorData:          createNamedError("Error", "7 units are unfulfillable", "Create removal order"),
		StrandedInventoryErrorData:    createNamedError("Error", "Stranded units found", "Relist them"),
		InboundNonComplianceErrorData: createNamedError("Error", "Labeling problem", "Fix labels"),
	})

	rows := Normalize(p)
	require.Len(t, rows, 4)

	assert.Equal(t, "Inventory | Long-Term Storage Fees", rows[0].IssueHeading)
	assert.Equal(t, "Inventory | Unfulfillable Inventory", rows[1].IssueHeading)
	assert.Equal(t, "Inventory | Stranded Inventory", rows[2].IssueHeading)
	assert.Equal(t, "Inventory | Inbound Non-Compliance", rows[3].IssueHeading)
}

func TestNormalize_StatusDiscriminator(t *testing.T) {
	p := createProduct("B002", "SKU2", &models.InventoryData{
		LongTermStorageFeeErrorData: createNamedError("Warning", "Approaching LTSF", "Watch stock age"),
		StrandedInventoryErrorData:  createNamedError("Error", "Stranded units found", "Relist them"),
	})

	rows := Normalize(p)
	require.Len(t, rows, 1)
	assert.Equal(t, "Inventory | Stranded Inventory", rows[0].IssueHeading)
}

// ==========================
// Replenishment Polymorphism Tests
// ==========================

func createReplenishmentRecord(sku string, qty *float64) models.ReplenishmentRecord {
	rec := models.ReplenishmentRecord{
		Status:                      "Error",
		Message:                     "Only 5 units available. Amazon recommends replenishing 20 units.",
		HowToSolve:                  "Send more inventory to FBA",
		RecommendedReplenishmentQty: qty,
	}
	if sku != "" {
		rec.SKU = strPtr(sku)
	}
	return rec
}

func TestNormalize_ReplenishmentSingleVersusArray(t *testing.T) {
	rec := createReplenishmentRecord("SKU-R1", floatPtr(20))

	single := createProduct("B003", "SKU3", &models.InventoryData{
		ReplenishmentErrorData: &models.ReplenishmentField{Records: []models.ReplenishmentRecord{rec}},
	})

	// Same data reshaped through the wire as a one-element array.
	raw, err := json.Marshal([]models.ReplenishmentRecord{rec})
	require.NoError(t, err)
	var field models.ReplenishmentField
	require.NoError(t, json.Unmarshal(raw, &field))
	asArray := createProduct("B003", "SKU3", &models.InventoryData{ReplenishmentErrorData: &field})

	singleRows := Normalize(single)
	arrayRows := Normalize(asArray)

	require.Len(t, singleRows, 1)
	require.Len(t, arrayRows, 1)
	assert.Equal(t, singleRows, arrayRows)

	row := singleRows[0]
	assert.Equal(t, "B003", row.Asin)
	assert.Equal(t, "SKU-R1", *row.SKU)
	assert.Equal(t, "Inventory | Replenishment Required", row.IssueHeading)
	assert.Equal(t, 20.0, row.Extra["recommendedReplenishmentQty"])
}

func TestReplenishmentField_UnmarshalSingleObject(t *testing.T) {
	raw := []byte(`{"status":"Error","Message":"Running low","HowToSolve":"Restock","sku":"SKU-A","recommendedReplenishmentQty":15}`)

	var field models.ReplenishmentField
	require.NoError(t, json.Unmarshal(raw, &field))
	require.Len(t, field.Records, 1)
	assert.Equal(t, "SKU-A", *field.Records[0].SKU)
}

func TestNormalize_ReplenishmentPerSKURows(t *testing.T) {
	p := createProduct("B004", "SKU4", &models.InventoryData{
		ReplenishmentErrorData: &models.ReplenishmentField{Records: []models.ReplenishmentRecord{
			createReplenishmentRecord("SKU-A", floatPtr(10)),
			createReplenishmentRecord("SKU-B", floatPtr(25)),
		}},
	})

	rows := Normalize(p)
	require.Len(t, rows, 2)
	assert.Equal(t, "SKU-A", *rows[0].SKU)
	assert.Equal(t, "SKU-B", *rows[1].SKU)
}

func TestNormalize_ReplenishmentSKUFallsBackToProduct(t *testing.T) {
	p := createProduct("B005", "SKU5", &models.InventoryData{
		ReplenishmentErrorData: &models.ReplenishmentField{Records: []models.ReplenishmentRecord{
			createReplenishmentRecord("", floatPtr(30)),
		}},
	})

	rows := Normalize(p)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU5", *rows[0].SKU)
}

func TestNormalize_ReplenishmentLegacyDataField(t *testing.T) {
	rec := models.ReplenishmentRecord{
		Status:     "Error",
		Message:    "Stock low",
		HowToSolve: "Restock",
		Data:       floatPtr(42),
	}
	p := createProduct("B006", "SKU6", &models.InventoryData{
		ReplenishmentErrorData: &models.ReplenishmentField{Records: []models.ReplenishmentRecord{rec}},
	})

	rows := Normalize(p)
	require.Len(t, rows, 1)
	assert.Equal(t, 42.0, rows[0].Extra["recommendedReplenishmentQty"])
}

func TestNormalize_ReplenishmentPrefersCurrentFieldOverLegacy(t *testing.T) {
	rec := models.ReplenishmentRecord{
		Status:                      "Error",
		Message:                     "Stock low",
		HowToSolve:                  "Restock",
		RecommendedReplenishmentQty: floatPtr(20),
		Data:                        floatPtr(99),
	}
	p := createProduct("B007", "SKU7", &models.InventoryData{
		ReplenishmentErrorData: &models.ReplenishmentField{Records: []models.ReplenishmentRecord{rec}},
	})

	rows := Normalize(p)
	require.Len(t, rows, 1)
	assert.Equal(t, 20.0, rows[0].Extra["recommendedReplenishmentQty"])
}

// ==========================
// Edge Case Tests
// ==========================

func TestNormalize_NoQualifyingErrors(t *testing.T) {
	assert.Empty(t, Normalize(createProduct("B008", "SKU8", nil)))
	assert.Empty(t, Normalize(createProduct("B008", "SKU8", &models.InventoryData{})))

	p := createProduct("B008", "SKU8", &models.InventoryData{
		ReplenishmentErrorData: &models.ReplenishmentField{Records: []models.ReplenishmentRecord{
			{Status: "Success", Message: "Stock healthy"},
		}},
	})
	assert.Empty(t, Normalize(p))
}
