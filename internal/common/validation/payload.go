// Package validation gates inbound category payloads before they reach
// the normalizers. Schemas are deliberately permissive: every field is
// optional (a missing field means "no issue"), only type mismatches and
// non-object payloads are rejected.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Result carries the outcome of a payload validation.
type Result struct {
	Valid  bool
	Errors []string
}

var checkObjectSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"status":     map[string]interface{}{"type": "string"},
		"Message":    map[string]interface{}{"type": "string"},
		"HowToSolve": map[string]interface{}{"type": "string"},
		"HowTOSolve": map[string]interface{}{"type": "string"},
		"type":       map[string]interface{}{"type": "string"},
	},
	"additionalProperties": true,
}

var productSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"asin":  map[string]interface{}{"type": "string"},
		"sku":   map[string]interface{}{"type": []string{"string", "null"}},
		"Title": map[string]interface{}{"type": "string"},
		"data":  map[string]interface{}{"type": "object"},
	},
	"additionalProperties": true,
}

var categorySchemas = map[string]map[string]interface{}{
	"ranking": {
		"type": "object",
		"properties": map[string]interface{}{
			"products": map[string]interface{}{
				"type":  "array",
				"items": productSchema,
			},
			"total": map[string]interface{}{"type": "integer"},
			"page":  map[string]interface{}{"type": "integer"},
		},
		"additionalProperties": true,
	},
	"conversion": {
		"type": "object",
		"properties": map[string]interface{}{
			"products": map[string]interface{}{
				"type":  "array",
				"items": productSchema,
			},
			"buyBoxData": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"childAsin":        map[string]interface{}{"type": "string"},
						"parentAsin":       map[string]interface{}{"type": "string"},
						"buyBoxPercentage": map[string]interface{}{"type": "number"},
						"pageViews":        map[string]interface{}{"type": "number"},
						"sessions":         map[string]interface{}{"type": "number"},
					},
					"additionalProperties": true,
				},
			},
			"total": map[string]interface{}{"type": "integer"},
			"page":  map[string]interface{}{"type": "integer"},
		},
		"additionalProperties": true,
	},
	"inventory": {
		"type": "object",
		"properties": map[string]interface{}{
			"products": map[string]interface{}{
				"type":  "array",
				"items": productSchema,
			},
			"total": map[string]interface{}{"type": "integer"},
			"page":  map[string]interface{}{"type": "integer"},
		},
		"additionalProperties": true,
	},
	"account": {
		"type": "object",
		"properties": map[string]interface{}{
			"checks": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": checkObjectSchema,
			},
			"total":  map[string]interface{}{"type": "integer"},
		},
		"additionalProperties": true,
	},
}

// ValidateCategoryPayload validates a decoded JSON document against the
// category's schema. Unknown categories pass through unvalidated; the
// fetch layer rejects those earlier.
func ValidateCategoryPayload(category string, document interface{}) (*Result, error) {
	schemaMap, ok := categorySchemas[category]
	if !ok {
		return &Result{Valid: true}, nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return &Result{Valid: true}, nil
	}

	out := &Result{Valid: false}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, desc.String())
	}
	return out, nil
}