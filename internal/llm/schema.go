package llm

// BuildTariffJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to the model as a structured-output constraint and
// also use it locally to validate whatever comes back before anything is
// persisted.
func BuildTariffJSONSchema() map[string]any {
	rateTier := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"tier_name": nullableString(),
			"start_day": nullableInteger(),
			"end_day":   nullableInteger(),
			"rate":      nullableNumber(),
			"rate_unit": nullableString(),
		},
	}

	containerType := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type": nullableString(),
			"size": nullableString(),
			"free_time": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"days":     nullableInteger(),
					"day_type": nullableString(),
				},
			},
			"detention": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"days":     nullableInteger(),
					"day_type": nullableString(),
					"rate":     nullableNumber(),
				},
			},
			"rate_tiers": map[string]any{
				"type":  "array",
				"items": rateTier,
			},
		},
	}

	tariff := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"area":        nullableString(),
			"country":     nullableString(),
			"charge_type": nullableString(),
			"port":        nullableString(),
			"currency":    nullableString(),
			"container_types": map[string]any{
				"type":  "array",
				"items": containerType,
			},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"tariffs": map[string]any{
				"type":  "array",
				"items": tariff,
			},
		},
		"required": []string{"tariffs"},
	}
}

// The model is instructed to mark unknown fields null rather than guessing,
// so every leaf accepts null alongside its real type.
func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func nullableInteger() map[string]any {
	return map[string]any{"type": []string{"integer", "null"}}
}

func nullableNumber() map[string]any {
	return map[string]any{"type": []string{"number", "null"}}
}
