package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// CheckRateTiers enforces the day-range invariants the schema cannot express:
// start_day <= end_day when both are present, and no overlapping day ranges
// among the tiers of one container type. A violation rejects the whole
// document so no partial hierarchy is ever committed.
func CheckRateTiers(ext *TariffExtraction) error {
	for ti, t := range ext.Tariffs {
		for ci, ct := range t.ContainerTypes {
			for _, tier := range ct.RateTiers {
				if tier.StartDay != nil && tier.EndDay != nil && *tier.StartDay > *tier.EndDay {
					return fmt.Errorf("tariff %d container %d tier %q: start_day %d > end_day %d",
						ti, ci, tier.TierName, *tier.StartDay, *tier.EndDay)
				}
			}
			for i := 0; i < len(ct.RateTiers); i++ {
				for j := i + 1; j < len(ct.RateTiers); j++ {
					if tiersOverlap(ct.RateTiers[i], ct.RateTiers[j]) {
						return fmt.Errorf("tariff %d container %d: tiers %q and %q overlap in day range",
							ti, ci, ct.RateTiers[i].TierName, ct.RateTiers[j].TierName)
					}
				}
			}
		}
	}
	return nil
}

// tiersOverlap treats a missing bound as open-ended in that direction; tiers
// with no bounds at all cannot be compared and are allowed to coexist.
func tiersOverlap(a, b RateTier) bool {
	if (a.StartDay == nil && a.EndDay == nil) || (b.StartDay == nil && b.EndDay == nil) {
		return false
	}
	aStart, aEnd := bounds(a)
	bStart, bEnd := bounds(b)
	return aStart <= bEnd && bStart <= aEnd
}

func bounds(t RateTier) (int, int) {
	const openEnd = 1 << 30
	start, end := 0, openEnd
	if t.StartDay != nil {
		start = *t.StartDay
	}
	if t.EndDay != nil {
		end = *t.EndDay
	}
	return start, end
}
