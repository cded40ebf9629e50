package llm

import "strings"

// maxPromptText caps how much extracted PDF text goes into one request.
const maxPromptText = 60000

// BuildSystemPrompt describes the extraction task and the exact output
// contract. Unknown values must come back as null, never a guessed default:
// the ingestion side preserves null through to storage.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a specialized port tariff data extraction system.",
		"Return ONLY a single JSON object that matches the provided JSON Schema, with a top-level 'tariffs' array.",
		"Extract: area/region, country, charge type (e.g., MHO, Demurrage, Detention), port, currency,",
		"equipment types and sizes (20', 40', Dry, Reefer, Special), free time periods and day calculation method (Calendar/Working),",
		"detention terms, and rate tiers/buckets with their day ranges.",
		"Convert all rates to numerical values without currency symbols.",
		"If a field is not explicitly mentioned in the document, set it to null. Never invent a value; 0 means an actual zero rate.",
		"Group related information logically by container type and port.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the region hint and the extracted document text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	b.WriteString("Region: ")
	b.WriteString(strings.TrimSpace(req.Region))
	b.WriteString("\n\nTariff document text:\n")

	text := req.Text
	if len(text) > maxPromptText {
		text = text[:maxPromptText] + "\n…(truncated)"
	}
	b.WriteString(text)
	return b.String()
}
