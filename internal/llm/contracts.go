package llm

import "context"

// TariffExtraction is the normalized shape we want from the LLM: one or more
// tariffs, each owning container types, each owning rate tiers. Numeric
// fields are pointers so an unknown value survives as NULL end-to-end —
// zero is a legal rate and must stay distinct from "not found".
type TariffExtraction struct {
	Tariffs []Tariff `json:"tariffs"`
}

// Tariff is one charge schedule for a port/area/country/charge-type/currency
// combination.
type Tariff struct {
	Area           string          `json:"area"`
	Country        string          `json:"country"`
	ChargeType     string          `json:"charge_type"`
	Port           string          `json:"port"`
	Currency       string          `json:"currency"`
	ContainerTypes []ContainerType `json:"container_types"`
}

// ContainerType carries free-time and detention terms for one equipment
// type/size within a tariff.
type ContainerType struct {
	Type      string     `json:"type"`
	Size      string     `json:"size"`
	FreeTime  FreeTime   `json:"free_time"`
	Detention Detention  `json:"detention"`
	RateTiers []RateTier `json:"rate_tiers"`
}

type FreeTime struct {
	Days    *int   `json:"days"`
	DayType string `json:"day_type"`
}

type Detention struct {
	Days    *int     `json:"days"`
	DayType string   `json:"day_type"`
	Rate    *float64 `json:"rate"`
}

// RateTier is a day-range-bound rate bucket within a container type.
type RateTier struct {
	TierName string   `json:"tier_name"`
	StartDay *int     `json:"start_day"`
	EndDay   *int     `json:"end_day"`
	Rate     *float64 `json:"rate"`
	RateUnit string   `json:"rate_unit"`
}

// ExtractRequest carries everything a structured-extraction call needs.
type ExtractRequest struct {
	Region string
	Text   string
}

// TariffExtractor is the interface the pipeline depends on.
type TariffExtractor interface {
	ExtractTariffs(ctx context.Context, req ExtractRequest) (*TariffExtraction, []byte /*rawJSON*/, error)
}
