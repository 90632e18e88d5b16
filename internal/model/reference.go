package model

// Catalog keys served by the reference provider under /locations/items/:key
const (
	CatalogLinkageTypes     = "L_LINKAGE_TYPE"
	CatalogDedicationTypes  = "L_DEDICATION_TYPE"
	CatalogPerformanceAreas = "L_PERFORMANCE_AREA"
	CatalogCountries        = "L_COUNTRY"
	CatalogCities           = "L_CITY"
	CatalogProgramLevels    = "L_PROGRAM_LEVEL"
	CatalogLanguages        = "L_LANGUAGE"
	CatalogLanguageLevels   = "L_LANGUAGE_LEVEL"
)

// EmotionalBenefit enum constants (non-monetary benefits offered with a position)
const (
	BenefitFlexibleSchedule = "flexible_schedule"
	BenefitRemoteWork       = "remote_work"
	BenefitTraining         = "training"
	BenefitWellness         = "wellness"
	BenefitTransport        = "transport"
	BenefitMeals            = "meals"
	BenefitOther            = "other"
)

var EmotionalBenefits = []string{
	BenefitFlexibleSchedule,
	BenefitRemoteWork,
	BenefitTraining,
	BenefitWellness,
	BenefitTransport,
	BenefitMeals,
	BenefitOther,
}

// CatalogItem is one entry of a reference enumeration.
type CatalogItem struct {
	ID          string `json:"id"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Sector  string `json:"sector,omitempty"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

type Program struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Level   string `json:"level"`
	Faculty string `json:"faculty,omitempty"`
}

type Subject struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Program string `json:"program,omitempty"`
}

type Period struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

// Minimum search lengths for remote lookups. Shorter input never reaches the store.
const (
	MinCompanySearchLength = 3
	MinProgramSearchLength = 2
	MinSubjectSearchLength = 3
)
