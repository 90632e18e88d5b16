package form

import (
	"strings"
	"testing"
	"time"

	"portal/internal/model"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const institutionalID = "inst-001"

var (
	companyActor = model.Profile{ID: "u-company", Name: "ACME", Role: model.RoleCompany, CompanyID: "c1"}
	adminActor   = model.Profile{ID: "u-admin", Name: "Admin", Role: model.RoleAdmin}
)

func TestPracticeScenarioStoresUnformattedAmount(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)

	require.NoError(t, f.SetField(FieldRoleName, "Analista de Datos"))
	require.NoError(t, f.SetField(FieldRequirements, "Excel avanzado"))
	require.NoError(t, f.SetField(FieldAidAmount, "1500000"))
	require.NoError(t, f.Validate())

	opp := f.ToOpportunity()
	assert.Equal(t, int64(1500000), opp.AidAmount)
	assert.Equal(t, "c1", opp.CompanyID)
	assert.Equal(t, model.KindPractice, opp.Kind)
	assert.Equal(t, "$1.500.000", f.FormattedAidAmount())
}

func TestAidAmountStripsNonDigits(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)
	require.NoError(t, f.SetField(FieldAidAmount, "$ 2.750.000 COP"))
	assert.Equal(t, int64(2750000), f.Values().AidAmount)

	require.NoError(t, f.SetField(FieldAidAmount, ""))
	assert.Equal(t, int64(0), f.Values().AidAmount)
}

func TestRequiredFields(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)

	err := f.Validate()
	require.Error(t, err)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, FieldRoleName)
	assert.Contains(t, verrs, FieldRequirements)
	assert.NotContains(t, verrs, FieldDuties)
}

func TestDutiesLengthProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	validate := func(n int) ValidationErrors {
		f := InitFromEmpty(companyActor, institutionalID)
		_ = f.SetField(FieldRoleName, "Analista")
		_ = f.SetField(FieldRequirements, "Excel")
		_ = f.SetField(FieldDuties, strings.Repeat("ñ", n))
		if err := f.Validate(); err != nil {
			return err.(ValidationErrors)
		}
		return nil
	}

	properties.Property("duties of 1..59 characters are rejected", prop.ForAll(
		func(n int) bool {
			_, rejected := validate(n)[FieldDuties]
			return rejected
		},
		gen.IntRange(1, model.MinDutiesLength-1),
	))

	properties.Property("duties of 60 or more characters are accepted", prop.ForAll(
		func(n int) bool {
			return validate(n) == nil
		},
		gen.IntRange(model.MinDutiesLength, 500),
	))

	properties.TestingRun(t)

	assert.Nil(t, validate(0), "empty duties are optional")
}

func TestAmountRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("formatted amounts parse back to the same integer", prop.ForAll(
		func(n int64) bool {
			parsed, err := ParseAmount(FormatAmount(n))
			return err == nil && parsed == n
		},
		gen.Int64Range(0, 1<<50),
	))

	properties.TestingRun(t)
}

func TestAdministrativePracticeRequiresCompanyFirst(t *testing.T) {
	f := InitFromEmpty(adminActor, institutionalID)

	assert.ErrorIs(t, f.SetField(FieldRoleName, "Analista"), ErrCompanySelectionRequired)
	assert.ErrorIs(t, f.AddProgram("Pregrado", "Derecho"), ErrCompanySelectionRequired)
	assert.False(t, f.HasUnsavedChanges())

	require.NoError(t, f.SelectCompany("c9", "Globex"))
	require.NoError(t, f.SetField(FieldRoleName, "Analista"))
	assert.Equal(t, "c9", f.ToOpportunity().CompanyID)
	assert.Equal(t, "Globex", f.ToOpportunity().CompanyName)
}

func TestCompanyActorCannotChangeCompany(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)
	assert.ErrorIs(t, f.SetField(FieldCompanyID, "other"), ErrCompanyLocked)
}

func TestMonitoringBindsInstitutionalCompany(t *testing.T) {
	f := InitFromEmpty(adminActor, institutionalID)

	require.NoError(t, f.SetField(FieldKind, "monitoria"))
	assert.Equal(t, institutionalID, f.Values().CompanyID)
	assert.ErrorIs(t, f.SelectCompany("c9", "Globex"), ErrCompanyLocked)
	require.NoError(t, f.SetField(FieldRoleName, "Monitor de Cálculo"))

	require.NoError(t, f.SetField(FieldKind, "practice"))
	assert.Empty(t, f.Values().CompanyID)
	assert.ErrorIs(t, f.SetField(FieldRoleName, "x"), ErrCompanySelectionRequired)
}

func TestUnknownFieldIsRejected(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)
	assert.ErrorIs(t, f.SetField("salary", "1"), ErrUnknownField)
}

func TestFieldParsingErrors(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)

	assert.Error(t, f.SetField(FieldVacancies, "-2"))
	assert.Error(t, f.SetField(FieldExpiresOn, "31/12/2024"))
	assert.Error(t, f.SetField(FieldMinGPA, "7"))
	assert.Error(t, f.SetField(FieldKind, "freelance"))

	require.NoError(t, f.SetField(FieldMinGPA, "3,8"))
	assert.Equal(t, "3.8", f.Values().MinGPA)
}

func TestCollections(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)

	require.NoError(t, f.AddProgram("Pregrado", "Ingeniería de Sistemas"))
	assert.ErrorIs(t, f.AddProgram("pregrado", "INGENIERIA DE SISTEMAS"), ErrDuplicateEntry)
	require.NoError(t, f.AddProgram("Posgrado", "Maestría en Analítica"))
	require.NoError(t, f.RemoveProgram(0))
	assert.Equal(t, []model.ProgramRef{{Level: "Posgrado", Name: "Maestría en Analítica"}}, f.Values().Programs)
	assert.ErrorIs(t, f.RemoveProgram(3), ErrIndexOutOfRange)

	require.NoError(t, f.AddLanguage("Inglés", "B2"))
	assert.ErrorIs(t, f.AddLanguage("inglés", "C1"), ErrDuplicateEntry)
	require.NoError(t, f.RemoveLanguage(0))
	assert.Empty(t, f.Values().Languages)

	require.NoError(t, f.AddEmotionalBenefit(model.BenefitRemoteWork))
	assert.ErrorIs(t, f.AddEmotionalBenefit(model.BenefitRemoteWork), ErrDuplicateEntry)
	assert.Error(t, f.AddEmotionalBenefit("gym"))
	require.NoError(t, f.RemoveEmotionalBenefit(0))
	assert.ErrorIs(t, f.RemoveEmotionalBenefit(0), ErrIndexOutOfRange)
}

func TestDocumentSlots(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)

	require.NoError(t, f.AttachDocument(model.DocumentRef{Slot: 0, Name: "convenio.pdf", Required: true}))
	require.NoError(t, f.AttachDocument(model.DocumentRef{Slot: 2, Name: "anexo.pdf", Required: true}))
	assert.ErrorIs(t, f.AttachDocument(model.DocumentRef{Slot: model.MaxDocuments, Name: "extra.pdf"}), ErrTooManyDocuments)

	docs := f.Values().Documents
	require.Len(t, docs, 2)
	assert.True(t, docs[0].Required)
	assert.False(t, docs[1].Required, "only the first slot may be required")

	removed, ok := f.DetachDocument(2)
	require.True(t, ok)
	assert.Equal(t, "anexo.pdf", removed.Name)
	assert.Len(t, f.Values().Documents, 1)
}

func TestHasUnsavedChanges(t *testing.T) {
	f := InitFromEmpty(companyActor, institutionalID)
	assert.False(t, f.HasUnsavedChanges())

	require.NoError(t, f.SetField(FieldCity, "Bogotá"))
	assert.True(t, f.HasUnsavedChanges())

	require.NoError(t, f.SetField(FieldCity, ""))
	assert.False(t, f.HasUnsavedChanges())

	require.NoError(t, f.AddProgram("Pregrado", "Derecho"))
	assert.True(t, f.HasUnsavedChanges())
	f.MarkSaved("o1", model.StatusDraft)
	assert.False(t, f.HasUnsavedChanges())
	assert.Equal(t, "o1", f.OpportunityID())
}

func TestNoOpEditIsIdempotent(t *testing.T) {
	expires := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	existing := model.Opportunity{
		ID:                "o1",
		Kind:              model.KindPractice,
		CompanyID:         "c1",
		CompanyName:       "ACME",
		Status:            model.StatusActive,
		RoleName:          "Analista de Datos",
		EconomicAid:       true,
		AidAmount:         1500000,
		LinkageType:       "contrato_aprendizaje",
		Period:            "2025-1",
		Vacancies:         2,
		ExpiresOn:         &expires,
		Country:           "Colombia",
		City:              "Bogotá",
		WeeklyHours:       "40",
		Schedule:          "L-V 8-5",
		PerformanceArea:   "Tecnología",
		SupportLinks:      "https://example.org/formato",
		Documents:         []model.DocumentRef{{Slot: 0, Name: "convenio.pdf", URL: "https://files/convenio.pdf", Required: true}},
		EmotionalBenefits: []string{model.BenefitTraining},
		MinGPA:            decimal.RequireFromString("3.8"),
		Programs:          []model.ProgramRef{{Level: "Pregrado", Name: "Economía"}},
		Languages:         []model.LanguageRequirement{{Language: "Inglés", Level: "B1"}},
		Duties:            strings.Repeat("d", 80),
		Requirements:      "Excel avanzado",
	}

	f := InitFromExisting(existing, companyActor, institutionalID)
	assert.False(t, f.HasUnsavedChanges())
	require.NoError(t, f.Validate())

	out := f.ToOpportunity()
	assert.Equal(t, existing.ID, out.ID)
	assert.Equal(t, existing.Status, out.Status)
	assert.Equal(t, existing.RoleName, out.RoleName)
	assert.Equal(t, existing.AidAmount, out.AidAmount)
	assert.Equal(t, existing.Programs, out.Programs)
	assert.Equal(t, existing.Languages, out.Languages)
	assert.Equal(t, existing.Documents, out.Documents)
	assert.Equal(t, existing.EmotionalBenefits, out.EmotionalBenefits)
	assert.Equal(t, existing.Duties, out.Duties)
	require.NotNil(t, out.ExpiresOn)
	assert.True(t, existing.ExpiresOn.Equal(*out.ExpiresOn))
	assert.True(t, existing.MinGPA.Equal(out.MinGPA))
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := InitFromEmpty(adminActor, institutionalID)
	require.NoError(t, f.SelectCompany("c9", "Globex"))
	require.NoError(t, f.SetField(FieldRoleName, "Analista"))
	require.NoError(t, f.AddProgram("Pregrado", "Derecho"))
	require.NoError(t, f.AddEmotionalBenefit(model.BenefitMeals))

	data, err := f.Snapshot().Encode()
	require.NoError(t, err)
	snapshot, err := DecodeSnapshot(data)
	require.NoError(t, err)

	restored := Restore(snapshot)
	assert.Equal(t, f.Values(), restored.Values())
	assert.Equal(t, f.HasUnsavedChanges(), restored.HasUnsavedChanges())
	assert.Equal(t, adminActor.ID, restored.Actor().ID)
	assert.Error(t, restored.SetField(FieldKind, "bogus"))
}
