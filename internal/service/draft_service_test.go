package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"portal/internal/documents"
	"portal/internal/form"
	"portal/internal/model"
	"portal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const institutionID = "inst-1"

type draftFixture struct {
	svc    DraftService
	store  *fakeStore
	drafts *repository.MemoryDraftStore
	stager *documents.MemoryStager
}

func newDraftFixture(opps ...model.Opportunity) draftFixture {
	store := newFakeStore(opps...)
	lifecycle := NewLifecycleService(store, nil, nil)
	drafts := repository.NewMemoryDraftStore()
	stager := documents.NewMemoryStager()
	return draftFixture{
		svc:    NewDraftService(drafts, stager, lifecycle, institutionID, time.Hour),
		store:  store,
		drafts: drafts,
		stager: stager,
	}
}

func fields(pairs ...string) SetFieldsDTO {
	req := SetFieldsDTO{}
	for i := 0; i+1 < len(pairs); i += 2 {
		req.Fields = append(req.Fields, FieldValueDTO{Name: pairs[i], Value: pairs[i+1]})
	}
	return req
}

func TestDraftCreatePracticeScenario(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{})
	require.NoError(t, err)
	assert.Equal(t, "c-1", draft.Values.CompanyID)
	assert.False(t, draft.HasUnsavedChanges)

	draft, err = fx.svc.SetFields(ctx, company, draft.ID, fields(
		form.FieldRoleName, "Analista de Datos",
		form.FieldRequirements, "Excel avanzado",
		form.FieldEconomicAid, "true",
		form.FieldAidAmount, "1500000",
	))
	require.NoError(t, err)
	assert.Equal(t, "$1.500.000", draft.FormattedAidAmount)
	assert.Equal(t, int64(1500000), draft.Values.AidAmount)
	assert.True(t, draft.HasUnsavedChanges)
	assert.Empty(t, draft.Errors)

	draft, err = fx.svc.AddProgram(ctx, company, draft.ID, AddProgramDTO{Level: "Pregrado", Program: "Ingeniería de Sistemas"})
	require.NoError(t, err)

	_, err = fx.svc.AttachDocument(ctx, company, draft.ID, 0, true, documents.Object{Name: "perfil.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.stager.Len())

	opp, err := fx.svc.Submit(ctx, company, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, opp.Status)
	assert.Equal(t, int64(1500000), opp.AidAmount)
	require.Len(t, opp.Approvals, 1)
	assert.Equal(t, model.ApprovalPending, opp.Approvals[0].State)
	assert.Equal(t, 1, fx.store.count("create"))

	assert.Zero(t, fx.stager.Len())
	_, err = fx.svc.Get(ctx, company, draft.ID)
	assert.ErrorIs(t, err, repository.ErrDraftNotFound)
}

func TestDraftSubmitValidationNeverReachesStore(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{})
	require.NoError(t, err)
	draft, err = fx.svc.SetFields(ctx, company, draft.ID, fields(form.FieldDuties, "muy corto"))
	require.NoError(t, err)
	assert.Contains(t, draft.Errors, form.FieldDuties)
	assert.Contains(t, draft.Errors, form.FieldRoleName)

	_, err = fx.svc.Submit(ctx, company, draft.ID)
	var verrs form.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, form.FieldRequirements)
	assert.Empty(t, fx.store.calls)

	_, err = fx.svc.Get(ctx, company, draft.ID)
	assert.NoError(t, err)
}

func TestDraftSetFieldsIsAllOrNothing(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{})
	require.NoError(t, err)

	_, err = fx.svc.SetFields(ctx, company, draft.ID, fields(
		form.FieldRoleName, "Analista",
		"salary", "1",
	))
	assert.ErrorIs(t, err, form.ErrUnknownField)

	draft, err = fx.svc.Get(ctx, company, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, draft.Values.RoleName)
}

func TestDraftAdminMustPickCompanyFirst(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, reviewer, StartDraftDTO{})
	require.NoError(t, err)

	_, err = fx.svc.SetFields(ctx, reviewer, draft.ID, fields(form.FieldRoleName, "Analista"))
	assert.ErrorIs(t, err, form.ErrCompanySelectionRequired)

	_, err = fx.svc.SelectCompany(ctx, reviewer, draft.ID, SelectCompanyDTO{CompanyID: "c-9", CompanyName: "Acme"})
	require.NoError(t, err)
	draft, err = fx.svc.SetFields(ctx, reviewer, draft.ID, fields(form.FieldRoleName, "Analista"))
	require.NoError(t, err)
	assert.Equal(t, "c-9", draft.Values.CompanyID)

	draft, err = fx.svc.SetFields(ctx, reviewer, draft.ID, fields(form.FieldKind, string(model.KindMonitoring)))
	require.NoError(t, err)
	assert.Equal(t, institutionID, draft.Values.CompanyID)
}

func TestDraftBelongsToItsActor(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{})
	require.NoError(t, err)

	_, err = fx.svc.Get(ctx, reviewer, draft.ID)
	assert.ErrorIs(t, err, ErrDraftForbidden)
	assert.ErrorIs(t, fx.svc.Discard(ctx, reviewer, draft.ID), ErrDraftForbidden)
}

func TestDraftEditExistingUpdatesThroughLifecycle(t *testing.T) {
	existing := underReview("o-1", systems)
	existing.Requirements = "Excel"
	fx := newDraftFixture(existing)
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{OpportunityID: "o-1"})
	require.NoError(t, err)
	assert.Equal(t, "o-1", draft.OpportunityID)
	assert.Equal(t, model.StatusUnderReview, draft.Status)

	draft, err = fx.svc.SetFields(ctx, company, draft.ID, fields(form.FieldRequirements, "Excel avanzado"))
	require.NoError(t, err)
	assert.True(t, draft.HasUnsavedChanges)

	_, err = fx.svc.AttachDocument(ctx, company, draft.ID, 0, false, documents.Object{Name: "a.pdf", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrDocumentsOnCreateOnly)

	opp, err := fx.svc.Submit(ctx, company, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Excel avanzado", opp.Requirements)
	assert.Equal(t, model.StatusUnderReview, opp.Status)
	assert.Equal(t, 1, fx.store.count("update"))
}

func TestDraftCannotEditTerminalOpportunity(t *testing.T) {
	closed := underReview("o-1", systems)
	closed.Status = model.StatusExpired
	fx := newDraftFixture(closed)

	_, err := fx.svc.Start(context.Background(), company, StartDraftDTO{OpportunityID: "o-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDraftDocumentSlots(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{})
	require.NoError(t, err)

	_, err = fx.svc.AttachDocument(ctx, company, draft.ID, 3, false, documents.Object{Name: "d.pdf", Data: []byte("x")})
	assert.ErrorIs(t, err, form.ErrTooManyDocuments)
	assert.Zero(t, fx.stager.Len())

	draft, err = fx.svc.AttachDocument(ctx, company, draft.ID, 1, true, documents.Object{Name: "b.pdf", Data: []byte("x")})
	require.NoError(t, err)
	require.Len(t, draft.Values.Documents, 1)
	assert.False(t, draft.Values.Documents[0].Required)
	assert.Equal(t, documents.StagingKey(draft.ID, 1), draft.Values.Documents[0].StagingKey)

	_, err = fx.svc.AttachDocument(ctx, company, draft.ID, 2, false, documents.Object{Name: "empty.pdf"})
	assert.ErrorIs(t, err, documents.ErrEmpty)

	draft, err = fx.svc.DetachDocument(ctx, company, draft.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, draft.Values.Documents)
	assert.Zero(t, fx.stager.Len())

	_, err = fx.svc.DetachDocument(ctx, company, draft.ID, 1)
	assert.ErrorIs(t, err, form.ErrIndexOutOfRange)
}

func TestDraftCollections(t *testing.T) {
	fx := newDraftFixture()
	ctx := context.Background()

	draft, err := fx.svc.Start(ctx, company, StartDraftDTO{})
	require.NoError(t, err)

	draft, err = fx.svc.AddLanguage(ctx, company, draft.ID, AddLanguageDTO{Language: "Inglés", Level: "B2"})
	require.NoError(t, err)
	_, err = fx.svc.AddLanguage(ctx, company, draft.ID, AddLanguageDTO{Language: "inglés", Level: "C1"})
	assert.ErrorIs(t, err, form.ErrDuplicateEntry)

	draft, err = fx.svc.AddBenefit(ctx, company, draft.ID, AddBenefitDTO{Benefit: model.BenefitRemoteWork})
	require.NoError(t, err)
	assert.Equal(t, []string{model.BenefitRemoteWork}, draft.Values.EmotionalBenefits)

	draft, err = fx.svc.RemoveBenefit(ctx, company, draft.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, draft.Values.EmotionalBenefits)

	draft, err = fx.svc.RemoveLanguage(ctx, company, draft.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, draft.Values.Languages)

	_, err = fx.svc.RemoveProgram(ctx, company, draft.ID, 0)
	assert.ErrorIs(t, err, form.ErrIndexOutOfRange)
}
