package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"portal/internal/model"
	"portal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReferenceStore struct {
	calls map[string]int
}

func newFakeReferenceStore() *fakeReferenceStore {
	return &fakeReferenceStore{calls: map[string]int{}}
}

func (f *fakeReferenceStore) Catalog(ctx context.Context, key string) ([]model.CatalogItem, error) {
	f.calls["catalog"]++
	return []model.CatalogItem{{ID: "1", Value: "Contrato de aprendizaje"}}, nil
}

func (f *fakeReferenceStore) Companies(ctx context.Context, search string) ([]model.Company, error) {
	f.calls["companies"]++
	return []model.Company{{ID: "c-1", Name: "Acme " + search, TaxID: "900123"}}, nil
}

func (f *fakeReferenceStore) Programs(ctx context.Context, search string) ([]model.Program, error) {
	f.calls["programs"]++
	return []model.Program{{ID: "p-1", Name: "Ingeniería de Sistemas", Level: "Pregrado"}}, nil
}

func (f *fakeReferenceStore) Subjects(ctx context.Context, search string) ([]model.Subject, error) {
	f.calls["subjects"]++
	return nil, nil
}

func (f *fakeReferenceStore) Periods(ctx context.Context, filters url.Values) ([]model.Period, error) {
	f.calls["periods"]++
	return []model.Period{{ID: "2026-1", Code: "2026-1", Active: true}}, nil
}

func TestReferenceLookupsBelowMinimumLength(t *testing.T) {
	store := newFakeReferenceStore()
	svc := NewReferenceService(store, repository.NewMemoryReferenceCache(), time.Minute)
	ctx := context.Background()

	companies, err := svc.Companies(ctx, " ac ")
	require.NoError(t, err)
	assert.Empty(t, companies)
	assert.NotNil(t, companies)

	programs, err := svc.Programs(ctx, "i")
	require.NoError(t, err)
	assert.Empty(t, programs)

	subjects, err := svc.Subjects(ctx, "ma")
	require.NoError(t, err)
	assert.Empty(t, subjects)

	assert.Empty(t, store.calls)

	programs, err = svc.Programs(ctx, "in")
	require.NoError(t, err)
	assert.Len(t, programs, 1)
	assert.Equal(t, 1, store.calls["programs"])
}

func TestReferenceLookupsAreCached(t *testing.T) {
	store := newFakeReferenceStore()
	svc := NewReferenceService(store, repository.NewMemoryReferenceCache(), time.Minute)
	ctx := context.Background()

	first, err := svc.Companies(ctx, "Acme")
	require.NoError(t, err)
	second, err := svc.Companies(ctx, "  acme ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls["companies"])

	_, err = svc.Catalog(ctx, model.CatalogLinkageTypes)
	require.NoError(t, err)
	_, err = svc.Catalog(ctx, model.CatalogLinkageTypes)
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls["catalog"])

	filters := url.Values{"tipo": {"practica"}, "activo": {"true"}}
	_, err = svc.Periods(ctx, filters)
	require.NoError(t, err)
	_, err = svc.Periods(ctx, url.Values{"activo": {"true"}, "tipo": {"practica"}})
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls["periods"])

	subjects, err := svc.Subjects(ctx, "Matemáticas")
	require.NoError(t, err)
	assert.NotNil(t, subjects)
}

func TestRejectionReasonsIsACopy(t *testing.T) {
	svc := NewReferenceService(newFakeReferenceStore(), nil, time.Minute)
	reasons := svc.RejectionReasons()
	require.Len(t, reasons, len(model.RejectionCatalog))
	reasons[0].Label = "changed"
	assert.NotEqual(t, "changed", model.RejectionCatalog[0].Label)
}
