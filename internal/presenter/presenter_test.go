package presenter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"portal/internal/model"
	"portal/internal/repository"
	"portal/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpportunities struct {
	page       model.OpportunityPage
	opps       map[string]model.Opportunity
	historyErr error
	queries    []model.ListQuery
}

func (f *fakeOpportunities) List(ctx context.Context, q model.ListQuery) (model.OpportunityPage, error) {
	f.queries = append(f.queries, q)
	return f.page, nil
}

func (f *fakeOpportunities) Refresh(ctx context.Context, id string) (model.Opportunity, error) {
	opp, ok := f.opps[id]
	if !ok {
		return model.Opportunity{}, errors.New("Not Found")
	}
	return opp, nil
}

func (f *fakeOpportunities) History(ctx context.Context, id string) ([]model.StatusHistoryEntry, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return []model.StatusHistoryEntry{{From: model.StatusDraft, To: model.StatusUnderReview}}, nil
}

func (f *fakeOpportunities) AvailableActions(opp model.Opportunity, actor model.Profile) []service.Action {
	return service.AvailableActions(opp, actor)
}

type fakeDrafts struct {
	next      int
	drafts    map[string]service.DraftResponse
	discarded []string
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{drafts: map[string]service.DraftResponse{}}
}

func (f *fakeDrafts) Start(ctx context.Context, actor model.Profile, req service.StartDraftDTO) (service.DraftResponse, error) {
	f.next++
	d := service.DraftResponse{ID: fmt.Sprintf("d-%d", f.next), OpportunityID: req.OpportunityID}
	f.drafts[d.ID] = d
	return d, nil
}

func (f *fakeDrafts) Get(ctx context.Context, actor model.Profile, id string) (service.DraftResponse, error) {
	d, ok := f.drafts[id]
	if !ok {
		return service.DraftResponse{}, repository.ErrDraftNotFound
	}
	return d, nil
}

func (f *fakeDrafts) Discard(ctx context.Context, actor model.Profile, id string) error {
	f.discarded = append(f.discarded, id)
	delete(f.drafts, id)
	return nil
}

func (f *fakeDrafts) markDirty(id string) {
	d := f.drafts[id]
	d.HasUnsavedChanges = true
	f.drafts[id] = d
}

var actor = model.Profile{ID: "u-1", Role: model.RoleCoordinator}

func newTestPresenter() (*Presenter, *fakeOpportunities, *fakeDrafts) {
	opps := &fakeOpportunities{
		page: model.OpportunityPage{
			Items: []model.Opportunity{
				{
					ID:          "o-1",
					RoleName:    "Análisis de datos",
					CompanyName: "Acme",
					Status:      model.StatusUnderReview,
					Programs:    []model.ProgramRef{{Level: "Pregrado", Name: "Sistemas"}},
				},
				{ID: "o-2", RoleName: "Monitor de cálculo", CompanyName: "Universidad", Status: model.StatusActive},
			},
			Total:       42,
			TotalPages:  3,
			CurrentPage: 1,
		},
		opps: map[string]model.Opportunity{
			"o-1": {
				ID:          "o-1",
				Status:      model.StatusUnderReview,
				EconomicAid: true,
				AidAmount:   1500000,
				Programs:    []model.ProgramRef{{Level: "Pregrado", Name: "Sistemas"}},
				Approvals: []model.ProgramApproval{
					{Program: model.ProgramRef{Level: "Pregrado", Name: "Sistemas"}, State: model.ApprovalApproved},
				},
			},
		},
	}
	drafts := newFakeDrafts()
	return New(opps, drafts, actor), opps, drafts
}

func TestRenderListDelegatesAndNarrows(t *testing.T) {
	p, opps, _ := newTestPresenter()
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, ListView{
		Query:  model.ListQuery{Page: 2, Limit: 10, SortField: "fechaCreacion", SortDirection: model.SortDesc},
		Narrow: "ANALISIS",
	}, false))

	screen, err := p.Render(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindList, screen.View)
	require.NotNil(t, screen.List)
	require.Len(t, screen.List.Rows, 1)
	assert.Equal(t, "o-1", screen.List.Rows[0].ID)
	assert.Equal(t, "En Revisión", screen.List.Rows[0].StatusLabel)
	assert.Contains(t, screen.List.Rows[0].Actions, service.ActionApproveProgram)
	assert.Equal(t, int64(42), screen.List.Total)

	require.Len(t, opps.queries, 1)
	assert.Equal(t, 2, opps.queries[0].Page)
	assert.Equal(t, "fechaCreacion", opps.queries[0].SortField)
}

func TestNavigateAwayFromDirtyFormNeedsConfirmation(t *testing.T) {
	p, _, drafts := newTestPresenter()
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, CreateView{}, false))
	create, ok := p.View().(CreateView)
	require.True(t, ok)
	require.NotEmpty(t, create.DraftID)

	drafts.markDirty(create.DraftID)
	err := p.Navigate(ctx, ListView{}, false)
	assert.ErrorIs(t, err, ErrUnsavedChanges)
	assert.Equal(t, KindCreate, p.View().Kind())
	assert.Empty(t, drafts.discarded)

	require.NoError(t, p.Navigate(ctx, ListView{}, true))
	assert.Equal(t, KindList, p.View().Kind())
	assert.Equal(t, []string{create.DraftID}, drafts.discarded)
}

func TestNavigateAwayFromCleanFormDiscardsDraft(t *testing.T) {
	p, _, drafts := newTestPresenter()
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, EditView{OpportunityID: "o-1"}, false))
	edit := p.View().(EditView)
	assert.Equal(t, "o-1", edit.OpportunityID)

	require.NoError(t, p.Navigate(ctx, DetailView{OpportunityID: "o-1"}, false))
	assert.Equal(t, []string{edit.DraftID}, drafts.discarded)
}

func TestNavigateAfterSubmittedDraft(t *testing.T) {
	p, _, drafts := newTestPresenter()
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, CreateView{}, false))
	id := p.View().(CreateView).DraftID
	delete(drafts.drafts, id) // submitted drafts are gone from the store

	require.NoError(t, p.Navigate(ctx, DetailView{OpportunityID: "o-1"}, false))
	assert.Equal(t, KindDetail, p.View().Kind())
}

func TestNavigateRejectsIncompleteTargets(t *testing.T) {
	p, _, _ := newTestPresenter()
	ctx := context.Background()

	assert.Error(t, p.Navigate(ctx, EditView{}, false))
	assert.Error(t, p.Navigate(ctx, DetailView{}, false))
	assert.Error(t, p.Navigate(ctx, nil, false))
	assert.Equal(t, KindList, p.View().Kind())
}

func TestRenderDetail(t *testing.T) {
	p, opps, _ := newTestPresenter()
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, DetailView{OpportunityID: "o-1"}, false))
	screen, err := p.Render(ctx)
	require.NoError(t, err)
	require.NotNil(t, screen.Detail)
	assert.Equal(t, "$1.500.000", screen.Detail.FormattedAid)
	assert.Equal(t, 1, screen.Detail.ApprovedPrograms)
	assert.Len(t, screen.Detail.History, 1)

	opps.historyErr = errors.New("boom")
	screen, err = p.Render(ctx)
	require.NoError(t, err)
	assert.Empty(t, screen.Detail.History)
}

func TestAffected(t *testing.T) {
	p, _, _ := newTestPresenter()
	ctx := context.Background()
	evt := model.OpportunityChanged{OpportunityID: "o-1"}

	assert.True(t, p.Affected(evt))

	require.NoError(t, p.Navigate(ctx, DetailView{OpportunityID: "o-2"}, false))
	assert.False(t, p.Affected(evt))

	require.NoError(t, p.Navigate(ctx, DetailView{OpportunityID: "o-1"}, false))
	assert.True(t, p.Affected(evt))

	require.NoError(t, p.Navigate(ctx, CreateView{}, false))
	assert.False(t, p.Affected(evt))
}

func TestNarrowWithoutTermKeepsPage(t *testing.T) {
	items := []model.Opportunity{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, items, Narrow(items, "  "))
	assert.Empty(t, Narrow(items, "zzz"))
}
