package presenter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"portal/internal/form"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/internal/service"
)

// ErrUnsavedChanges is returned when leaving a form with unsaved edits
// without confirmation.
var ErrUnsavedChanges = errors.New("the form has unsaved changes")

// Opportunities is the read side of the lifecycle controller.
type Opportunities interface {
	List(ctx context.Context, q model.ListQuery) (model.OpportunityPage, error)
	Refresh(ctx context.Context, id string) (model.Opportunity, error)
	History(ctx context.Context, id string) ([]model.StatusHistoryEntry, error)
	AvailableActions(opp model.Opportunity, actor model.Profile) []service.Action
}

type Drafts interface {
	Start(ctx context.Context, actor model.Profile, req service.StartDraftDTO) (service.DraftResponse, error)
	Get(ctx context.Context, actor model.Profile, id string) (service.DraftResponse, error)
	Discard(ctx context.Context, actor model.Profile, id string) error
}

// Presenter is not safe for concurrent use; each connection drives its own
// from a single goroutine.
type Presenter struct {
	opportunities Opportunities
	drafts        Drafts
	actor         model.Profile
	view          View
}

// New starts on the first page of the list.
func New(opportunities Opportunities, drafts Drafts, actor model.Profile) *Presenter {
	return &Presenter{
		opportunities: opportunities,
		drafts:        drafts,
		actor:         actor,
		view:          ListView{Query: model.ListQuery{Page: 1, Limit: 20, SortDirection: model.SortAsc}},
	}
}

func (p *Presenter) View() View { return p.view }

// Navigate is the only way to change view. Leaving a form whose draft has
// unsaved changes needs confirmed; the draft is then discarded.
func (p *Presenter) Navigate(ctx context.Context, to View, confirmed bool) error {
	if to == nil {
		return fmt.Errorf("navigate: no target view")
	}

	if draftID, ok := draftOf(p.view); ok && !sameForm(p.view, to) {
		dirty, err := p.dirty(ctx, draftID)
		if err != nil {
			return err
		}
		if dirty && !confirmed {
			return ErrUnsavedChanges
		}
		if err := p.drafts.Discard(ctx, p.actor, draftID); err != nil && !errors.Is(err, repository.ErrDraftNotFound) {
			log.Printf("presenter: failed to discard draft %s: %v", draftID, err)
		}
	}

	next, err := p.enter(ctx, to)
	if err != nil {
		return err
	}
	p.view = next
	return nil
}

// enter opens the draft a form view needs.
func (p *Presenter) enter(ctx context.Context, to View) (View, error) {
	switch v := to.(type) {
	case CreateView:
		if v.DraftID == "" {
			draft, err := p.drafts.Start(ctx, p.actor, service.StartDraftDTO{})
			if err != nil {
				return nil, err
			}
			v.DraftID = draft.ID
		}
		return v, nil
	case EditView:
		if v.OpportunityID == "" {
			return nil, fmt.Errorf("navigate: edit needs an opportunity")
		}
		if v.DraftID == "" {
			draft, err := p.drafts.Start(ctx, p.actor, service.StartDraftDTO{OpportunityID: v.OpportunityID})
			if err != nil {
				return nil, err
			}
			v.DraftID = draft.ID
		}
		return v, nil
	case DetailView:
		if v.OpportunityID == "" {
			return nil, fmt.Errorf("navigate: detail needs an opportunity")
		}
		return v, nil
	case ListView:
		if v.Query.Page < 1 {
			v.Query.Page = 1
		}
		if v.Query.Limit < 1 {
			v.Query.Limit = 20
		}
		return v, nil
	}
	return nil, fmt.Errorf("navigate: unknown view %T", to)
}

func (p *Presenter) dirty(ctx context.Context, draftID string) (bool, error) {
	draft, err := p.drafts.Get(ctx, p.actor, draftID)
	if errors.Is(err, repository.ErrDraftNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return draft.HasUnsavedChanges, nil
}

func sameForm(from, to View) bool {
	a, okA := draftOf(from)
	b, okB := draftOf(to)
	return okA && okB && a == b
}

// Affected reports whether a change event should re-render the current view.
func (p *Presenter) Affected(evt model.OpportunityChanged) bool {
	switch p.view.(type) {
	case ListView:
		return true
	case CreateView:
		return false
	}
	return opportunityOf(p.view) == evt.OpportunityID
}

// --- Rendering ---

type ListRow struct {
	ID          string           `json:"id"`
	RoleName    string           `json:"role_name"`
	CompanyName string           `json:"company_name"`
	Kind        model.Kind       `json:"kind"`
	Status      model.Status     `json:"status"`
	StatusLabel string           `json:"status_label"`
	Actions     []service.Action `json:"actions"`
}

type ListScreen struct {
	Query       model.ListQuery `json:"query"`
	Narrow      string          `json:"narrow,omitempty"`
	Rows        []ListRow       `json:"rows"`
	Total       int64           `json:"total"`
	TotalPages  int             `json:"total_pages"`
	CurrentPage int             `json:"current_page"`
}

type DetailScreen struct {
	Opportunity      model.Opportunity          `json:"opportunity"`
	StatusLabel      string                     `json:"status_label"`
	FormattedAid     string                     `json:"formatted_aid,omitempty"`
	ApprovedPrograms int                        `json:"approved_programs"`
	History          []model.StatusHistoryEntry `json:"history"`
	Actions          []service.Action           `json:"actions"`
}

// Screen is the rendered form of a view; exactly one payload is set.
type Screen struct {
	View   ViewKind               `json:"view"`
	List   *ListScreen            `json:"list,omitempty"`
	Draft  *service.DraftResponse `json:"draft,omitempty"`
	Detail *DetailScreen          `json:"detail,omitempty"`
}

func (p *Presenter) Render(ctx context.Context) (Screen, error) {
	switch v := p.view.(type) {
	case ListView:
		return p.renderList(ctx, v)
	case CreateView:
		return p.renderDraft(ctx, KindCreate, v.DraftID)
	case EditView:
		return p.renderDraft(ctx, KindEdit, v.DraftID)
	case DetailView:
		return p.renderDetail(ctx, v)
	}
	return Screen{}, fmt.Errorf("render: unknown view %T", p.view)
}

func (p *Presenter) renderList(ctx context.Context, v ListView) (Screen, error) {
	page, err := p.opportunities.List(ctx, v.Query)
	if err != nil {
		return Screen{}, err
	}
	items := Narrow(page.Items, v.Narrow)
	rows := make([]ListRow, 0, len(items))
	for _, opp := range items {
		rows = append(rows, ListRow{
			ID:          opp.ID,
			RoleName:    opp.RoleName,
			CompanyName: opp.CompanyName,
			Kind:        opp.Kind,
			Status:      opp.Status,
			StatusLabel: StatusLabel(opp.Status),
			Actions:     p.opportunities.AvailableActions(opp, p.actor),
		})
	}
	return Screen{View: KindList, List: &ListScreen{
		Query:       v.Query,
		Narrow:      v.Narrow,
		Rows:        rows,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	}}, nil
}

func (p *Presenter) renderDraft(ctx context.Context, kind ViewKind, draftID string) (Screen, error) {
	draft, err := p.drafts.Get(ctx, p.actor, draftID)
	if err != nil {
		return Screen{}, err
	}
	return Screen{View: kind, Draft: &draft}, nil
}

func (p *Presenter) renderDetail(ctx context.Context, v DetailView) (Screen, error) {
	opp, err := p.opportunities.Refresh(ctx, v.OpportunityID)
	if err != nil {
		return Screen{}, err
	}
	history, err := p.opportunities.History(ctx, v.OpportunityID)
	if err != nil {
		// the record itself is still worth showing
		log.Printf("presenter: history for %s unavailable: %v", v.OpportunityID, err)
		history = opp.History
	}
	detail := &DetailScreen{
		Opportunity:      opp,
		StatusLabel:      StatusLabel(opp.Status),
		ApprovedPrograms: opp.ApprovedCount(),
		History:          history,
		Actions:          p.opportunities.AvailableActions(opp, p.actor),
	}
	if opp.EconomicAid {
		detail.FormattedAid = form.FormatAmount(opp.AidAmount)
	}
	return Screen{View: KindDetail, Detail: detail}, nil
}

// Narrow keeps the items whose role, company or id contain term, ignoring
// case and accents. It only filters what the store already returned.
func Narrow(items []model.Opportunity, term string) []model.Opportunity {
	needle := model.FoldText(term)
	if needle == "" {
		return items
	}
	out := make([]model.Opportunity, 0, len(items))
	for _, opp := range items {
		haystack := model.FoldText(strings.Join([]string{opp.RoleName, opp.CompanyName, opp.ID}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, opp)
		}
	}
	return out
}

var statusLabels = map[model.Status]string{
	model.StatusDraft:       "Borrador",
	model.StatusUnderReview: "En Revisión",
	model.StatusActive:      "Activa",
	model.StatusRejected:    "Rechazada",
	model.StatusClosed:      "Cerrada",
	model.StatusExpired:     "Vencida",
	model.StatusUnknown:     "Desconocido",
}

func StatusLabel(s model.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}
