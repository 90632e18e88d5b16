// Package presenter holds the per-connection view state of the portal: which
// screen is shown and what it renders.
package presenter

import "portal/internal/model"

type ViewKind string

const (
	KindList   ViewKind = "list"
	KindCreate ViewKind = "create"
	KindEdit   ViewKind = "edit"
	KindDetail ViewKind = "detail"
)

// View is one of ListView, CreateView, EditView or DetailView.
type View interface {
	Kind() ViewKind
	isView()
}

type ListView struct {
	Query  model.ListQuery `json:"query"`
	Narrow string          `json:"narrow,omitempty"` // substring applied to the fetched page
}

// CreateView edits a new draft. DraftID is filled in when the view is entered.
type CreateView struct {
	DraftID string `json:"draft_id,omitempty"`
}

type EditView struct {
	OpportunityID string `json:"opportunity_id"`
	DraftID       string `json:"draft_id,omitempty"`
}

type DetailView struct {
	OpportunityID string `json:"opportunity_id"`
}

func (ListView) Kind() ViewKind   { return KindList }
func (CreateView) Kind() ViewKind { return KindCreate }
func (EditView) Kind() ViewKind   { return KindEdit }
func (DetailView) Kind() ViewKind { return KindDetail }

func (ListView) isView()   {}
func (CreateView) isView() {}
func (EditView) isView()   {}
func (DetailView) isView() {}

// draftOf returns the draft behind a form view.
func draftOf(v View) (string, bool) {
	switch view := v.(type) {
	case CreateView:
		return view.DraftID, view.DraftID != ""
	case EditView:
		return view.DraftID, view.DraftID != ""
	}
	return "", false
}

// opportunityOf returns the opportunity a view is bound to, if any.
func opportunityOf(v View) string {
	switch view := v.(type) {
	case EditView:
		return view.OpportunityID
	case DetailView:
		return view.OpportunityID
	}
	return ""
}
