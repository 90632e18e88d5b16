package service

import (
	"fmt"

	"portal/internal/model"
)

// Action is a user-facing lifecycle command.
type Action string

const (
	ActionEdit            Action = "edit"
	ActionSubmitForReview Action = "submit_for_review"
	ActionApproveProgram  Action = "approve_program"
	ActionRejectProgram   Action = "reject_program"
	ActionReject          Action = "reject"
	ActionDuplicate       Action = "duplicate"

	// issued only by approval aggregation
	actionActivate Action = "activate"
)

type transitionKey struct {
	from   model.Status
	action Action
}

// transitions maps (status, action) to the resulting status. Pairs that are
// absent are not allowed. Rejected, Closed and Expired only accept
// duplication, which is how a finished offer is reopened.
var transitions = map[transitionKey]model.Status{
	{model.StatusDraft, ActionEdit}:       model.StatusDraft,
	{model.StatusUnderReview, ActionEdit}: model.StatusUnderReview,
	{model.StatusActive, ActionEdit}:      model.StatusActive,

	{model.StatusDraft, ActionSubmitForReview}: model.StatusUnderReview,

	{model.StatusUnderReview, ActionApproveProgram}: model.StatusUnderReview,
	{model.StatusActive, ActionApproveProgram}:      model.StatusActive,
	{model.StatusUnderReview, ActionRejectProgram}:  model.StatusUnderReview,
	{model.StatusActive, ActionRejectProgram}:       model.StatusActive,

	{model.StatusUnderReview, ActionReject}: model.StatusRejected,
	{model.StatusActive, ActionReject}:      model.StatusRejected,

	{model.StatusDraft, ActionDuplicate}:       model.StatusDraft,
	{model.StatusUnderReview, ActionDuplicate}: model.StatusDraft,
	{model.StatusActive, ActionDuplicate}:      model.StatusDraft,
	{model.StatusRejected, ActionDuplicate}:    model.StatusDraft,
	{model.StatusClosed, ActionDuplicate}:      model.StatusDraft,
	{model.StatusExpired, ActionDuplicate}:     model.StatusDraft,

	{model.StatusUnderReview, actionActivate}: model.StatusActive,
}

var userActions = []Action{
	ActionEdit,
	ActionSubmitForReview,
	ActionApproveProgram,
	ActionRejectProgram,
	ActionReject,
	ActionDuplicate,
}

// Transition returns the status an action leads to, or false when the action
// is not allowed from the given status.
func Transition(from model.Status, action Action) (model.Status, bool) {
	next, ok := transitions[transitionKey{from, action}]
	return next, ok
}

func guard(from model.Status, action Action) (model.Status, error) {
	next, ok := Transition(from, action)
	if !ok {
		return "", fmt.Errorf("%w: cannot %s an opportunity in status %s", ErrInvalidTransition, action, from)
	}
	return next, nil
}

// reviewerOnly actions are offered to administrators and coordinators.
var reviewerOnly = map[Action]bool{
	ActionApproveProgram: true,
	ActionRejectProgram:  true,
	ActionReject:         true,
}

func (s *lifecycleService) AvailableActions(opp model.Opportunity, actor model.Profile) []Action {
	return AvailableActions(opp, actor)
}

// AvailableActions lists the actions the presenter may offer for an
// opportunity. The store still authorises every call.
func AvailableActions(opp model.Opportunity, actor model.Profile) []Action {
	reviewer := actor.Role == model.RoleAdmin || actor.Role == model.RoleCoordinator
	out := make([]Action, 0, len(userActions))
	for _, a := range userActions {
		if _, ok := Transition(opp.Status, a); !ok {
			continue
		}
		if reviewerOnly[a] && !reviewer {
			continue
		}
		if (a == ActionApproveProgram || a == ActionRejectProgram) && len(opp.Programs) == 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}
