package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"portal/internal/model"
	"portal/internal/storeclient"
)

var (
	ErrInvalidTransition       = errors.New("action not allowed in the current status")
	ErrProgramNotRequired      = errors.New("program is not required by this opportunity")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrRejectionDetailRequired = errors.New("describe the reason when rejecting with \"other\"")
	ErrUnknownRejectionReason  = errors.New("unknown rejection reason")
	ErrDuplicateNotDraft       = errors.New("duplicate did not start as a draft")
)

// --- DTOs ---

type ProgramDecisionDTO struct {
	Level    string `json:"level" binding:"required"`
	Program  string `json:"program" binding:"required"`
	Comments string `json:"comments"`
}

type RejectOpportunityDTO struct {
	Reason    string `json:"reason"`
	OtherText string `json:"other_text"`
}

// --- Collaborators ---

// OpportunityStore is the part of the remote store the lifecycle depends on.
type OpportunityStore interface {
	ListOpportunities(ctx context.Context, q model.ListQuery) (model.OpportunityPage, error)
	GetOpportunity(ctx context.Context, id string) (model.Opportunity, error)
	CreateOpportunity(ctx context.Context, opp model.Opportunity, docs []storeclient.Document) (model.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, opp model.Opportunity) (model.Opportunity, error)
	UpdateApprovals(ctx context.Context, id string, approvals []model.ProgramApproval) (model.Opportunity, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (model.Opportunity, error)
	ApproveProgram(ctx context.Context, id string, program model.ProgramRef, comments string) (model.Opportunity, error)
	RejectProgram(ctx context.Context, id string, program model.ProgramRef, comments string) (model.Opportunity, error)
	Reject(ctx context.Context, id string, reason, otherText string) (model.Opportunity, error)
	Duplicate(ctx context.Context, id string) (model.Opportunity, error)
	History(ctx context.Context, id string) ([]model.StatusHistoryEntry, error)
}

// ChangePublisher notifies connected presenters (the websocket hub).
type ChangePublisher interface {
	PublishOpportunityChanged(evt model.OpportunityChanged)
}

// IntentRecorder keeps the portal-side trail of mutating intents.
type IntentRecorder interface {
	Record(ctx context.Context, actor model.Profile, action, opportunityID, outcome string, details map[string]interface{})
}

// --- Interface ---

type LifecycleService interface {
	List(ctx context.Context, q model.ListQuery) (model.OpportunityPage, error)
	Refresh(ctx context.Context, id string) (model.Opportunity, error)
	History(ctx context.Context, id string) ([]model.StatusHistoryEntry, error)
	Create(ctx context.Context, actor model.Profile, opp model.Opportunity, docs []storeclient.Document) (model.Opportunity, error)
	Update(ctx context.Context, actor model.Profile, id string, opp model.Opportunity) (model.Opportunity, error)
	SubmitForReview(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error)
	ApproveProgram(ctx context.Context, actor model.Profile, id string, program model.ProgramRef, comments string) (model.Opportunity, error)
	RejectProgram(ctx context.Context, actor model.Profile, id string, program model.ProgramRef, comments string) (model.Opportunity, error)
	Reject(ctx context.Context, actor model.Profile, id string, req RejectOpportunityDTO) (model.Opportunity, error)
	Duplicate(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error)
	AvailableActions(opp model.Opportunity, actor model.Profile) []Action
}

type lifecycleService struct {
	store     OpportunityStore
	intents   IntentRecorder
	publisher ChangePublisher
	locks     *keyedLocker
	now       func() time.Time
}

// NewLifecycleService wires the controller. intents and publisher may be nil.
func NewLifecycleService(store OpportunityStore, intents IntentRecorder, publisher ChangePublisher) LifecycleService {
	return &lifecycleService{
		store:     store,
		intents:   intents,
		publisher: publisher,
		locks:     newKeyedLocker(),
		now:       time.Now,
	}
}

// --- Reads ---

func (s *lifecycleService) List(ctx context.Context, q model.ListQuery) (model.OpportunityPage, error) {
	return s.store.ListOpportunities(ctx, q)
}

// Refresh is the canonical read; every mutation ends with it.
func (s *lifecycleService) Refresh(ctx context.Context, id string) (model.Opportunity, error) {
	return s.store.GetOpportunity(ctx, id)
}

func (s *lifecycleService) History(ctx context.Context, id string) ([]model.StatusHistoryEntry, error) {
	return s.store.History(ctx, id)
}

// --- Mutations ---

func (s *lifecycleService) Create(ctx context.Context, actor model.Profile, opp model.Opportunity, docs []storeclient.Document) (model.Opportunity, error) {
	opp.ID = ""
	opp.Status = model.StatusDraft
	opp.History = nil
	opp.Approvals = ReconcileApprovals(opp.Programs, nil)

	created, err := s.store.CreateOpportunity(ctx, opp, docs)
	s.record(ctx, actor, model.IntentCreate, created.ID, err, map[string]interface{}{
		"role_name": opp.RoleName,
		"kind":      opp.Kind,
		"documents": len(docs),
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	return s.finish(ctx, model.IntentCreate, created), nil
}

func (s *lifecycleService) Update(ctx context.Context, actor model.Profile, id string, opp model.Opportunity) (model.Opportunity, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	if _, err := guard(current.Status, ActionEdit); err != nil {
		return model.Opportunity{}, err
	}

	opp.Approvals = ReconcileApprovals(opp.Programs, current.Approvals)
	updated, err := s.store.UpdateOpportunity(ctx, id, opp)
	s.record(ctx, actor, model.IntentUpdate, id, err, map[string]interface{}{
		"status":   current.Status,
		"programs": len(opp.Programs),
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	return s.finish(ctx, model.IntentUpdate, updated), nil
}

// SubmitForReview moves a Draft to UnderReview. No payload, not reversible.
func (s *lifecycleService) SubmitForReview(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	next, err := guard(current.Status, ActionSubmitForReview)
	if err != nil {
		return model.Opportunity{}, err
	}

	updated, err := s.store.UpdateStatus(ctx, id, next)
	s.record(ctx, actor, model.IntentSubmitForReview, id, err, map[string]interface{}{
		"from": current.Status,
		"to":   next,
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	return s.finish(ctx, model.IntentSubmitForReview, updated), nil
}

// ApproveProgram approves one program, then re-reads the opportunity and
// activates it when it is still under review with at least one approval.
func (s *lifecycleService) ApproveProgram(ctx context.Context, actor model.Profile, id string, program model.ProgramRef, comments string) (model.Opportunity, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.programDecisionAllowed(ctx, id, program, ActionApproveProgram)
	if err != nil {
		return model.Opportunity{}, err
	}

	_, err = s.store.ApproveProgram(ctx, id, program, comments)
	s.record(ctx, actor, model.IntentApproveProgram, id, err, map[string]interface{}{
		"level":    program.Level,
		"program":  program.Name,
		"comments": comments,
		"status":   current.Status,
	})
	if err != nil {
		return model.Opportunity{}, err
	}

	fresh, err := s.activateIfApproved(ctx, actor, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	s.publish(fresh, model.IntentApproveProgram)
	return fresh, nil
}

// activateIfApproved decides on a fresh read, never on a cached tally:
// other reviewers may have changed approvals in the meantime.
func (s *lifecycleService) activateIfApproved(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error) {
	fresh, err := s.Refresh(ctx, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	if fresh.Status != model.StatusUnderReview || fresh.ApprovedCount() == 0 {
		return fresh, nil
	}

	next, err := guard(fresh.Status, actionActivate)
	if err != nil {
		return fresh, nil
	}
	_, err = s.store.UpdateStatus(ctx, id, next)
	s.record(ctx, actor, model.IntentActivate, id, err, map[string]interface{}{
		"approved_programs": fresh.ApprovedCount(),
		"required_programs": len(fresh.Programs),
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	return s.Refresh(ctx, id)
}

// RejectProgram records a negative decision for one program; status never changes.
func (s *lifecycleService) RejectProgram(ctx context.Context, actor model.Profile, id string, program model.ProgramRef, comments string) (model.Opportunity, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.programDecisionAllowed(ctx, id, program, ActionRejectProgram); err != nil {
		return model.Opportunity{}, err
	}

	updated, err := s.store.RejectProgram(ctx, id, program, comments)
	s.record(ctx, actor, model.IntentRejectProgram, id, err, map[string]interface{}{
		"level":    program.Level,
		"program":  program.Name,
		"comments": comments,
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	return s.finish(ctx, model.IntentRejectProgram, updated), nil
}

func (s *lifecycleService) programDecisionAllowed(ctx context.Context, id string, program model.ProgramRef, action Action) (model.Opportunity, error) {
	current, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	if _, err := guard(current.Status, action); err != nil {
		return model.Opportunity{}, err
	}
	for _, p := range current.Programs {
		if p.Key() == program.Key() {
			return current, nil
		}
	}
	return model.Opportunity{}, fmt.Errorf("%w: %s %s", ErrProgramNotRequired, program.Level, program.Name)
}

// Reject validates the reason before anything is sent to the store.
func (s *lifecycleService) Reject(ctx context.Context, actor model.Profile, id string, req RejectOpportunityDTO) (model.Opportunity, error) {
	if err := ValidateRejection(req.Reason, req.OtherText); err != nil {
		return model.Opportunity{}, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	if _, err := guard(current.Status, ActionReject); err != nil {
		return model.Opportunity{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	otherText := ""
	if reason == model.RejectionOther {
		otherText = strings.TrimSpace(req.OtherText)
	}
	updated, err := s.store.Reject(ctx, id, reason, otherText)
	s.record(ctx, actor, model.IntentReject, id, err, map[string]interface{}{
		"from":       current.Status,
		"reason":     reason,
		"other_text": otherText,
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	return s.finish(ctx, model.IntentReject, updated), nil
}

// ValidateRejection requires a catalog reason, plus free text for "other".
func ValidateRejection(reason, otherText string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	if _, ok := model.LookupRejectionReason(reason); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRejectionReason, reason)
	}
	if reason == model.RejectionOther && strings.TrimSpace(otherText) == "" {
		return ErrRejectionDetailRequired
	}
	return nil
}

// Duplicate asks the store for a copy and makes sure the copy starts with a
// fresh Pending approval per required program.
func (s *lifecycleService) Duplicate(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error) {
	source, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	if _, err := guard(source.Status, ActionDuplicate); err != nil {
		return model.Opportunity{}, err
	}

	dup, err := s.store.Duplicate(ctx, id)
	s.record(ctx, actor, model.IntentDuplicate, id, err, map[string]interface{}{
		"source_status": source.Status,
		"duplicate_id":  dup.ID,
	})
	if err != nil {
		return model.Opportunity{}, err
	}
	if dup.Status != model.StatusDraft {
		log.Printf("duplicate %s of %s came back in status %s", dup.ID, id, dup.Status)
		return s.finish(ctx, model.IntentDuplicate, dup), fmt.Errorf("%w: %s is %s", ErrDuplicateNotDraft, dup.ID, dup.Status)
	}

	expected := ReconcileApprovals(dup.Programs, nil)
	if !freshApprovals(dup.Approvals, expected) {
		if _, err := s.store.UpdateApprovals(ctx, dup.ID, expected); err != nil {
			return model.Opportunity{}, err
		}
	}
	return s.finish(ctx, model.IntentDuplicate, dup), nil
}

// finish re-reads the record after a successful write and notifies presenters.
// A failed re-read falls back to the write response.
func (s *lifecycleService) finish(ctx context.Context, intent string, written model.Opportunity) model.Opportunity {
	fresh := written
	if written.ID != "" {
		if refreshed, err := s.Refresh(ctx, written.ID); err != nil {
			log.Printf("refresh after %s on %s failed: %v", intent, written.ID, err)
		} else {
			fresh = refreshed
		}
	}
	s.publish(fresh, intent)
	return fresh
}

func (s *lifecycleService) publish(opp model.Opportunity, intent string) {
	if s.publisher == nil || opp.ID == "" {
		return
	}
	s.publisher.PublishOpportunityChanged(model.OpportunityChanged{
		Type:          model.EventOpportunityChanged,
		OpportunityID: opp.ID,
		Status:        opp.Status,
		Action:        intent,
		At:            s.now(),
	})
}

func (s *lifecycleService) record(ctx context.Context, actor model.Profile, action, id string, err error, details map[string]interface{}) {
	if s.intents == nil {
		return
	}
	outcome := model.OutcomeSucceeded
	if err != nil {
		outcome = model.OutcomeFailed
		details["error"] = err.Error()
	}
	s.intents.Record(ctx, actor, action, id, outcome, details)
}

// ReconcileApprovals returns exactly one approval per required program, in
// program order: existing entries are kept, new programs get Pending, and
// entries for programs no longer required are dropped.
func ReconcileApprovals(programs []model.ProgramRef, existing []model.ProgramApproval) []model.ProgramApproval {
	byKey := make(map[string]model.ProgramApproval, len(existing))
	for _, a := range existing {
		if _, seen := byKey[a.Program.Key()]; !seen {
			byKey[a.Program.Key()] = a
		}
	}

	out := make([]model.ProgramApproval, 0, len(programs))
	used := make(map[string]bool, len(programs))
	for _, p := range programs {
		key := p.Key()
		if used[key] {
			continue
		}
		used[key] = true
		if a, ok := byKey[key]; ok {
			a.Program = p
			out = append(out, a)
			continue
		}
		out = append(out, model.ProgramApproval{Program: p, State: model.ApprovalPending})
	}
	return out
}

func freshApprovals(actual, expected []model.ProgramApproval) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range expected {
		if actual[i].Program.Key() != expected[i].Program.Key() ||
			actual[i].State != model.ApprovalPending ||
			actual[i].Comments != "" {
			return false
		}
	}
	return true
}
