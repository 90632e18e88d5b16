package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"portal/internal/documents"
	"portal/internal/form"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/internal/storeclient"

	"github.com/google/uuid"
)

var (
	ErrDraftForbidden        = errors.New("draft belongs to another user")
	ErrDocumentsOnCreateOnly = errors.New("documents can only be attached before the opportunity is created")
)

// --- DTOs ---

type StartDraftDTO struct {
	OpportunityID string `json:"opportunity_id"`
}

type FieldValueDTO struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

type SetFieldsDTO struct {
	Fields []FieldValueDTO `json:"fields" binding:"required,min=1,dive"`
}

type SelectCompanyDTO struct {
	CompanyID   string `json:"company_id" binding:"required"`
	CompanyName string `json:"company_name"`
}

type AddProgramDTO struct {
	Level   string `json:"level" binding:"required"`
	Program string `json:"program" binding:"required"`
}

type AddLanguageDTO struct {
	Language string `json:"language" binding:"required"`
	Level    string `json:"level" binding:"required"`
}

type AddBenefitDTO struct {
	Benefit string `json:"benefit" binding:"required"`
}

type DraftResponse struct {
	ID                 string                `json:"id"`
	OpportunityID      string                `json:"opportunity_id,omitempty"`
	Status             model.Status          `json:"status"`
	Values             form.Values           `json:"values"`
	FormattedAidAmount string                `json:"formatted_aid_amount"`
	HasUnsavedChanges  bool                  `json:"has_unsaved_changes"`
	Errors             form.ValidationErrors `json:"errors,omitempty"`
}

// --- Interface ---

type DraftService interface {
	Start(ctx context.Context, actor model.Profile, req StartDraftDTO) (DraftResponse, error)
	Get(ctx context.Context, actor model.Profile, id string) (DraftResponse, error)
	SetFields(ctx context.Context, actor model.Profile, id string, req SetFieldsDTO) (DraftResponse, error)
	SelectCompany(ctx context.Context, actor model.Profile, id string, req SelectCompanyDTO) (DraftResponse, error)
	AddProgram(ctx context.Context, actor model.Profile, id string, req AddProgramDTO) (DraftResponse, error)
	RemoveProgram(ctx context.Context, actor model.Profile, id string, index int) (DraftResponse, error)
	AddLanguage(ctx context.Context, actor model.Profile, id string, req AddLanguageDTO) (DraftResponse, error)
	RemoveLanguage(ctx context.Context, actor model.Profile, id string, index int) (DraftResponse, error)
	AddBenefit(ctx context.Context, actor model.Profile, id string, req AddBenefitDTO) (DraftResponse, error)
	RemoveBenefit(ctx context.Context, actor model.Profile, id string, index int) (DraftResponse, error)
	AttachDocument(ctx context.Context, actor model.Profile, id string, slot int, required bool, obj documents.Object) (DraftResponse, error)
	DetachDocument(ctx context.Context, actor model.Profile, id string, slot int) (DraftResponse, error)
	Submit(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error)
	Discard(ctx context.Context, actor model.Profile, id string) error
}

type draftService struct {
	drafts        repository.DraftStore
	stager        documents.Stager
	lifecycle     LifecycleService
	institutional string
	ttl           time.Duration
}

func NewDraftService(drafts repository.DraftStore, stager documents.Stager, lifecycle LifecycleService, institutionalCompanyID string, ttl time.Duration) DraftService {
	return &draftService{
		drafts:        drafts,
		stager:        stager,
		lifecycle:     lifecycle,
		institutional: institutionalCompanyID,
		ttl:           ttl,
	}
}

// Start opens a create form, or an edit form over a fresh read of the opportunity.
func (s *draftService) Start(ctx context.Context, actor model.Profile, req StartDraftDTO) (DraftResponse, error) {
	var f *form.Form
	if req.OpportunityID == "" {
		f = form.InitFromEmpty(actor, s.institutional)
	} else {
		opp, err := s.lifecycle.Refresh(ctx, req.OpportunityID)
		if err != nil {
			return DraftResponse{}, err
		}
		if _, ok := Transition(opp.Status, ActionEdit); !ok {
			return DraftResponse{}, fmt.Errorf("%w: cannot %s an opportunity in status %s", ErrInvalidTransition, ActionEdit, opp.Status)
		}
		f = form.InitFromExisting(opp, actor, s.institutional)
	}

	id := uuid.NewString()
	if err := s.save(ctx, id, f); err != nil {
		return DraftResponse{}, err
	}
	return draftResponse(id, f), nil
}

func (s *draftService) Get(ctx context.Context, actor model.Profile, id string) (DraftResponse, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return DraftResponse{}, err
	}
	return draftResponse(id, f), nil
}

// SetFields applies every field in order. Nothing is saved if one fails.
func (s *draftService) SetFields(ctx context.Context, actor model.Profile, id string, req SetFieldsDTO) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		for _, field := range req.Fields {
			if err := f.SetField(field.Name, field.Value); err != nil {
				return fmt.Errorf("%s: %w", field.Name, err)
			}
		}
		return nil
	})
}

func (s *draftService) SelectCompany(ctx context.Context, actor model.Profile, id string, req SelectCompanyDTO) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.SelectCompany(req.CompanyID, req.CompanyName)
	})
}

func (s *draftService) AddProgram(ctx context.Context, actor model.Profile, id string, req AddProgramDTO) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.AddProgram(req.Level, req.Program)
	})
}

func (s *draftService) RemoveProgram(ctx context.Context, actor model.Profile, id string, index int) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.RemoveProgram(index)
	})
}

func (s *draftService) AddLanguage(ctx context.Context, actor model.Profile, id string, req AddLanguageDTO) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.AddLanguage(req.Language, req.Level)
	})
}

func (s *draftService) RemoveLanguage(ctx context.Context, actor model.Profile, id string, index int) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.RemoveLanguage(index)
	})
}

func (s *draftService) AddBenefit(ctx context.Context, actor model.Profile, id string, req AddBenefitDTO) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.AddEmotionalBenefit(req.Benefit)
	})
}

func (s *draftService) RemoveBenefit(ctx context.Context, actor model.Profile, id string, index int) (DraftResponse, error) {
	return s.mutate(ctx, actor, id, func(f *form.Form) error {
		return f.RemoveEmotionalBenefit(index)
	})
}

// AttachDocument stages the file and records its slot on the form.
func (s *draftService) AttachDocument(ctx context.Context, actor model.Profile, id string, slot int, required bool, obj documents.Object) (DraftResponse, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return DraftResponse{}, err
	}
	if f.OpportunityID() != "" {
		return DraftResponse{}, ErrDocumentsOnCreateOnly
	}

	doc := model.DocumentRef{Slot: slot, Name: obj.Name, ContentType: obj.ContentType, Required: required}
	// checked before staging so an invalid slot never reaches the bucket
	if err := f.AttachDocument(doc); err != nil {
		return DraftResponse{}, err
	}
	key, err := s.stager.Put(ctx, id, slot, obj)
	if err != nil {
		return DraftResponse{}, err
	}
	doc.StagingKey = key
	if err := f.AttachDocument(doc); err != nil {
		return DraftResponse{}, err
	}

	if err := s.save(ctx, id, f); err != nil {
		return DraftResponse{}, err
	}
	return draftResponse(id, f), nil
}

func (s *draftService) DetachDocument(ctx context.Context, actor model.Profile, id string, slot int) (DraftResponse, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return DraftResponse{}, err
	}
	removed, ok := f.DetachDocument(slot)
	if !ok {
		return DraftResponse{}, form.ErrIndexOutOfRange
	}
	if removed.StagingKey != "" {
		if err := s.stager.Delete(ctx, removed.StagingKey); err != nil {
			log.Printf("failed to drop staged document %s: %v", removed.StagingKey, err)
		}
	}
	if err := s.save(ctx, id, f); err != nil {
		return DraftResponse{}, err
	}
	return draftResponse(id, f), nil
}

// Submit validates locally, then creates or updates through the lifecycle
// controller. The draft is discarded once the store accepts it.
func (s *draftService) Submit(ctx context.Context, actor model.Profile, id string) (model.Opportunity, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return model.Opportunity{}, err
	}
	if err := f.Validate(); err != nil {
		return model.Opportunity{}, err
	}

	opp := f.ToOpportunity()
	var saved model.Opportunity
	if f.OpportunityID() == "" {
		docs, err := s.stagedDocuments(ctx, opp.Documents)
		if err != nil {
			return model.Opportunity{}, err
		}
		opp.Documents = nil
		saved, err = s.lifecycle.Create(ctx, actor, opp, docs)
		if err != nil {
			return model.Opportunity{}, err
		}
	} else {
		saved, err = s.lifecycle.Update(ctx, actor, f.OpportunityID(), opp)
		if err != nil {
			return model.Opportunity{}, err
		}
	}

	s.cleanup(ctx, id, f.Values().Documents)
	return saved, nil
}

func (s *draftService) Discard(ctx context.Context, actor model.Profile, id string) error {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	s.cleanup(ctx, id, f.Values().Documents)
	return nil
}

func (s *draftService) stagedDocuments(ctx context.Context, refs []model.DocumentRef) ([]storeclient.Document, error) {
	docs := make([]storeclient.Document, 0, len(refs))
	for _, ref := range refs {
		if ref.StagingKey == "" {
			continue
		}
		obj, err := s.stager.Get(ctx, ref.StagingKey)
		if err != nil {
			return nil, fmt.Errorf("document in slot %d: %w", ref.Slot, err)
		}
		docs = append(docs, storeclient.Document{
			Slot:        ref.Slot,
			Name:        ref.Name,
			ContentType: obj.ContentType,
			Required:    ref.Required,
			Data:        obj.Data,
		})
	}
	return docs, nil
}

func (s *draftService) cleanup(ctx context.Context, id string, refs []model.DocumentRef) {
	for _, ref := range refs {
		if ref.StagingKey == "" {
			continue
		}
		if err := s.stager.Delete(ctx, ref.StagingKey); err != nil {
			log.Printf("failed to drop staged document %s: %v", ref.StagingKey, err)
		}
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		log.Printf("failed to drop draft %s: %v", id, err)
	}
}

func (s *draftService) mutate(ctx context.Context, actor model.Profile, id string, apply func(f *form.Form) error) (DraftResponse, error) {
	f, err := s.load(ctx, actor, id)
	if err != nil {
		return DraftResponse{}, err
	}
	if err := apply(f); err != nil {
		return DraftResponse{}, err
	}
	if err := s.save(ctx, id, f); err != nil {
		return DraftResponse{}, err
	}
	return draftResponse(id, f), nil
}

func (s *draftService) load(ctx context.Context, actor model.Profile, id string) (*form.Form, error) {
	payload, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot, err := form.DecodeSnapshot(payload)
	if err != nil {
		return nil, err
	}
	if snapshot.Actor.ID != actor.ID {
		return nil, ErrDraftForbidden
	}
	return form.Restore(snapshot), nil
}

func (s *draftService) save(ctx context.Context, id string, f *form.Form) error {
	payload, err := f.Snapshot().Encode()
	if err != nil {
		return err
	}
	return s.drafts.Save(ctx, id, payload, s.ttl)
}

func draftResponse(id string, f *form.Form) DraftResponse {
	res := DraftResponse{
		ID:                 id,
		OpportunityID:      f.OpportunityID(),
		Status:             f.Status(),
		Values:             f.Values(),
		FormattedAidAmount: f.FormattedAidAmount(),
		HasUnsavedChanges:  f.HasUnsavedChanges(),
	}
	var verrs form.ValidationErrors
	if err := f.Validate(); errors.As(err, &verrs) {
		res.Errors = verrs
	}
	return res
}
