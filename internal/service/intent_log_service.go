package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"portal/internal/model"
	"portal/internal/repository"
)

type IntentLogResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	Action        string `json:"action"`
	OpportunityID string `json:"opportunity_id"`
	Outcome       string `json:"outcome"`
	Details       string `json:"details"`
	CreatedAt     string `json:"created_at"`
}

type IntentLogService interface {
	Record(ctx context.Context, actor model.Profile, action, opportunityID, outcome string, details map[string]interface{})
	List(ctx context.Context, filter repository.IntentLogFilter) ([]IntentLogResponse, int64, error)
}

type intentLogService struct {
	repo repository.IntentLogRepository
}

// NewIntentLogService creates the service. With a nil repository intents are
// only written to the process log.
func NewIntentLogService(repo repository.IntentLogRepository) IntentLogService {
	return &intentLogService{repo: repo}
}

// Record never fails the caller; a lost intent entry is only logged.
func (s *intentLogService) Record(ctx context.Context, actor model.Profile, action, opportunityID, outcome string, details map[string]interface{}) {
	payload := "{}"
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			payload = string(raw)
		}
	}

	if s.repo == nil {
		log.Printf("intent %s on %q by %s: %s %s", action, opportunityID, actor.ID, outcome, payload)
		return
	}

	entry := &model.IntentLog{
		UserID:        actor.ID,
		UserName:      actor.Name,
		Action:        action,
		OpportunityID: opportunityID,
		Outcome:       outcome,
		Details:       payload,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		log.Printf("Failed to store intent %s on %q: %v", action, opportunityID, err)
	}
}

// List retrieves paginated intent entries, newest first
func (s *intentLogService) List(ctx context.Context, filter repository.IntentLogFilter) ([]IntentLogResponse, int64, error) {
	if s.repo == nil {
		return []IntentLogResponse{}, 0, nil
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]IntentLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := l.UserName
		if userName == "" {
			userName = "System"
		}
		res = append(res, IntentLogResponse{
			ID:            l.ID.String(),
			UserID:        l.UserID,
			UserName:      userName,
			Action:        l.Action,
			OpportunityID: l.OpportunityID,
			Outcome:       l.Outcome,
			Details:       l.Details,
			CreatedAt:     l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}
