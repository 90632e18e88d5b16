package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	IntentCreate          = "CREATE_OPPORTUNITY"
	IntentUpdate          = "UPDATE_OPPORTUNITY"
	IntentSubmitForReview = "SUBMIT_FOR_REVIEW"
	IntentApproveProgram  = "APPROVE_PROGRAM"
	IntentRejectProgram   = "REJECT_PROGRAM"
	IntentReject          = "REJECT_OPPORTUNITY"
	IntentDuplicate       = "DUPLICATE_OPPORTUNITY"
	IntentActivate        = "ACTIVATE_OPPORTUNITY"
)

// Intent outcomes
const (
	OutcomeSucceeded = "SUCCEEDED"
	OutcomeFailed    = "FAILED"
)

// IntentLog records who issued which mutation through the portal and how it ended.
// Status history itself lives in the store; this is the portal-side trail.
type IntentLog struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        string    `gorm:"type:varchar(64);index" json:"user_id"`
	UserName      string    `gorm:"type:varchar(255)" json:"user_name"`
	Action        string    `gorm:"type:varchar(50);not null;index" json:"action"`
	OpportunityID string    `gorm:"type:varchar(64);index" json:"opportunity_id"`
	Outcome       string    `gorm:"type:varchar(20);not null" json:"outcome"`
	Details       string    `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the intent
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}
