package model

import "time"

// Event types pushed to connected presenters
const (
	EventOpportunityChanged = "opportunity.changed"
)

// OpportunityChanged tells presenters to re-fetch an opportunity and any list showing it.
type OpportunityChanged struct {
	Type          string    `json:"type"`
	OpportunityID string    `json:"opportunity_id"`
	Status        Status    `json:"status"`
	Action        string    `json:"action"`
	At            time.Time `json:"at"`
}
