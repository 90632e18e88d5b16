package model

import "time"

// Session keys persisted per browser session
const (
	SessionKeyToken  = "token"
	SessionKeyUser   = "user"
	SessionKeyModule = "modulo"
)

// SessionEntry is one key-value pair of a persisted browser session.
type SessionEntry struct {
	SessionID string    `gorm:"type:varchar(64);primaryKey" json:"session_id"`
	Key       string    `gorm:"type:varchar(32);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
