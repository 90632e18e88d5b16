package repository

import (
	"context"
	"fmt"

	"portal/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository persists the key-value pairs of browser sessions.
type SessionRepository interface {
	Load(ctx context.Context, sessionID string) (map[string]string, error)
	Save(ctx context.Context, sessionID string, values map[string]string) error
	Clear(ctx context.Context, sessionID string) error
}

type sessionRepository struct {
	db *gorm.DB
	tx TransactionManager
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db, tx: NewTransactionManager(db)}
}

func (r *sessionRepository) Load(ctx context.Context, sessionID string) (map[string]string, error) {
	var entries []model.SessionEntry
	if err := GetDB(ctx, r.db).Where("session_id = ?", sessionID).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.Key] = e.Value
	}
	return values, nil
}

// Save upserts every key in values; keys not mentioned are left untouched.
func (r *sessionRepository) Save(ctx context.Context, sessionID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for key, value := range values {
			entry := model.SessionEntry{SessionID: sessionID, Key: key, Value: value}
			err := GetDB(txCtx, r.db).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "session_id"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return fmt.Errorf("failed to save session key %s: %w", key, err)
			}
		}
		return nil
	})
}

func (r *sessionRepository) Clear(ctx context.Context, sessionID string) error {
	if err := GetDB(ctx, r.db).Where("session_id = ?", sessionID).Delete(&model.SessionEntry{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
