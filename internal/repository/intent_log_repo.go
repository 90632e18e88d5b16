package repository

import (
	"context"

	"portal/internal/model"

	"gorm.io/gorm"
)

type IntentLogFilter struct {
	OpportunityID string
	UserID        string
	Action        string
	Page          int
	Limit         int
}

type IntentLogRepository interface {
	Log(ctx context.Context, entry *model.IntentLog) error
	List(ctx context.Context, filter IntentLogFilter) ([]model.IntentLog, int64, error)
}

type intentLogRepository struct {
	db *gorm.DB
}

func NewIntentLogRepository(db *gorm.DB) IntentLogRepository {
	return &intentLogRepository{db: db}
}

func (r *intentLogRepository) Log(ctx context.Context, entry *model.IntentLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *intentLogRepository) List(ctx context.Context, filter IntentLogFilter) ([]model.IntentLog, int64, error) {
	var logs []model.IntentLog
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := r.filtered(ctx, filter).Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *intentLogRepository) filtered(ctx context.Context, filter IntentLogFilter) *gorm.DB {
	query := GetDB(ctx, r.db).Model(&model.IntentLog{})
	if filter.OpportunityID != "" {
		query = query.Where("opportunity_id = ?", filter.OpportunityID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	return query
}
