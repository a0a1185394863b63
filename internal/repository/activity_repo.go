package repository

import (
	"context"

	"saleshub/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository interface {
	// Log appends one audit entry. Callers invoke this inside the same
	// transaction as the mutation being recorded.
	Log(ctx context.Context, entry *model.ActivityLog) error
	List(ctx context.Context, activityType string, page, limit int) ([]model.ActivityLog, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Log(ctx context.Context, entry *model.ActivityLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *activityRepository) List(ctx context.Context, activityType string, page, limit int) ([]model.ActivityLog, int64, error) {
	var logs []model.ActivityLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ActivityLog{})
	if activityType != "" {
		db = db.Where("type = ?", activityType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := GetDB(ctx, r.db).Preload("Actor")
	if activityType != "" {
		query = query.Where("type = ?", activityType)
	}
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
