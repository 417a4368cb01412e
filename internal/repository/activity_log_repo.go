package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/models"
)

// ActivityLogRepository persists audit trail entries. The trail is
// append-only: there are no update or single-delete operations, entries only
// disappear through the cascade of their parent project or activity.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]models.ActivityLog, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository instantiates a GORM-backed repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	query := r.db.WithContext(ctx).
		Preload("PerformedBy").
		Where("project_id = ?", projectID).
		Order("timestamp DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.ActivityLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *activityLogRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("PerformedBy").
		Where("activity_id = ?", activityID).
		Order("timestamp DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}
