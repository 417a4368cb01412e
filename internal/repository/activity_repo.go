package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/models"
)

// ActivityRepository defines persistence operations for activities. Every
// mutating method pairs the entity write with its audit entry in a single
// transaction: if the log append fails, the mutation is rolled back.
type ActivityRepository interface {
	CreateWithLog(ctx context.Context, activity *models.Activity, log *models.ActivityLog) error
	SaveWithLog(ctx context.Context, activity *models.Activity, log *models.ActivityLog) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Activity, error)
	GetDetailed(ctx context.Context, id uuid.UUID) (models.Activity, error)
	ListVisible(ctx context.Context, viewer authz.Identity, projectID *uuid.UUID) ([]models.Activity, error)
	DeleteCascade(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, projectID uuid.UUID) (map[models.ActivityStatus]int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository instantiates a GORM-backed repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) CreateWithLog(ctx context.Context, activity *models.Activity, log *models.ActivityLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		log.ActivityID = &activity.ID
		log.ProjectID = activity.ProjectID
		return tx.Create(log).Error
	})
}

func (r *activityRepository) SaveWithLog(ctx context.Context, activity *models.Activity, log *models.ActivityLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Save only the activity's own columns; associations are managed
		// through their own paths.
		if err := tx.Omit("Project", "Assignee", "Logs").Save(activity).Error; err != nil {
			return err
		}

		log.ActivityID = &activity.ID
		log.ProjectID = activity.ProjectID
		return tx.Create(log).Error
	})
}

func (r *activityRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Client").
		Preload("Project.Engineers").
		Preload("Assignee").
		First(&activity, "id = ?", id).Error
	if err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

// GetDetailed additionally eager-loads the audit trail, newest first.
func (r *activityRepository) GetDetailed(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Client").
		Preload("Project.Engineers").
		Preload("Assignee").
		Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_logs.timestamp DESC")
		}).
		Preload("Logs.PerformedBy").
		First(&activity, "id = ?", id).Error
	if err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) ListVisible(ctx context.Context, viewer authz.Identity, projectID *uuid.UUID) ([]models.Activity, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Activity{}).
		Joins("JOIN projects ON projects.id = activities.project_id").
		Preload("Assignee").
		Preload("Project")

	switch viewer.Role {
	case models.RoleProjectManager:
		query = query.Where("projects.manager_id = ?", viewer.UserID)
	case models.RoleEngineer:
		query = query.
			Joins("JOIN project_engineers pe ON pe.project_id = projects.id").
			Where("pe.user_id = ?", viewer.UserID)
	case models.RoleClient:
		query = query.Where("projects.client_id = ?", viewer.UserID)
	default:
		return []models.Activity{}, nil
	}

	// The explicit project filter narrows the role predicate, it never
	// replaces it.
	if projectID != nil {
		query = query.Where("activities.project_id = ?", *projectID)
	}

	var activities []models.Activity
	if err := query.Order("activities.created_at DESC").Find(&activities).Error; err != nil {
		return nil, err
	}

	return activities, nil
}

// DeleteCascade removes the activity and its audit entries together. The
// deletion itself is not audited.
func (r *activityRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", id).Delete(&models.ActivityLog{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Activity{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *activityRepository) CountByStatus(ctx context.Context, projectID uuid.UUID) (map[models.ActivityStatus]int64, error) {
	type statusCount struct {
		Status models.ActivityStatus
		Count  int64
	}

	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Activity{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ActivityStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
