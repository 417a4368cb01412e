package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/models"
)

// ProjectRepository defines persistence operations for projects. List and
// detail queries carry the visibility filter: callers only ever receive
// projects their role and relationships permit.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Save(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Project, error)
	GetDetailed(ctx context.Context, id uuid.UUID) (models.Project, error)
	ListVisible(ctx context.Context, viewer authz.Identity) ([]models.Project, error)
	AppendEngineer(ctx context.Context, project *models.Project, engineer models.User) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository instantiates a GORM-backed repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Save writes the project's own columns; roster and child rows are managed
// through their dedicated paths.
func (r *projectRepository) Save(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).
		Omit("Manager", "Client", "Engineers", "Activities", "Logs").
		Save(project).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Preload("Client").
		Preload("Engineers").
		First(&project, "id = ?", id).Error
	if err != nil {
		return models.Project{}, err
	}

	return project, nil
}

// GetDetailed eager-loads the project's activities and audit trail,
// newest first at every level.
func (r *projectRepository) GetDetailed(ctx context.Context, id uuid.UUID) (models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Manager").
		Preload("Client").
		Preload("Engineers").
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("activities.created_at DESC")
		}).
		Preload("Activities.Assignee").
		Preload("Activities.Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_logs.timestamp DESC")
		}).
		Preload("Activities.Logs.PerformedBy").
		Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("activity_logs.timestamp DESC")
		}).
		Preload("Logs.PerformedBy").
		First(&project, "id = ?", id).Error
	if err != nil {
		return models.Project{}, err
	}

	return project, nil
}

func (r *projectRepository) ListVisible(ctx context.Context, viewer authz.Identity) ([]models.Project, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Preload("Manager").
		Preload("Client").
		Preload("Engineers")

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
		return []models.Project{}, nil
	}

	var projects []models.Project
	if err := query.Order("projects.created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *projectRepository) AppendEngineer(ctx context.Context, project *models.Project, engineer models.User) error {
	return r.db.WithContext(ctx).Model(project).Association("Engineers").Append(&engineer)
}

// DeleteCascade removes the project together with its activities, audit
// trail and roster rows in one transaction, so no orphans remain queryable.
func (r *projectRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ActivityLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_engineers WHERE project_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Project{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
