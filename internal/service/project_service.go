package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/dto"
	"github.com/taskforge/taskforge-api/internal/models"
	"github.com/taskforge/taskforge-api/internal/repository"
)

// ProjectService is the project lifecycle manager. Every mutation passes
// through the access control evaluator before touching storage; list and
// detail reads go through the visibility filter.
type ProjectService interface {
	Create(ctx context.Context, identity authz.Identity, payload dto.ProjectCreateRequest) (dto.ProjectResponse, error)
	List(ctx context.Context, identity authz.Identity) ([]dto.ProjectResponse, error)
	Get(ctx context.Context, identity authz.Identity, id uuid.UUID) (dto.ProjectDetailResponse, error)
	Update(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ProjectUpdateRequest) (dto.ProjectResponse, error)
	UpdateStatus(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ProjectStatusRequest) (dto.ProjectResponse, error)
	AddEngineer(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.AddEngineerRequest) (dto.ProjectResponse, error)
	Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error
}

type projectService struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewProjectService constructs the project lifecycle manager.
func NewProjectService(projects repository.ProjectRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) ProjectService {
	return &projectService{
		projects:  projects,
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "project_service").Logger(),
		tracer:    otel.Tracer("github.com/taskforge/taskforge-api/internal/service/project"),
	}
}

func (s *projectService) Create(ctx context.Context, identity authz.Identity, payload dto.ProjectCreateRequest) (dto.ProjectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "project.create")
	defer span.End()

	if err := authz.Decide(identity, authz.OpCreateProject, authz.Facts{}); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ProjectResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProjectResponse{}, err
	}

	startDate, err := parseStartDate(payload.StartDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid start date")
		return dto.ProjectResponse{}, err
	}

	estimateUnit := models.EstimateUnitDays
	if payload.EstimateUnit != "" {
		estimateUnit = models.EstimateUnit(strings.ToUpper(strings.TrimSpace(payload.EstimateUnit)))
		if !estimateUnit.Valid() {
			return dto.ProjectResponse{}, ErrInvalidEstimate
		}
	}

	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		return dto.ProjectResponse{}, ErrUserNotFound
	}

	client, err := s.resolveUser(ctx, clientID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	manager, err := s.resolveUser(ctx, identity.UserID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	project := models.Project{
		Name:          payload.Name,
		Description:   payload.Description,
		StartDate:     startDate,
		Status:        models.ProjectStatusPlanning,
		EstimateValue: payload.EstimateValue,
		EstimateUnit:  estimateUnit,
		ManagerID:     manager.ID,
		ClientID:      client.ID,
	}

	if err := s.projects.Create(ctx, &project); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return dto.ProjectResponse{}, err
	}

	span.SetAttributes(attribute.String("project.id", project.ID.String()))

	s.logger.Info().
		Str("project_id", project.ID.String()).
		Str("manager_id", manager.ID.String()).
		Msg("project created")

	created, err := s.projects.GetByID(ctx, project.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	return dto.NewProjectResponse(created), nil
}

func (s *projectService) List(ctx context.Context, identity authz.Identity) ([]dto.ProjectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "project.list")
	defer span.End()

	projects, err := s.projects.ListVisible(ctx, identity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("project.count", len(projects)))
	return dto.NewProjectResponseSlice(projects), nil
}

func (s *projectService) Get(ctx context.Context, identity authz.Identity, id uuid.UUID) (dto.ProjectDetailResponse, error) {
	ctx, span := s.tracer.Start(ctx, "project.get")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id.String()))

	project, err := s.projects.GetDetailed(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "not found")
			return dto.ProjectDetailResponse{}, ErrProjectNotFound
		}
		span.RecordError(err)
		return dto.ProjectDetailResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpViewProject, authz.ProjectFacts(identity, &project)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ProjectDetailResponse{}, err
	}

	return dto.NewProjectDetailResponse(project), nil
}

func (s *projectService) Update(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ProjectUpdateRequest) (dto.ProjectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "project.update")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id.String()))

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProjectResponse{}, err
	}

	project, err := s.loadProject(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpUpdateProject, authz.ProjectFacts(identity, &project)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ProjectResponse{}, err
	}

	if payload.Name != nil {
		project.Name = *payload.Name
	}
	if payload.Description != nil {
		project.Description = *payload.Description
	}
	if payload.StartDate != nil {
		startDate, err := parseStartDate(*payload.StartDate)
		if err != nil {
			return dto.ProjectResponse{}, err
		}
		project.StartDate = startDate
	}
	if payload.ClientID != nil {
		clientID, err := uuid.Parse(*payload.ClientID)
		if err != nil {
			return dto.ProjectResponse{}, ErrUserNotFound
		}
		client, err := s.resolveUser(ctx, clientID)
		if err != nil {
			return dto.ProjectResponse{}, err
		}
		project.ClientID = client.ID
		project.Client = nil
	}
	if payload.EstimateValue != nil {
		project.EstimateValue = payload.EstimateValue
	}
	if payload.EstimateUnit != nil {
		unit := models.EstimateUnit(strings.ToUpper(strings.TrimSpace(*payload.EstimateUnit)))
		if !unit.Valid() {
			return dto.ProjectResponse{}, ErrInvalidEstimate
		}
		project.EstimateUnit = unit
	}
	if payload.Progress != nil {
		project.Progress = *payload.Progress
	}

	if err := s.projects.Save(ctx, &project); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return dto.ProjectResponse{}, err
	}

	s.logger.Info().Str("project_id", project.ID.String()).Msg("project updated")

	updated, err := s.projects.GetByID(ctx, project.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	return dto.NewProjectResponse(updated), nil
}

// UpdateStatus performs the ownership check, then reruns the full
// authorization and fetch path to reuse its visibility guarantee before
// mutating. Any status in the enumeration is reachable from any other.
func (s *projectService) UpdateStatus(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ProjectStatusRequest) (dto.ProjectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "project.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id.String()))

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProjectResponse{}, err
	}

	status := models.ProjectStatus(strings.ToUpper(strings.TrimSpace(payload.Status)))
	if !status.Valid() {
		span.SetStatus(codes.Error, "unknown status")
		return dto.ProjectResponse{}, ErrInvalidStatus
	}
	span.SetAttributes(attribute.String("project.status", string(status)))

	project, err := s.loadProject(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpUpdateProject, authz.ProjectFacts(identity, &project)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ProjectResponse{}, err
	}

	if _, err := s.Get(ctx, identity, id); err != nil {
		return dto.ProjectResponse{}, err
	}

	project.Status = status
	if err := s.projects.Save(ctx, &project); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return dto.ProjectResponse{}, err
	}

	s.logger.Info().
		Str("project_id", project.ID.String()).
		Str("status", string(status)).
		Msg("project status changed")

	updated, err := s.projects.GetByID(ctx, project.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	return dto.NewProjectResponse(updated), nil
}

// AddEngineer adds a user to the roster with set semantics: adding an
// engineer who is already present is a no-op, not an error.
func (s *projectService) AddEngineer(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.AddEngineerRequest) (dto.ProjectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "project.add_engineer")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id.String()))

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ProjectResponse{}, err
	}

	project, err := s.loadProject(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpAddEngineer, authz.ProjectFacts(identity, &project)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ProjectResponse{}, err
	}

	engineerID, err := uuid.Parse(payload.EngineerID)
	if err != nil {
		return dto.ProjectResponse{}, ErrUserNotFound
	}

	engineer, err := s.resolveUser(ctx, engineerID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}
	span.SetAttributes(attribute.String("project.engineer_id", engineer.ID.String()))

	if !project.HasEngineer(engineer.ID) {
		if err := s.projects.AppendEngineer(ctx, &project, engineer); err != nil {
			span.RecordError(err)
			return dto.ProjectResponse{}, err
		}
		s.logger.Info().
			Str("project_id", project.ID.String()).
			Str("engineer_id", engineer.ID.String()).
			Msg("engineer added to roster")
	}

	updated, err := s.projects.GetByID(ctx, project.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectResponse{}, err
	}

	return dto.NewProjectResponse(updated), nil
}

func (s *projectService) Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "project.delete")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id.String()))

	project, err := s.loadProject(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := authz.Decide(identity, authz.OpDeleteProject, authz.ProjectFacts(identity, &project)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return err
	}

	if err := s.projects.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "not found")
			return ErrProjectNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}

	s.logger.Info().Str("project_id", id.String()).Msg("project deleted")
	return nil
}

func (s *projectService) loadProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return project, nil
}

func (s *projectService) resolveUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func parseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidStartDate
}
