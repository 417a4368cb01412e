package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/dto"
	"github.com/taskforge/taskforge-api/internal/models"
	"github.com/taskforge/taskforge-api/internal/repository"
)

// feedbackAck is the acknowledgement returned after a recorded feedback entry.
const feedbackAck = "Feedback added successfully"

// ActivityService is the activity lifecycle manager. Every successful
// create, update, status change and feedback appends exactly one audit entry
// in the same transaction as the entity mutation.
type ActivityService interface {
	Create(ctx context.Context, identity authz.Identity, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error)
	List(ctx context.Context, identity authz.Identity, projectID *uuid.UUID) ([]dto.ActivityResponse, error)
	Get(ctx context.Context, identity authz.Identity, id uuid.UUID) (dto.ActivityResponse, error)
	Update(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error)
	UpdateStatus(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ActivityStatusRequest) (dto.ActivityResponse, error)
	AddFeedback(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.FeedbackRequest) (dto.FeedbackResponse, error)
	Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error
}

type activityService struct {
	activities    repository.ActivityRepository
	projects      repository.ProjectRepository
	logs          repository.ActivityLogRepository
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	initialStatus models.ActivityStatus
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewActivityService constructs the activity lifecycle manager.
func NewActivityService(
	activities repository.ActivityRepository,
	projects repository.ProjectRepository,
	logs repository.ActivityLogRepository,
	validate *validator.Validate,
	initialStatus models.ActivityStatus,
	logger zerolog.Logger,
) ActivityService {
	if !initialStatus.Valid() {
		initialStatus = models.ActivityStatusOpen
	}
	return &activityService{
		activities:    activities,
		projects:      projects,
		logs:          logs,
		validator:     validate,
		sanitizer:     bluemonday.UGCPolicy(),
		initialStatus: initialStatus,
		logger:        logger.With().Str("component", "activity_service").Logger(),
		tracer:        otel.Tracer("github.com/taskforge/taskforge-api/internal/service/activity"),
	}
}

// Create denies clients, resolves the target project and defaults the
// assignee to the caller.
func (s *activityService) Create(ctx context.Context, identity authz.Identity, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.create")
	defer span.End()

	if err := authz.Decide(identity, authz.OpCreateActivity, authz.Facts{}); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ActivityResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ActivityResponse{}, err
	}

	projectID, err := uuid.Parse(payload.ProjectID)
	if err != nil {
		return dto.ActivityResponse{}, ErrProjectNotFound
	}
	span.SetAttributes(attribute.String("activity.project_id", projectID.String()))

	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "project not found")
			return dto.ActivityResponse{}, ErrProjectNotFound
		}
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	assigneeID := identity.UserID
	activity := models.Activity{
		Name:        payload.Name,
		Description: s.sanitizer.Sanitize(payload.Description),
		ImageURL:    payload.ImageURL,
		Issue:       s.sanitizer.Sanitize(payload.Issue),
		Status:      s.initialStatus,
		ProjectID:   projectID,
		AssigneeID:  &assigneeID,
	}

	log := s.newLog(identity, models.LogActionCreated, "Activity created", datatypes.JSONMap{
		"status": string(s.initialStatus),
	})

	if err := s.activities.CreateWithLog(ctx, &activity, &log); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return dto.ActivityResponse{}, err
	}

	span.SetAttributes(attribute.String("activity.id", activity.ID.String()))

	s.logger.Info().
		Str("activity_id", activity.ID.String()).
		Str("project_id", projectID.String()).
		Msg("activity created")

	created, err := s.activities.GetByID(ctx, activity.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(created), nil
}

func (s *activityService) List(ctx context.Context, identity authz.Identity, projectID *uuid.UUID) ([]dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.list")
	defer span.End()
	if projectID != nil {
		span.SetAttributes(attribute.String("activity.project_id", projectID.String()))
	}

	activities, err := s.activities.ListVisible(ctx, identity, projectID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("activity.count", len(activities)))
	return dto.NewActivityResponseSlice(activities), nil
}

// Get applies the same visibility predicate as List: a caller with no
// relationship to the parent project is refused, never shown the data.
func (s *activityService) Get(ctx context.Context, identity authz.Identity, id uuid.UUID) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.get")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", id.String()))

	activity, err := s.loadDetailed(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpViewProject, authz.ActivityFacts(identity, &activity)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(activity), nil
}

func (s *activityService) Update(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.update")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", id.String()))

	if err := authz.Decide(identity, authz.OpUpdateActivity, authz.Facts{}); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ActivityResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ActivityResponse{}, err
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	var changed []string
	if payload.Name != nil {
		activity.Name = *payload.Name
		changed = append(changed, "name")
	}
	if payload.Description != nil {
		activity.Description = s.sanitizer.Sanitize(*payload.Description)
		changed = append(changed, "description")
	}
	if payload.Issue != nil {
		activity.Issue = s.sanitizer.Sanitize(*payload.Issue)
		changed = append(changed, "issue")
	}
	if payload.ImageURL != nil {
		activity.ImageURL = *payload.ImageURL
		changed = append(changed, "image_url")
	}
	span.SetAttributes(attribute.StringSlice("activity.changed_fields", changed))

	log := s.newLog(identity, models.LogActionUpdate, "Activity details updated", datatypes.JSONMap{
		"fields": strings.Join(changed, ","),
	})

	if err := s.activities.SaveWithLog(ctx, &activity, &log); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return dto.ActivityResponse{}, err
	}

	s.logger.Info().Str("activity_id", activity.ID.String()).Msg("activity updated")

	updated, err := s.activities.GetByID(ctx, activity.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(updated), nil
}

func (s *activityService) UpdateStatus(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.ActivityStatusRequest) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", id.String()))

	if err := authz.Decide(identity, authz.OpChangeActivityStatus, authz.Facts{}); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ActivityResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ActivityResponse{}, err
	}

	status := models.ActivityStatus(strings.ToUpper(strings.TrimSpace(payload.Status)))
	if !status.Valid() {
		span.SetStatus(codes.Error, "unknown status")
		return dto.ActivityResponse{}, ErrInvalidStatus
	}
	span.SetAttributes(attribute.String("activity.status", string(status)))

	activity, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	activity.Status = status
	log := s.newLog(identity, models.LogActionStatusChange, fmt.Sprintf("Status changed to %s", status), datatypes.JSONMap{
		"status": string(status),
	})

	if err := s.activities.SaveWithLog(ctx, &activity, &log); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return dto.ActivityResponse{}, err
	}

	s.logger.Info().
		Str("activity_id", activity.ID.String()).
		Str("status", string(status)).
		Msg("activity status changed")

	updated, err := s.activities.GetByID(ctx, activity.ID)
	if err != nil {
		span.RecordError(err)
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(updated), nil
}

// AddFeedback never mutates the activity itself, only the audit trail.
// Clients may comment only on activities of projects they commissioned.
func (s *activityService) AddFeedback(ctx context.Context, identity authz.Identity, id uuid.UUID, payload dto.FeedbackRequest) (dto.FeedbackResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activity.add_feedback")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", id.String()))

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.FeedbackResponse{}, err
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.FeedbackResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpAddFeedback, authz.ActivityFacts(identity, &activity)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.FeedbackResponse{}, err
	}

	log := s.newLog(identity, models.LogActionFeedback, s.sanitizer.Sanitize(payload.Message), nil)
	log.ActivityID = &activity.ID
	log.ProjectID = activity.ProjectID

	if err := s.logs.Append(ctx, &log); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().Str("activity_id", activity.ID.String()).Msg("feedback recorded")

	return dto.FeedbackResponse{Message: feedbackAck}, nil
}

// Delete removes the activity and its audit entries. Engineers may only
// delete activities assigned to them; the deletion itself is not audited.
func (s *activityService) Delete(ctx context.Context, identity authz.Identity, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "activity.delete")
	defer span.End()
	span.SetAttributes(attribute.String("activity.id", id.String()))

	activity, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := authz.Decide(identity, authz.OpDeleteActivity, authz.ActivityFacts(identity, &activity)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return err
	}

	if err := s.activities.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "not found")
			return ErrActivityNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}

	s.logger.Info().Str("activity_id", id.String()).Msg("activity deleted")
	return nil
}

func (s *activityService) load(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *activityService) loadDetailed(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	activity, err := s.activities.GetDetailed(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *activityService) newLog(identity authz.Identity, action models.LogAction, details string, metadata datatypes.JSONMap) models.ActivityLog {
	return models.ActivityLog{
		Action:        action,
		Details:       details,
		Metadata:      metadata,
		PerformedByID: identity.UserID,
	}
}
