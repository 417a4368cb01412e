package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
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

const recentLogLimit = 10

// DashboardService aggregates activity progress for a project. Results are
// cached per project; the cache is consulted only after the visibility check
// so a cached entry can never leak across tenants.
type DashboardService interface {
	GetProjectDashboard(ctx context.Context, identity authz.Identity, projectID uuid.UUID) (dto.ProjectDashboardResponse, error)
}

type dashboardService struct {
	projects   repository.ProjectRepository
	activities repository.ActivityRepository
	logs       repository.ActivityLogRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewDashboardService constructs the dashboard aggregator. A nil cache
// disables caching.
func NewDashboardService(
	projects repository.ProjectRepository,
	activities repository.ActivityRepository,
	logs repository.ActivityLogRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		projects:   projects,
		activities: activities,
		logs:       logs,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "dashboard_service").Logger(),
		tracer:     otel.Tracer("github.com/taskforge/taskforge-api/internal/service/dashboard"),
	}
}

func (s *dashboardService) GetProjectDashboard(ctx context.Context, identity authz.Identity, projectID uuid.UUID) (dto.ProjectDashboardResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.project")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID.String()))

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "not found")
			return dto.ProjectDashboardResponse{}, ErrProjectNotFound
		}
		span.RecordError(err)
		return dto.ProjectDashboardResponse{}, err
	}

	if err := authz.Decide(identity, authz.OpViewProject, authz.ProjectFacts(identity, &project)); err != nil {
		span.SetStatus(codes.Error, "access denied")
		return dto.ProjectDashboardResponse{}, err
	}

	cacheKey := fmt.Sprintf("dashboard:project:%s", projectID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProjectDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
				s.logger.Debug().Str("project_id", projectID.String()).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}
	span.SetAttributes(attribute.Bool("dashboard.cache_hit", false))

	counts, err := s.activities.CountByStatus(ctx, projectID)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectDashboardResponse{}, err
	}

	recent, err := s.logs.ListByProject(ctx, projectID, recentLogLimit)
	if err != nil {
		span.RecordError(err)
		return dto.ProjectDashboardResponse{}, err
	}

	response := buildDashboard(project, counts, recent)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func buildDashboard(project models.Project, counts map[models.ActivityStatus]int64, recent []models.ActivityLog) dto.ProjectDashboardResponse {
	var total, done int64
	statusCounts := make(map[string]int64, len(counts))
	for status, count := range counts {
		statusCounts[string(status)] = count
		total += count
		if status == models.ActivityStatusDone {
			done = count
		}
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}

	return dto.ProjectDashboardResponse{
		ProjectID:       project.ID.String(),
		Status:          string(project.Status),
		Progress:        project.Progress,
		TotalActivities: total,
		StatusCounts:    statusCounts,
		CompletionRatio: ratio,
		RecentLogs:      dto.NewActivityLogResponseSlice(recent),
	}
}
