package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/models"
)

var errLogAppendFailed = errors.New("log append failed")

func strPtr(v string) *string { return &v }

// memoryUserRepo is an in-memory UserRepository for service tests.
type memoryUserRepo struct {
	users map[uuid.UUID]models.User
}

func newMemoryUserRepo(users ...models.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[uuid.UUID]models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) List(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

// memoryProjectRepo is an in-memory ProjectRepository for service tests.
type memoryProjectRepo struct {
	projects map[uuid.UUID]models.Project
	getCalls int
}

func newMemoryProjectRepo(projects ...models.Project) *memoryProjectRepo {
	repo := &memoryProjectRepo{projects: make(map[uuid.UUID]models.Project)}
	for _, project := range projects {
		repo.projects[project.ID] = project
	}
	return repo
}

func (m *memoryProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.projects[project.ID] = *project
	return nil
}

func (m *memoryProjectRepo) Save(ctx context.Context, project *models.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	project.UpdatedAt = time.Now()
	m.projects[project.ID] = *project
	return nil
}

func (m *memoryProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Project, error) {
	m.getCalls++
	project, ok := m.projects[id]
	if !ok {
		return models.Project{}, gorm.ErrRecordNotFound
	}
	return project, nil
}

func (m *memoryProjectRepo) GetDetailed(ctx context.Context, id uuid.UUID) (models.Project, error) {
	return m.GetByID(ctx, id)
}

func (m *memoryProjectRepo) ListVisible(ctx context.Context, viewer authz.Identity) ([]models.Project, error) {
	var visible []models.Project
	for _, project := range m.projects {
		switch viewer.Role {
		case models.RoleProjectManager:
			if project.ManagerID == viewer.UserID {
				visible = append(visible, project)
			}
		case models.RoleEngineer:
			if project.HasEngineer(viewer.UserID) {
				visible = append(visible, project)
			}
		case models.RoleClient:
			if project.ClientID == viewer.UserID {
				visible = append(visible, project)
			}
		}
	}
	return visible, nil
}

func (m *memoryProjectRepo) AppendEngineer(ctx context.Context, project *models.Project, engineer models.User) error {
	stored, ok := m.projects[project.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Engineers = append(stored.Engineers, engineer)
	m.projects[project.ID] = stored
	project.Engineers = stored.Engineers
	return nil
}

func (m *memoryProjectRepo) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.projects[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.projects, id)
	return nil
}

// memoryActivityRepo is an in-memory ActivityRepository. It mirrors the
// transactional pairing of the real one: when failLog is set, the entity
// write is rolled back together with the refused log append.
type memoryActivityRepo struct {
	activities map[uuid.UUID]models.Activity
	logs       *memoryLogRepo
	failLog    bool
}

func newMemoryActivityRepo(logs *memoryLogRepo, activities ...models.Activity) *memoryActivityRepo {
	repo := &memoryActivityRepo{activities: make(map[uuid.UUID]models.Activity), logs: logs}
	for _, activity := range activities {
		repo.activities[activity.ID] = activity
	}
	return repo
}

func (m *memoryActivityRepo) CreateWithLog(ctx context.Context, activity *models.Activity, log *models.ActivityLog) error {
	if m.failLog {
		return errLogAppendFailed
	}
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	activity.CreatedAt = time.Now()
	activity.UpdatedAt = activity.CreatedAt
	m.activities[activity.ID] = *activity

	log.ActivityID = &activity.ID
	log.ProjectID = activity.ProjectID
	return m.logs.Append(ctx, log)
}

func (m *memoryActivityRepo) SaveWithLog(ctx context.Context, activity *models.Activity, log *models.ActivityLog) error {
	if m.failLog {
		return errLogAppendFailed
	}
	if _, ok := m.activities[activity.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	activity.UpdatedAt = time.Now()
	m.activities[activity.ID] = *activity

	log.ActivityID = &activity.ID
	log.ProjectID = activity.ProjectID
	return m.logs.Append(ctx, log)
}

func (m *memoryActivityRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	activity, ok := m.activities[id]
	if !ok {
		return models.Activity{}, gorm.ErrRecordNotFound
	}
	return activity, nil
}

func (m *memoryActivityRepo) GetDetailed(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	return m.GetByID(ctx, id)
}

func (m *memoryActivityRepo) ListVisible(ctx context.Context, viewer authz.Identity, projectID *uuid.UUID) ([]models.Activity, error) {
	var visible []models.Activity
	for _, activity := range m.activities {
		if projectID != nil && activity.ProjectID != *projectID {
			continue
		}
		project := activity.Project
		if project == nil {
			continue
		}
		switch viewer.Role {
		case models.RoleProjectManager:
			if project.ManagerID == viewer.UserID {
				visible = append(visible, activity)
			}
		case models.RoleEngineer:
			if project.HasEngineer(viewer.UserID) {
				visible = append(visible, activity)
			}
		case models.RoleClient:
			if project.ClientID == viewer.UserID {
				visible = append(visible, activity)
			}
		}
	}
	return visible, nil
}

func (m *memoryActivityRepo) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.activities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.activities, id)
	m.logs.dropByActivity(id)
	return nil
}

func (m *memoryActivityRepo) CountByStatus(ctx context.Context, projectID uuid.UUID) (map[models.ActivityStatus]int64, error) {
	counts := make(map[models.ActivityStatus]int64)
	for _, activity := range m.activities {
		if activity.ProjectID == projectID {
			counts[activity.Status]++
		}
	}
	return counts, nil
}

// memoryLogRepo is an in-memory ActivityLogRepository.
type memoryLogRepo struct {
	entries     []models.ActivityLog
	listCalls   int
	appendCalls int
}

func (m *memoryLogRepo) Append(ctx context.Context, entry *models.ActivityLog) error {
	m.appendCalls++
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Timestamp = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryLogRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	m.listCalls++
	var entries []models.ActivityLog
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].ProjectID == projectID {
			entries = append(entries, m.entries[i])
		}
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (m *memoryLogRepo) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	for i := len(m.entries) - 1; i >= 0; i-- {
		entry := m.entries[i]
		if entry.ActivityID != nil && *entry.ActivityID == activityID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *memoryLogRepo) dropByActivity(activityID uuid.UUID) {
	kept := m.entries[:0]
	for _, entry := range m.entries {
		if entry.ActivityID == nil || *entry.ActivityID != activityID {
			kept = append(kept, entry)
		}
	}
	m.entries = kept
}
