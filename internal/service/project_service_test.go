package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/dto"
	"github.com/taskforge/taskforge-api/internal/models"
)

func newProjectFixture() (manager, client, engineer models.User) {
	manager = models.User{ID: uuid.New(), Username: "alice", Role: models.RoleProjectManager}
	client = models.User{ID: uuid.New(), Username: "carol", Role: models.RoleClient}
	engineer = models.User{ID: uuid.New(), Username: "eve", Role: models.RoleEngineer}
	return manager, client, engineer
}

func identityOf(user models.User) authz.Identity {
	return authz.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func TestProjectCreateDefaultsToPlanning(t *testing.T) {
	manager, client, _ := newProjectFixture()
	users := newMemoryUserRepo(manager, client)
	projects := newMemoryProjectRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	created, err := svc.Create(context.Background(), identityOf(manager), dto.ProjectCreateRequest{
		Name:      "Warehouse rebuild",
		StartDate: "2026-03-01",
		ClientID:  client.ID.String(),
	})
	require.NoError(t, err)
	require.Equal(t, string(models.ProjectStatusPlanning), created.Status)
	require.Equal(t, string(models.EstimateUnitDays), created.EstimateUnit)
	require.Equal(t, "2026-03-01", created.StartDate)
}

func TestProjectCreateDeniedForNonManagers(t *testing.T) {
	manager, client, engineer := newProjectFixture()
	users := newMemoryUserRepo(manager, client, engineer)
	projects := newMemoryProjectRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	payload := dto.ProjectCreateRequest{
		Name:      "Warehouse rebuild",
		StartDate: "2026-03-01",
		ClientID:  client.ID.String(),
	}

	for _, caller := range []models.User{engineer, client} {
		_, err := svc.Create(context.Background(), identityOf(caller), payload)
		require.ErrorIs(t, err, authz.ErrDenied)
	}
	require.Empty(t, projects.projects)
}

func TestProjectCreateTreatsUnknownClientIDAsNotFound(t *testing.T) {
	manager, client, _ := newProjectFixture()
	users := newMemoryUserRepo(manager, client)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(newMemoryProjectRepo(), users, validate, zerolog.Nop())

	// Well-formed ids of any UUID version pass validation; an id that does
	// not resolve to a user is a lookup failure, not a malformed request.
	v1ID := "00000000-0000-1000-8000-000000000000"
	_, err := svc.Create(context.Background(), identityOf(manager), dto.ProjectCreateRequest{
		Name:      "Warehouse rebuild",
		StartDate: "2026-03-01",
		ClientID:  v1ID,
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestProjectCreateRejectsInvalidStartDate(t *testing.T) {
	manager, client, _ := newProjectFixture()
	users := newMemoryUserRepo(manager, client)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(newMemoryProjectRepo(), users, validate, zerolog.Nop())

	_, err := svc.Create(context.Background(), identityOf(manager), dto.ProjectCreateRequest{
		Name:      "Warehouse rebuild",
		StartDate: "next tuesday",
		ClientID:  client.ID.String(),
	})
	require.ErrorIs(t, err, ErrInvalidStartDate)
}

func TestProjectUpdateDeniedForForeignManager(t *testing.T) {
	manager, client, _ := newProjectFixture()
	other := models.User{ID: uuid.New(), Username: "mallory", Role: models.RoleProjectManager}
	project := models.Project{ID: uuid.New(), Name: "Warehouse rebuild", ManagerID: manager.ID, ClientID: client.ID}

	users := newMemoryUserRepo(manager, client, other)
	projects := newMemoryProjectRepo(project)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	_, err := svc.Update(context.Background(), identityOf(other), project.ID, dto.ProjectUpdateRequest{
		Name: strPtr("Hijacked"),
	})
	require.ErrorIs(t, err, authz.ErrDenied)

	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "not the manager of this project", denied.Reason)
	require.Equal(t, "Warehouse rebuild", projects.projects[project.ID].Name)
}

func TestProjectUpdatePatchesOnlyProvidedFields(t *testing.T) {
	manager, client, _ := newProjectFixture()
	project := models.Project{
		ID:          uuid.New(),
		Name:        "Warehouse rebuild",
		Description: "initial",
		ManagerID:   manager.ID,
		ClientID:    client.ID,
		Status:      models.ProjectStatusInProgress,
	}

	users := newMemoryUserRepo(manager, client)
	projects := newMemoryProjectRepo(project)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	updated, err := svc.Update(context.Background(), identityOf(manager), project.ID, dto.ProjectUpdateRequest{
		Description: strPtr(""),
	})
	require.NoError(t, err)
	require.Equal(t, "Warehouse rebuild", updated.Name)
	require.Equal(t, "", updated.Description)
	require.Equal(t, string(models.ProjectStatusInProgress), updated.Status)
}

func TestProjectUpdateStatusRejectsUnknownStatus(t *testing.T) {
	manager, client, _ := newProjectFixture()
	project := models.Project{ID: uuid.New(), Name: "Warehouse rebuild", ManagerID: manager.ID, ClientID: client.ID}

	users := newMemoryUserRepo(manager, client)
	projects := newMemoryProjectRepo(project)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	_, err := svc.UpdateStatus(context.Background(), identityOf(manager), project.ID, dto.ProjectStatusRequest{
		Status: "SHIPPED",
	})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestProjectAddEngineerIsIdempotent(t *testing.T) {
	manager, client, engineer := newProjectFixture()
	project := models.Project{ID: uuid.New(), Name: "Warehouse rebuild", ManagerID: manager.ID, ClientID: client.ID}

	users := newMemoryUserRepo(manager, client, engineer)
	projects := newMemoryProjectRepo(project)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	payload := dto.AddEngineerRequest{EngineerID: engineer.ID.String()}

	first, err := svc.AddEngineer(context.Background(), identityOf(manager), project.ID, payload)
	require.NoError(t, err)
	require.Len(t, first.Engineers, 1)

	second, err := svc.AddEngineer(context.Background(), identityOf(manager), project.ID, payload)
	require.NoError(t, err)
	require.Len(t, second.Engineers, 1)
}

func TestProjectGetDeniedForUnrelatedClient(t *testing.T) {
	manager, client, _ := newProjectFixture()
	stranger := models.User{ID: uuid.New(), Username: "trent", Role: models.RoleClient}
	project := models.Project{ID: uuid.New(), Name: "Warehouse rebuild", ManagerID: manager.ID, ClientID: client.ID}

	users := newMemoryUserRepo(manager, client, stranger)
	projects := newMemoryProjectRepo(project)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	_, err := svc.Get(context.Background(), identityOf(stranger), project.ID)
	require.ErrorIs(t, err, authz.ErrDenied)

	_, err = svc.Get(context.Background(), identityOf(client), project.ID)
	require.NoError(t, err)
}

func TestProjectListShowsOnlyVisibleProjects(t *testing.T) {
	manager, client, engineer := newProjectFixture()
	mine := models.Project{ID: uuid.New(), Name: "Mine", ManagerID: manager.ID, ClientID: client.ID, Engineers: []models.User{engineer}}
	other := models.Project{ID: uuid.New(), Name: "Other", ManagerID: uuid.New(), ClientID: uuid.New()}

	users := newMemoryUserRepo(manager, client, engineer)
	projects := newMemoryProjectRepo(mine, other)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	for _, caller := range []models.User{manager, client, engineer} {
		visible, err := svc.List(context.Background(), identityOf(caller))
		require.NoError(t, err)
		require.Len(t, visible, 1)
		require.Equal(t, "Mine", visible[0].Name)
	}
}

func TestProjectDeleteRemovesProject(t *testing.T) {
	manager, client, _ := newProjectFixture()
	project := models.Project{ID: uuid.New(), Name: "Warehouse rebuild", ManagerID: manager.ID, ClientID: client.ID}

	users := newMemoryUserRepo(manager, client)
	projects := newMemoryProjectRepo(project)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewProjectService(projects, users, validate, zerolog.Nop())

	require.NoError(t, svc.Delete(context.Background(), identityOf(manager), project.ID))
	require.Empty(t, projects.projects)

	err := svc.Delete(context.Background(), identityOf(manager), project.ID)
	require.ErrorIs(t, err, ErrProjectNotFound)
}
