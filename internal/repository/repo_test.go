package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Project{}, &models.Activity{}, &models.ActivityLog{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProject(t *testing.T, db *gorm.DB, name string, manager, client models.User) models.Project {
	t.Helper()
	project := models.Project{
		Name:      name,
		StartDate: time.Now(),
		Status:    models.ProjectStatusPlanning,
		ManagerID: manager.ID,
		ClientID:  client.ID,
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func TestUserRepositoryDuplicateUsernameTranslates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	first := models.User{Username: "alice", PasswordHash: "x", Role: models.RoleClient}
	require.NoError(t, repo.Create(context.Background(), &first))

	dup := models.User{Username: "alice", PasswordHash: "y", Role: models.RoleClient}
	err := repo.Create(context.Background(), &dup)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestProjectRepositoryListVisiblePerRole(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProjectRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	otherManager := seedUser(t, db, "mallory", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	otherClient := seedUser(t, db, "trent", models.RoleClient)
	engineer := seedUser(t, db, "eve", models.RoleEngineer)

	mine := seedProject(t, db, "Mine", manager, client)
	require.NoError(t, repo.AppendEngineer(context.Background(), &mine, engineer))
	seedProject(t, db, "Other", otherManager, otherClient)

	cases := []struct {
		name   string
		viewer authz.Identity
		want   int
	}{
		{"manager sees own", authz.Identity{UserID: manager.ID, Role: models.RoleProjectManager}, 1},
		{"engineer sees roster", authz.Identity{UserID: engineer.ID, Role: models.RoleEngineer}, 1},
		{"client sees commissioned", authz.Identity{UserID: client.ID, Role: models.RoleClient}, 1},
		{"unrelated engineer sees none", authz.Identity{UserID: uuid.New(), Role: models.RoleEngineer}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			projects, err := repo.ListVisible(context.Background(), tc.viewer)
			require.NoError(t, err)
			require.Len(t, projects, tc.want)
			if tc.want == 1 {
				require.Equal(t, "Mine", projects[0].Name)
			}
		})
	}
}

func TestProjectRepositoryDeleteCascadeLeavesNoOrphans(t *testing.T) {
	db := setupTestDB(t)
	projects := NewProjectRepository(db)
	activities := NewActivityRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	engineer := seedUser(t, db, "eve", models.RoleEngineer)

	project := seedProject(t, db, "Doomed", manager, client)
	require.NoError(t, projects.AppendEngineer(context.Background(), &project, engineer))

	activity := models.Activity{Name: "Pour foundation", Status: models.ActivityStatusOpen, ProjectID: project.ID}
	log := models.ActivityLog{Action: models.LogActionCreated, Details: "Activity created", PerformedByID: manager.ID}
	require.NoError(t, activities.CreateWithLog(context.Background(), &activity, &log))

	require.NoError(t, projects.DeleteCascade(context.Background(), project.ID))

	var activityCount, logCount, rosterCount int64
	require.NoError(t, db.Model(&models.Activity{}).Where("project_id = ?", project.ID).Count(&activityCount).Error)
	require.NoError(t, db.Model(&models.ActivityLog{}).Where("project_id = ?", project.ID).Count(&logCount).Error)
	require.NoError(t, db.Table("project_engineers").Where("project_id = ?", project.ID).Count(&rosterCount).Error)
	require.Zero(t, activityCount)
	require.Zero(t, logCount)
	require.Zero(t, rosterCount)

	err := projects.DeleteCascade(context.Background(), project.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestActivityRepositoryPairsMutationWithLog(t *testing.T) {
	db := setupTestDB(t)
	activities := NewActivityRepository(db)
	logs := NewActivityLogRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	project := seedProject(t, db, "Warehouse rebuild", manager, client)

	activity := models.Activity{Name: "Pour foundation", Status: models.ActivityStatusOpen, ProjectID: project.ID}
	created := models.ActivityLog{Action: models.LogActionCreated, Details: "Activity created", PerformedByID: manager.ID}
	require.NoError(t, activities.CreateWithLog(context.Background(), &activity, &created))
	require.NotNil(t, created.ActivityID)
	require.Equal(t, activity.ID, *created.ActivityID)
	require.Equal(t, project.ID, created.ProjectID)

	activity.Status = models.ActivityStatusInProgress
	change := models.ActivityLog{Action: models.LogActionStatusChange, Details: "Status changed to IN_PROGRESS", PerformedByID: manager.ID}
	require.NoError(t, activities.SaveWithLog(context.Background(), &activity, &change))

	trail, err := logs.ListByActivity(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)

	// Auto-assigned timestamps order the trail newest-first: the status
	// change comes back before the creation entry.
	require.Equal(t, models.LogActionStatusChange, trail[0].Action)
	require.Equal(t, models.LogActionCreated, trail[1].Action)
	require.False(t, trail[0].Timestamp.Before(trail[1].Timestamp))
}

func TestActivityRepositoryListVisibleNarrowsByProject(t *testing.T) {
	db := setupTestDB(t)
	projects := NewProjectRepository(db)
	activities := NewActivityRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	engineer := seedUser(t, db, "eve", models.RoleEngineer)

	first := seedProject(t, db, "First", manager, client)
	second := seedProject(t, db, "Second", manager, client)
	require.NoError(t, projects.AppendEngineer(context.Background(), &first, engineer))

	for _, projectID := range []uuid.UUID{first.ID, second.ID} {
		activity := models.Activity{Name: "Work", Status: models.ActivityStatusOpen, ProjectID: projectID}
		log := models.ActivityLog{Action: models.LogActionCreated, Details: "Activity created", PerformedByID: manager.ID}
		require.NoError(t, activities.CreateWithLog(context.Background(), &activity, &log))
	}

	viewer := authz.Identity{UserID: engineer.ID, Role: models.RoleEngineer}

	visible, err := activities.ListVisible(context.Background(), viewer, nil)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, first.ID, visible[0].ProjectID)

	// The filter narrows visibility, it never widens it.
	none, err := activities.ListVisible(context.Background(), viewer, &second.ID)
	require.NoError(t, err)
	require.Empty(t, none)

	managerView, err := activities.ListVisible(context.Background(), authz.Identity{UserID: manager.ID, Role: models.RoleProjectManager}, nil)
	require.NoError(t, err)
	require.Len(t, managerView, 2)
}

func TestActivityRepositoryDeleteCascadeRemovesTrail(t *testing.T) {
	db := setupTestDB(t)
	activities := NewActivityRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	project := seedProject(t, db, "Warehouse rebuild", manager, client)

	activity := models.Activity{Name: "Pour foundation", Status: models.ActivityStatusOpen, ProjectID: project.ID}
	log := models.ActivityLog{Action: models.LogActionCreated, Details: "Activity created", PerformedByID: manager.ID}
	require.NoError(t, activities.CreateWithLog(context.Background(), &activity, &log))

	require.NoError(t, activities.DeleteCascade(context.Background(), activity.ID))

	var logCount int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Where("activity_id = ?", activity.ID).Count(&logCount).Error)
	require.Zero(t, logCount)

	err := activities.DeleteCascade(context.Background(), activity.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestActivityLogRepositoryListsNewestFirstWithLimit(t *testing.T) {
	db := setupTestDB(t)
	logs := NewActivityLogRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	project := seedProject(t, db, "Warehouse rebuild", manager, client)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := models.ActivityLog{
			Action:        models.LogActionFeedback,
			Details:       fmt.Sprintf("entry %d", i),
			ProjectID:     project.ID,
			PerformedByID: manager.ID,
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	entries, err := logs.ListByProject(context.Background(), project.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "entry 2", entries[0].Details)
	require.Equal(t, "entry 1", entries[1].Details)
	require.NotNil(t, entries[0].PerformedBy)
	require.Equal(t, "alice", entries[0].PerformedBy.Username)
}

func TestActivityRepositoryCountByStatus(t *testing.T) {
	db := setupTestDB(t)
	activities := NewActivityRepository(db)

	manager := seedUser(t, db, "alice", models.RoleProjectManager)
	client := seedUser(t, db, "carol", models.RoleClient)
	project := seedProject(t, db, "Warehouse rebuild", manager, client)

	statuses := []models.ActivityStatus{
		models.ActivityStatusDone,
		models.ActivityStatusDone,
		models.ActivityStatusOpen,
	}
	for i, status := range statuses {
		activity := models.Activity{Name: fmt.Sprintf("task %d", i), Status: status, ProjectID: project.ID}
		log := models.ActivityLog{Action: models.LogActionCreated, Details: "Activity created", PerformedByID: manager.ID}
		require.NoError(t, activities.CreateWithLog(context.Background(), &activity, &log))
	}

	counts, err := activities.CountByStatus(context.Background(), project.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[models.ActivityStatusDone])
	require.Equal(t, int64(1), counts[models.ActivityStatusOpen])
}
