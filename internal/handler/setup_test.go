package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-api/internal/config"
	"github.com/taskforge/taskforge-api/internal/handler"
	"github.com/taskforge/taskforge-api/internal/middleware"
	"github.com/taskforge/taskforge-api/internal/models"
	"github.com/taskforge/taskforge-api/internal/repository"
	"github.com/taskforge/taskforge-api/internal/router"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/utils"
)

// Test identity headers consumed by the fake JWT middleware below.
const (
	headerTestUser = "X-Test-User"
	headerTestRole = "X-Test-Role"
)

type testUploader struct {
	err error
}

func (u *testUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return "https://images.test/" + name, nil
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Project{}, &models.Activity{}, &models.ActivityLog{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	logRepo := repository.NewActivityLogRepository(db)

	authService := service.NewAuthService(userRepo, validate, "test-secret", time.Hour, logger)
	userService := service.NewUserService(userRepo, logger)
	projectService := service.NewProjectService(projectRepo, userRepo, validate, logger)
	activityService := service.NewActivityService(activityRepo, projectRepo, logRepo, validate, models.ActivityStatusOpen, logger)
	dashboardService := service.NewDashboardService(projectRepo, activityRepo, logRepo, nil, time.Minute, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "test-secret"}, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, logger),
		UserHandler:     handler.NewUserHandler(userService, logger),
		ProjectHandler:  handler.NewProjectHandler(projectService, dashboardService, logger),
		ActivityHandler: handler.NewActivityHandler(activityService, &testUploader{}, logger),
		JWTMiddleware:   testIdentityMiddleware(),
	})

	return app, db
}

// testIdentityMiddleware replaces token parsing with identity headers so tests
// can speak as any user without minting tokens.
func testIdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawID := c.Get(headerTestUser)
		if rawID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		c.Locals(middleware.LocalsUserID, userID)
		c.Locals(middleware.LocalsUsername, "tester")
		c.Locals(middleware.LocalsUserRole, models.Role(c.Get(headerTestRole)))
		return c.Next()
	}
}

func asUser(req *http.Request, user models.User) *http.Request {
	req.Header.Set(headerTestUser, user.ID.String())
	req.Header.Set(headerTestRole, string(user.Role))
	return req
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProject(t *testing.T, db *gorm.DB, name string, manager, client models.User, engineers ...models.User) models.Project {
	t.Helper()
	project := models.Project{
		Name:      name,
		StartDate: time.Now(),
		Status:    models.ProjectStatusPlanning,
		ManagerID: manager.ID,
		ClientID:  client.ID,
		Engineers: engineers,
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func seedActivity(t *testing.T, db *gorm.DB, project models.Project, name string, assignee *uuid.UUID) models.Activity {
	t.Helper()
	activity := models.Activity{
		Name:       name,
		Status:     models.ActivityStatusOpen,
		ProjectID:  project.ID,
		AssigneeID: assignee,
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func decodeResponse(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
