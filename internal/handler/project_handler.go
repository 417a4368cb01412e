package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskforge/taskforge-api/internal/dto"
	"github.com/taskforge/taskforge-api/internal/middleware"
	"github.com/taskforge/taskforge-api/internal/models"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/utils"
)

// ProjectHandler wires project lifecycle routes.
type ProjectHandler struct {
	projects  service.ProjectService
	dashboard service.DashboardService
	logger    zerolog.Logger
}

// NewProjectHandler constructs the handler.
func NewProjectHandler(projects service.ProjectService, dashboard service.DashboardService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects:  projects,
		dashboard: dashboard,
		logger:    logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register attaches project endpoints to the router group. Manager-only
// routes carry an early role gate; the service layer remains the source of
// truth for ownership decisions.
func (h *ProjectHandler) Register(router fiber.Router) {
	managerOnly := middleware.RequireRole(models.RoleProjectManager)

	router.Post("", managerOnly, h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", managerOnly, h.update)
	router.Patch("/:id/status", managerOnly, h.updateStatus)
	router.Post("/:id/engineers", managerOnly, h.addEngineer)
	router.Get("/:id/dashboard", h.getDashboard)
	router.Delete("/:id", managerOnly, h.delete)
}

func (h *ProjectHandler) create(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var payload dto.ProjectCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.projects.Create(c.Context(), identity, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendCreated(c, "project created", project)
}

func (h *ProjectHandler) list(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	projects, err := h.projects.List(c.Context(), identity)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "projects retrieved", projects)
}

func (h *ProjectHandler) get(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	project, err := h.projects.Get(c.Context(), identity, id)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "project retrieved", project)
}

func (h *ProjectHandler) update(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ProjectUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.projects.Update(c.Context(), identity, id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "project updated", project)
}

func (h *ProjectHandler) updateStatus(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ProjectStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.projects.UpdateStatus(c.Context(), identity, id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "project status updated", project)
}

func (h *ProjectHandler) addEngineer(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AddEngineerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.projects.AddEngineer(c.Context(), identity, id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "engineer added", project)
}

func (h *ProjectHandler) getDashboard(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	dashboard, err := h.dashboard.GetProjectDashboard(c.Context(), identity, id)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}

func (h *ProjectHandler) delete(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.projects.Delete(c.Context(), identity, id); err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "project deleted", fiber.Map{"id": id})
}
