package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskforge/taskforge-api/internal/dto"
	"github.com/taskforge/taskforge-api/internal/middleware"
	"github.com/taskforge/taskforge-api/internal/models"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/utils"
)

// ActivityHandler wires activity lifecycle routes. Image uploads are pushed
// to the blob store before the service is invoked: a failed upload aborts the
// request with no entity change.
type ActivityHandler struct {
	service  service.ActivityService
	uploader FileUploader
	logger   zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, uploader FileUploader, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service:  service,
		uploader: uploader,
		logger:   logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity endpoints to the router group. Routes closed to
// clients carry an early role gate; ownership decisions stay in the service.
func (h *ActivityHandler) Register(router fiber.Router) {
	nonClient := middleware.RequireRole(models.RoleProjectManager, models.RoleEngineer)

	router.Post("", nonClient, h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", nonClient, h.update)
	router.Patch("/:id/status", nonClient, h.updateStatus)
	router.Post("/:id/feedback", h.addFeedback)
	router.Delete("/:id", nonClient, h.delete)
}

func (h *ActivityHandler) create(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var payload dto.ActivityCreateRequest
	if form, err := c.MultipartForm(); err == nil && form != nil {
		payload.ProjectID, _ = formValue(form, "project_id")
		payload.Name, _ = formValue(form, "name")
		payload.Description, _ = formValue(form, "description")
		payload.Issue, _ = formValue(form, "issue")

		if files := form.File["image"]; len(files) > 0 {
			url, err := uploadImage(c, h.uploader, files[0])
			if err != nil {
				return h.respondUploadError(c, err)
			}
			payload.ImageURL = url
		}
	} else if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	activity, err := h.service.Create(c.Context(), identity, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendCreated(c, "activity created", activity)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var projectFilter *uuid.UUID
	if raw := c.Query("projectId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid project filter")
		}
		projectFilter = &id
	}

	activities, err := h.service.List(c.Context(), identity, projectFilter)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activities retrieved", activities)
}

func (h *ActivityHandler) get(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	activity, err := h.service.Get(c.Context(), identity, id)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity retrieved", activity)
}

func (h *ActivityHandler) update(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ActivityUpdateRequest
	if form, err := c.MultipartForm(); err == nil && form != nil {
		// A field overwrites only when present in the form; an empty value
		// is a deliberate clear, not a skip.
		if value, ok := formValue(form, "name"); ok {
			payload.Name = &value
		}
		if value, ok := formValue(form, "description"); ok {
			payload.Description = &value
		}
		if value, ok := formValue(form, "issue"); ok {
			payload.Issue = &value
		}

		if files := form.File["image"]; len(files) > 0 {
			url, err := uploadImage(c, h.uploader, files[0])
			if err != nil {
				return h.respondUploadError(c, err)
			}
			payload.ImageURL = &url
		}
	} else if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	activity, err := h.service.Update(c.Context(), identity, id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity updated", activity)
}

func (h *ActivityHandler) updateStatus(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ActivityStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	activity, err := h.service.UpdateStatus(c.Context(), identity, id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity status updated", activity)
}

func (h *ActivityHandler) addFeedback(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.AddFeedback(c.Context(), identity, id, payload)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "feedback added", result)
}

func (h *ActivityHandler) delete(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), identity, id); err != nil {
		return respondServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity deleted", fiber.Map{"id": id})
}

func (h *ActivityHandler) respondUploadError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errNotAnImage) {
		return utils.SendError(c, fiber.StatusBadRequest, errNotAnImage.Error())
	}
	h.logger.Error().Err(err).Msg("image upload failed")
	return utils.SendError(c, fiber.StatusBadRequest, "image upload failed")
}
