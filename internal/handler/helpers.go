package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/middleware"
	"github.com/taskforge/taskforge-api/internal/service"
	"github.com/taskforge/taskforge-api/internal/utils"
)

// FileUploader abstracts the blob store: it accepts an image payload and
// returns a public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errors.New("invalid identifier")
	}
	return id, nil
}

func requireIdentity(c *fiber.Ctx) (authz.Identity, error) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return authz.Identity{}, utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	return identity, nil
}

// respondServiceError maps service and authorization errors onto HTTP
// statuses. Role mismatches and ownership failures both surface as 403; the
// reason string tells them apart.
func respondServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var denied *authz.DeniedError
	var validationErrors validator.ValidationErrors

	switch {
	case errors.As(err, &denied):
		return utils.SendError(c, fiber.StatusForbidden, denied.Reason)
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrActivityNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidEstimate),
		errors.Is(err, service.ErrInvalidStartDate):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.Error().Err(err).Str("correlation_id", middleware.GetCorrelationID(c)).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// uploadImage sniffs the payload and pushes it to the blob store before any
// entity mutation starts. Only image content is accepted.
func uploadImage(c *fiber.Ctx, uploader FileUploader, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to inspect image: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", errNotAnImage
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind image: %w", err)
	}

	url, err := uploader.Upload(c.Context(), file.Filename, src)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return url, nil
}

var errNotAnImage = errors.New("uploaded file is not an image")

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
