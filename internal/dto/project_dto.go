package dto

import (
	"github.com/taskforge/taskforge-api/internal/models"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// ProjectCreateRequest carries the payload for project creation.
type ProjectCreateRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=255"`
	Description   string   `json:"description,omitempty"`
	StartDate     string   `json:"start_date" validate:"required"`
	ClientID      string   `json:"client_id" validate:"required,uuid"`
	EstimateValue *float64 `json:"estimate_value,omitempty" validate:"omitempty,gte=0"`
	EstimateUnit  string   `json:"estimate_unit,omitempty"`
}

// ProjectUpdateRequest is an explicit patch: nil means "leave unchanged",
// a non-nil pointer overwrites, including with the zero value.
type ProjectUpdateRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string  `json:"description,omitempty"`
	StartDate     *string  `json:"start_date,omitempty"`
	ClientID      *string  `json:"client_id,omitempty" validate:"omitempty,uuid"`
	EstimateValue *float64 `json:"estimate_value,omitempty" validate:"omitempty,gte=0"`
	EstimateUnit  *string  `json:"estimate_unit,omitempty"`
	Progress      *int     `json:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// ProjectStatusRequest carries a status change.
type ProjectStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AddEngineerRequest carries the engineer to add to the roster.
type AddEngineerRequest struct {
	EngineerID string `json:"engineer_id" validate:"required,uuid"`
}

// ProjectResponse is the public projection of a project.
type ProjectResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	StartDate     string         `json:"start_date"`
	Status        string         `json:"status"`
	EstimateValue *float64       `json:"estimate_value,omitempty"`
	EstimateUnit  string         `json:"estimate_unit"`
	Progress      int            `json:"progress"`
	Manager       *UserResponse  `json:"manager,omitempty"`
	Client        *UserResponse  `json:"client,omitempty"`
	Engineers     []UserResponse `json:"engineers"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// ProjectDetailResponse additionally carries the project's activities with
// their audit trails, newest first at every level.
type ProjectDetailResponse struct {
	ProjectResponse
	Activities []ActivityResponse    `json:"activities"`
	Logs       []ActivityLogResponse `json:"logs"`
}

// NewProjectResponse maps a project model to its public projection.
func NewProjectResponse(project models.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:            project.ID.String(),
		Name:          project.Name,
		Description:   project.Description,
		StartDate:     project.StartDate.UTC().Format("2006-01-02"),
		Status:        string(project.Status),
		EstimateValue: project.EstimateValue,
		EstimateUnit:  string(project.EstimateUnit),
		Progress:      project.Progress,
		Engineers:     NewUserResponseSlice(project.Engineers),
		CreatedAt:     project.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:     project.UpdatedAt.UTC().Format(timeFormat),
	}
	if project.Manager != nil {
		manager := NewUserResponse(*project.Manager)
		resp.Manager = &manager
	}
	if project.Client != nil {
		client := NewUserResponse(*project.Client)
		resp.Client = &client
	}
	return resp
}

// NewProjectResponseSlice maps a slice of project models.
func NewProjectResponseSlice(projects []models.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		responses = append(responses, NewProjectResponse(project))
	}
	return responses
}

// NewProjectDetailResponse maps a project together with its eager-loaded
// activities and logs.
func NewProjectDetailResponse(project models.Project) ProjectDetailResponse {
	return ProjectDetailResponse{
		ProjectResponse: NewProjectResponse(project),
		Activities:      NewActivityResponseSlice(project.Activities),
		Logs:            NewActivityLogResponseSlice(project.Logs),
	}
}
