package dto

import "github.com/taskforge/taskforge-api/internal/models"

// ActivityCreateRequest carries the payload for activity creation. ImageURL
// is filled by the handler after a successful blob upload, never by clients.
type ActivityCreateRequest struct {
	ProjectID   string `json:"project_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description,omitempty"`
	Issue       string `json:"issue,omitempty"`
	ImageURL    string `json:"-"`
}

// ActivityUpdateRequest is an explicit patch: nil means "leave unchanged".
type ActivityUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Issue       *string `json:"issue,omitempty"`
	ImageURL    *string `json:"-"`
}

// ActivityStatusRequest carries a status change.
type ActivityStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// FeedbackRequest carries a feedback message for an activity.
type FeedbackRequest struct {
	Message string `json:"message" validate:"required,min=1"`
}

// FeedbackResponse acknowledges a recorded feedback entry.
type FeedbackResponse struct {
	Message string `json:"message"`
}

// ActivityResponse is the public projection of an activity.
type ActivityResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	ImageURL    string                `json:"image_url,omitempty"`
	Issue       string                `json:"issue,omitempty"`
	Status      string                `json:"status"`
	ProjectID   string                `json:"project_id"`
	Assignee    *UserResponse         `json:"assignee,omitempty"`
	Logs        []ActivityLogResponse `json:"logs,omitempty"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

// ActivityLogResponse is the public projection of an audit entry.
type ActivityLogResponse struct {
	ID          string                 `json:"id"`
	Action      string                 `json:"action"`
	Details     string                 `json:"details"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ProjectID   string                 `json:"project_id"`
	ActivityID  *string                `json:"activity_id,omitempty"`
	PerformedBy *UserResponse          `json:"performed_by,omitempty"`
	Timestamp   string                 `json:"timestamp"`
}

// NewActivityResponse maps an activity model to its public projection.
func NewActivityResponse(activity models.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:          activity.ID.String(),
		Name:        activity.Name,
		Description: activity.Description,
		ImageURL:    activity.ImageURL,
		Issue:       activity.Issue,
		Status:      string(activity.Status),
		ProjectID:   activity.ProjectID.String(),
		Logs:        NewActivityLogResponseSlice(activity.Logs),
		CreatedAt:   activity.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   activity.UpdatedAt.UTC().Format(timeFormat),
	}
	if activity.Assignee != nil {
		assignee := NewUserResponse(*activity.Assignee)
		resp.Assignee = &assignee
	}
	return resp
}

// NewActivityResponseSlice maps a slice of activity models.
func NewActivityResponseSlice(activities []models.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, NewActivityResponse(activity))
	}
	return responses
}

// NewActivityLogResponse maps an audit entry to its public projection.
func NewActivityLogResponse(log models.ActivityLog) ActivityLogResponse {
	resp := ActivityLogResponse{
		ID:        log.ID.String(),
		Action:    string(log.Action),
		Details:   log.Details,
		Metadata:  log.Metadata,
		ProjectID: log.ProjectID.String(),
		Timestamp: log.Timestamp.UTC().Format(timeFormat),
	}
	if log.ActivityID != nil {
		id := log.ActivityID.String()
		resp.ActivityID = &id
	}
	if log.PerformedBy != nil {
		performer := NewUserResponse(*log.PerformedBy)
		resp.PerformedBy = &performer
	}
	return resp
}

// NewActivityLogResponseSlice maps a slice of audit entries.
func NewActivityLogResponseSlice(logs []models.ActivityLog) []ActivityLogResponse {
	responses := make([]ActivityLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, NewActivityLogResponse(log))
	}
	return responses
}
