package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityStatus is the closed set of activity states. Transitions are
// unrestricted for non-client callers; the workflow is linear in practice.
type ActivityStatus string

const (
	ActivityStatusOpen       ActivityStatus = "OPEN"
	ActivityStatusInProgress ActivityStatus = "IN_PROGRESS"
	ActivityStatusReview     ActivityStatus = "REVIEW"
	ActivityStatusDone       ActivityStatus = "DONE"
)

// Valid reports whether the status is a member of the closed enumeration.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityStatusOpen, ActivityStatusInProgress, ActivityStatusReview, ActivityStatusDone:
		return true
	}
	return false
}

// Activity is a unit of work scoped to exactly one project, optionally
// assigned to one engineer. Destroyed together with its parent project.
type Activity struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"size:512" json:"image_url,omitempty"`
	Issue       string         `gorm:"type:text" json:"issue,omitempty"`
	Status      ActivityStatus `gorm:"size:32;not null" json:"status"`

	ProjectID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	Project    *Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	Assignee   *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`

	Logs []ActivityLog `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh identifier when none was provided.
func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
