package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LogAction tags the kind of mutation an audit entry records.
type LogAction string

const (
	LogActionCreated      LogAction = "CREATED"
	LogActionUpdate       LogAction = "UPDATE"
	LogActionStatusChange LogAction = "STATUS_CHANGE"
	LogActionFeedback     LogAction = "FEEDBACK"
)

// Valid reports whether the action is a member of the closed enumeration.
func (a LogAction) Valid() bool {
	switch a {
	case LogActionCreated, LogActionUpdate, LogActionStatusChange, LogActionFeedback:
		return true
	}
	return false
}

// ActivityLog is an append-only audit entry. Entries are never edited after
// creation and disappear only when their parent project or activity is
// destroyed. ActivityID is nullable so project-level feedback can outlive a
// deleted activity.
type ActivityLog struct {
	ID       uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Action   LogAction         `gorm:"size:32;not null" json:"action"`
	Details  string            `gorm:"type:text" json:"details"`
	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`

	ProjectID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	ActivityID    *uuid.UUID `gorm:"type:uuid;index" json:"activity_id,omitempty"`
	PerformedByID uuid.UUID  `gorm:"type:uuid;not null" json:"performed_by_id"`
	PerformedBy   *User      `gorm:"foreignKey:PerformedByID" json:"performed_by,omitempty"`

	Timestamp time.Time `gorm:"autoCreateTime;not null;index" json:"timestamp"`
}

// BeforeCreate assigns a fresh identifier when none was provided.
func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
