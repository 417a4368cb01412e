package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus is the closed set of project states. Any member is reachable
// from any other on a manager-initiated change; there is no forbidden-transition table.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "PLANNING"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusOnHold     ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusCancelled  ProjectStatus = "CANCELLED"
)

// Valid reports whether the status is a member of the closed enumeration.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// EstimateUnit qualifies the optional effort estimate magnitude.
type EstimateUnit string

const (
	EstimateUnitHours  EstimateUnit = "HOURS"
	EstimateUnitDays   EstimateUnit = "DAYS"
	EstimateUnitWeeks  EstimateUnit = "WEEKS"
	EstimateUnitMonths EstimateUnit = "MONTHS"
)

// Valid reports whether the unit is a member of the closed enumeration.
func (u EstimateUnit) Valid() bool {
	switch u {
	case EstimateUnitHours, EstimateUnitDays, EstimateUnitWeeks, EstimateUnitMonths:
		return true
	}
	return false
}

// Project is owned by exactly one manager, commissioned by exactly one client
// and worked by a set of engineers. It strong-owns its activities and,
// transitively, their logs.
type Project struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string        `gorm:"size:255;not null" json:"name"`
	Description   string        `gorm:"type:text" json:"description"`
	StartDate     time.Time     `gorm:"not null" json:"start_date"`
	Status        ProjectStatus `gorm:"size:32;not null;default:PLANNING" json:"status"`
	EstimateValue *float64      `json:"estimate_value,omitempty"`
	EstimateUnit  EstimateUnit  `gorm:"size:16;not null;default:DAYS" json:"estimate_unit"`
	// Progress is stored, not derived from activity completion.
	Progress int `gorm:"not null;default:0" json:"progress"`

	ManagerID uuid.UUID `gorm:"type:uuid;not null;index" json:"manager_id"`
	Manager   *User     `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client    *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Engineers []User    `gorm:"many2many:project_engineers" json:"engineers,omitempty"`

	Activities []Activity    `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
	Logs       []ActivityLog `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh identifier when none was provided.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasEngineer reports whether the user is already on the roster.
func (p *Project) HasEngineer(userID uuid.UUID) bool {
	for _, e := range p.Engineers {
		if e.ID == userID {
			return true
		}
	}
	return false
}
