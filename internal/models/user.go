package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of user roles. Authorization dispatches on this value,
// so it is never stored or compared as a free-form string.
type Role string

const (
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleEngineer       Role = "ENGINEER"
	RoleClient         Role = "CLIENT"
)

// Valid reports whether the role is a member of the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleProjectManager, RoleEngineer, RoleClient:
		return true
	}
	return false
}

// Specialization tags an engineer with their discipline. Optional, engineers only.
type Specialization string

const (
	SpecializationFrontend  Specialization = "FRONTEND"
	SpecializationBackend   Specialization = "BACKEND"
	SpecializationFullstack Specialization = "FULLSTACK"
	SpecializationDevOps    Specialization = "DEVOPS"
	SpecializationQA        Specialization = "QA"
)

// Valid reports whether the specialization is a member of the closed enumeration.
func (s Specialization) Valid() bool {
	switch s {
	case SpecializationFrontend, SpecializationBackend, SpecializationFullstack,
		SpecializationDevOps, SpecializationQA:
		return true
	}
	return false
}

// User is an account that can manage, commission or execute project work.
// The role is immutable after registration; no role-change operation exists.
type User struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string          `gorm:"size:255;uniqueIndex;not null" json:"username"`
	PasswordHash   string          `gorm:"size:255;not null" json:"-"`
	Role           Role            `gorm:"size:32;not null" json:"role"`
	Specialization *Specialization `gorm:"size:32" json:"specialization,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	ManagedProjects []Project `gorm:"foreignKey:ManagerID" json:"-"`
	OwnedProjects   []Project `gorm:"foreignKey:ClientID" json:"-"`
	WorkingProjects []Project `gorm:"many2many:project_engineers" json:"-"`
}

// BeforeCreate assigns a fresh identifier when none was provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
