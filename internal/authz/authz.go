// Package authz is the access control evaluator: a pure decision function over
// the caller's role and the ownership relationships between the caller and the
// target resource. It never touches storage and never mutates its inputs.
package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge-api/internal/models"
)

// Identity is the verified caller attached to every request by the JWT layer.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Role     models.Role
}

// Operation enumerates every guarded action.
type Operation string

const (
	OpCreateProject        Operation = "project.create"
	OpUpdateProject        Operation = "project.update"
	OpDeleteProject        Operation = "project.delete"
	OpAddEngineer          Operation = "project.add_engineer"
	OpViewProject          Operation = "project.view"
	OpCreateActivity       Operation = "activity.create"
	OpUpdateActivity       Operation = "activity.update"
	OpChangeActivityStatus Operation = "activity.change_status"
	OpDeleteActivity       Operation = "activity.delete"
	OpAddFeedback          Operation = "activity.add_feedback"
)

// Facts are the ownership relationships the decision depends on. They are
// derived from already-loaded entities; Decide never looks anything up.
type Facts struct {
	IsProjectManager bool
	IsProjectClient  bool
	IsRosterMember   bool
	IsAssignee       bool
}

// ErrDenied is the sentinel every denial unwraps to. Externally all denials
// are the same error kind; the reason on DeniedError distinguishes a role
// mismatch from a failed ownership check for logs and tests.
var ErrDenied = errors.New("access denied")

// DeniedError carries the human-readable reason for a denial.
type DeniedError struct {
	Op     Operation
	Role   models.Role
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s denied for %s: %s", e.Op, e.Role, e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

func denyRole(op Operation, role models.Role, reason string) error {
	return &DeniedError{Op: op, Role: role, Reason: reason}
}

func denyOwnership(op Operation, role models.Role, reason string) error {
	return &DeniedError{Op: op, Role: role, Reason: reason}
}

// Decide evaluates the role x operation table. A nil return means allow.
func Decide(id Identity, op Operation, f Facts) error {
	switch op {
	case OpCreateProject:
		if id.Role != models.RoleProjectManager {
			return denyRole(op, id.Role, "only a project manager can create projects")
		}
		return nil

	case OpUpdateProject, OpDeleteProject, OpAddEngineer:
		if id.Role != models.RoleProjectManager {
			return denyRole(op, id.Role, "only a project manager can modify projects")
		}
		if !f.IsProjectManager {
			return denyOwnership(op, id.Role, "not the manager of this project")
		}
		return nil

	case OpViewProject:
		switch id.Role {
		case models.RoleProjectManager:
			if !f.IsProjectManager {
				return denyOwnership(op, id.Role, "not the manager of this project")
			}
		case models.RoleEngineer:
			if !f.IsRosterMember {
				return denyOwnership(op, id.Role, "not on this project's roster")
			}
		case models.RoleClient:
			if !f.IsProjectClient {
				return denyOwnership(op, id.Role, "not the client of this project")
			}
		default:
			return denyRole(op, id.Role, "unknown role")
		}
		return nil

	case OpCreateActivity, OpUpdateActivity, OpChangeActivityStatus:
		if id.Role == models.RoleClient {
			return denyRole(op, id.Role, "clients cannot modify activities")
		}
		if !id.Role.Valid() {
			return denyRole(op, id.Role, "unknown role")
		}
		return nil

	case OpDeleteActivity:
		switch id.Role {
		case models.RoleProjectManager:
			return nil
		case models.RoleEngineer:
			if !f.IsAssignee {
				return denyOwnership(op, id.Role, "engineers can only delete their own activities")
			}
			return nil
		case models.RoleClient:
			return denyRole(op, id.Role, "clients cannot delete activities")
		default:
			return denyRole(op, id.Role, "unknown role")
		}

	case OpAddFeedback:
		switch id.Role {
		case models.RoleProjectManager, models.RoleEngineer:
			return nil
		case models.RoleClient:
			if !f.IsProjectClient {
				return denyOwnership(op, id.Role, "clients can only give feedback on their own projects")
			}
			return nil
		default:
			return denyRole(op, id.Role, "unknown role")
		}
	}

	return denyRole(op, id.Role, "unknown operation")
}

// ProjectFacts derives ownership facts between a caller and a project.
// The project must carry its roster when roster membership matters.
func ProjectFacts(id Identity, p *models.Project) Facts {
	if p == nil {
		return Facts{}
	}
	return Facts{
		IsProjectManager: p.ManagerID == id.UserID,
		IsProjectClient:  p.ClientID == id.UserID,
		IsRosterMember:   p.HasEngineer(id.UserID),
	}
}

// ActivityFacts derives ownership facts between a caller and an activity,
// including the relationship to the activity's parent project.
func ActivityFacts(id Identity, a *models.Activity) Facts {
	if a == nil {
		return Facts{}
	}
	f := ProjectFacts(id, a.Project)
	f.IsAssignee = a.AssigneeID != nil && *a.AssigneeID == id.UserID
	return f
}
