package service

import "errors"

// Sentinel errors shared across services. Handlers translate these into HTTP
// status codes; authorization denials are typed separately in the authz
// package and always carry a reason.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrActivityNotFound   = errors.New("activity not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidEstimate    = errors.New("invalid estimate unit")
	ErrInvalidStartDate   = errors.New("invalid start date")
)
