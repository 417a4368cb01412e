package dto

import "github.com/taskforge/taskforge-api/internal/models"

// RegisterRequest carries the payload for account registration.
type RegisterRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=64"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	Role           string `json:"role" validate:"required"`
	Specialization string `json:"specialization,omitempty" validate:"omitempty"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned on a successful login.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// UserResponse is the public projection of a user. The password hash never
// leaves the models layer.
type UserResponse struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	Role           string  `json:"role"`
	Specialization *string `json:"specialization,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// NewUserResponse maps a user model to its public projection.
func NewUserResponse(user models.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.UTC().Format(timeFormat),
	}
	if user.Specialization != nil {
		spec := string(*user.Specialization)
		resp.Specialization = &spec
	}
	return resp
}

// NewUserResponseSlice maps a slice of user models.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
