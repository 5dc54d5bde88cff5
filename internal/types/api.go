// Package types provides request and response types for the HTTP API.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateUserRequest is the payload for user registration.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdatePasswordRequest is the payload for a password change.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// User is the API view of an account. The password hash never leaves the
// db package.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResponse carries the authenticated user and its token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// AnalyzeRequest is the payload to run the analysis pipeline for a company.
// Exactly one of JDText and JDURL must be set.
type AnalyzeRequest struct {
	Company      string `json:"company" validate:"required,min=1"`
	JDText       string `json:"jd_text,omitempty"`
	JDURL        string `json:"jd_url,omitempty" validate:"omitempty,url"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
	UseLatest    bool   `json:"use_latest,omitempty"`
}

// Validate applies struct tags plus the JD source exclusivity rule.
func (r *AnalyzeRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}
	if (r.JDText == "") == (r.JDURL == "") {
		return &FieldError{Field: "jd_text", Message: "exactly one of jd_text and jd_url must be set"}
	}
	return nil
}

// FieldError reports a single invalid request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return "validation error: " + e.Field + " - " + e.Message
}
