package auth

import (
	"strings"
	"time"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/core/common/validation"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

// RegisterDTO never carries a role: self-registered accounts are staff.
type RegisterDTO struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	EmployeeID string `json:"employee_id" validate:"required,max=50"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Department string `json:"department" validate:"required,max=100"`
	Position   string `json:"position" validate:"omitempty,max=100"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
}

func (d *RegisterDTO) Normalize() {
	d.Email = coreuser.NormalizeEmail(d.Email)
	d.EmployeeID = strings.TrimSpace(d.EmployeeID)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Department = strings.TrimSpace(d.Department)
	d.Position = strings.TrimSpace(d.Position)
	d.Phone = strings.TrimSpace(d.Phone)
}

func (d RegisterDTO) Validate() *apperrors.AppError {
	return validation.Struct(d)
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (d LoginDTO) Validate() *apperrors.AppError {
	return validation.Struct(d)
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

func (d ChangePasswordDTO) Validate() *apperrors.AppError {
	return validation.Struct(d)
}

type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *coreuser.User `json:"user"`
}

type TokenInfo struct {
	Valid     bool           `json:"valid"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *coreuser.User `json:"user"`
}
