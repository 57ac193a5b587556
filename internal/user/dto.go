package user

import (
	"strings"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/core/common/validation"
)

// UpdateUserDTO carries profile changes. Department and position are
// administrator-only fields.
type UpdateUserDTO struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	Department *string `json:"department" validate:"omitempty,min=1,max=100"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
}

func (d *UpdateUserDTO) Normalize() {
	for _, f := range []*string{d.FirstName, d.LastName, d.Phone, d.Department, d.Position} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (d UpdateUserDTO) Validate() *apperrors.AppError {
	return validation.Struct(d)
}

func (d UpdateUserDTO) touchesAdminFields() bool {
	return d.Department != nil || d.Position != nil
}

// Columns maps the set fields onto users columns.
func (d UpdateUserDTO) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if d.FirstName != nil {
		cols["first_name"] = *d.FirstName
	}
	if d.LastName != nil {
		cols["last_name"] = *d.LastName
	}
	if d.Phone != nil {
		cols["phone"] = *d.Phone
	}
	if d.Department != nil {
		cols["department"] = *d.Department
	}
	if d.Position != nil {
		cols["position"] = *d.Position
	}
	return cols
}

type UpdateRoleDTO struct {
	Role string `json:"role" validate:"required,oneof=staff manager finance admin"`
}

func (d UpdateRoleDTO) Validate() *apperrors.AppError {
	return validation.Struct(d)
}

type UpdateStatusDTO struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (d UpdateStatusDTO) Validate() *apperrors.AppError {
	return validation.Struct(d)
}
