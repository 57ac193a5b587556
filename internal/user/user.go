package user

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

// Filter narrows the user directory listing.
type Filter struct {
	Role       coreuser.Role
	Department string
	IsActive   *bool
	Search     string
}

func ParseFilter(q url.Values) (Filter, *apperrors.AppError) {
	f := Filter{
		Department: strings.TrimSpace(q.Get("department")),
		Search:     strings.TrimSpace(q.Get("search")),
	}

	if raw := q.Get("role"); raw != "" {
		role, ok := coreuser.ParseRole(raw)
		if !ok {
			return Filter{}, apperrors.NewValidationFieldError("role", "role must be one of: staff, manager, finance, admin", apperrors.ErrCodeValidationFailed)
		}
		f.Role = role
	}

	if raw := q.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, apperrors.NewValidationFieldError("is_active", "is_active must be true or false", apperrors.ErrCodeValidationFailed)
		}
		f.IsActive = &active
	}

	return f, nil
}

type RoleCount struct {
	Role   coreuser.Role `json:"role"`
	Total  int64         `json:"total"`
	Active int64         `json:"active"`
}

// RolesSummary lists every role, including those without users.
type RolesSummary struct {
	Roles      []RoleCount `json:"roles"`
	TotalUsers int64       `json:"total_users"`
}

func NewRolesSummary(counts []RoleCount) RolesSummary {
	byRole := make(map[coreuser.Role]RoleCount, len(counts))
	for _, c := range counts {
		byRole[c.Role] = c
	}

	summary := RolesSummary{Roles: make([]RoleCount, 0, len(coreuser.AllRoles))}
	for _, role := range coreuser.AllRoles {
		c := byRole[role]
		c.Role = role
		summary.Roles = append(summary.Roles, c)
		summary.TotalUsers += c.Total
	}
	return summary
}
