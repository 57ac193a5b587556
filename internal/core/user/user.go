package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/user"
)

type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleFinance Role = "finance"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStaff, RoleManager, RoleFinance, RoleAdmin}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllRoles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

// User is the domain view of an account; it never carries the password hash.
type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	EmployeeID  string     `json:"employee_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Department  string     `json:"department"`
	Position    string     `json:"position"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"is_active"`
	Phone       string     `json:"phone,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsElevated reports whether the role may see records it does not own.
func (u *User) IsElevated() bool {
	return u.Role == RoleManager || u.Role == RoleFinance || u.Role == RoleAdmin
}

func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// SameDepartment compares departments case-insensitively; free text is entered by hand.
func (u *User) SameDepartment(department string) bool {
	return u.Department != "" && strings.EqualFold(strings.TrimSpace(u.Department), strings.TrimSpace(department))
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		EmployeeID:  u.EmployeeID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Department:  u.Department,
		Position:    u.Position,
		Role:        Role(u.Role),
		IsActive:    u.IsActive,
		Phone:       u.Phone,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
