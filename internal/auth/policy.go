package auth

import (
	"strings"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type Operation string

const (
	OpAdvanceCreate   Operation = "advance:create"
	OpAdvanceList     Operation = "advance:list"
	OpAdvanceView     Operation = "advance:view"
	OpAdvanceUpdate   Operation = "advance:update"
	OpAdvanceApprove  Operation = "advance:approve"
	OpAdvanceDisburse Operation = "advance:disburse"
	OpAdvanceRetire   Operation = "advance:retire"
	OpAdvanceOwnViews Operation = "advance:own-views"

	OpUserList         Operation = "user:list"
	OpUserViewAny      Operation = "user:view-any"
	OpUserRolesSummary Operation = "user:roles-summary"
	OpUserManage       Operation = "user:manage"

	OpManagerViews Operation = "manager:views"

	OpReportView   Operation = "report:view"
	OpReportExport Operation = "report:export"
)

var (
	everyone = []coreuser.Role{coreuser.RoleStaff, coreuser.RoleManager, coreuser.RoleFinance, coreuser.RoleAdmin}
	elevated = []coreuser.Role{coreuser.RoleManager, coreuser.RoleFinance, coreuser.RoleAdmin}
)

// policy is the single role x operation table. Routes and services consult
// it through Authorize and never compare roles inline.
var policy = map[Operation][]coreuser.Role{
	OpAdvanceCreate:   everyone,
	OpAdvanceList:     everyone,
	OpAdvanceView:     everyone,
	OpAdvanceUpdate:   everyone,
	OpAdvanceRetire:   everyone,
	OpAdvanceOwnViews: everyone,
	OpAdvanceApprove:  {coreuser.RoleManager, coreuser.RoleFinance},
	OpAdvanceDisburse: {coreuser.RoleFinance, coreuser.RoleAdmin},

	OpUserList:         elevated,
	OpUserViewAny:      elevated,
	OpUserRolesSummary: elevated,
	OpUserManage:       {coreuser.RoleAdmin},

	OpManagerViews: {coreuser.RoleManager, coreuser.RoleAdmin},

	OpReportView:   {coreuser.RoleFinance, coreuser.RoleAdmin},
	OpReportExport: {coreuser.RoleFinance, coreuser.RoleAdmin},
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(role coreuser.Role, op Operation) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize permits or forbids op for the acting user.
func Authorize(u *coreuser.User, op Operation) error {
	if u == nil {
		return apperrors.ErrMissingToken
	}
	if !Allowed(u.Role, op) {
		return apperrors.ErrInsufficientRole.WithDetails(map[string]string{
			"operation": string(op),
			"role":      string(u.Role),
		})
	}
	return nil
}

// RolesFor lists the roles allowed to perform op.
func RolesFor(op Operation) []coreuser.Role {
	return append([]coreuser.Role(nil), policy[op]...)
}

// CheckOwnership lets owners and elevated roles through.
func CheckOwnership(u *coreuser.User, ownerID int64) error {
	if u == nil {
		return apperrors.ErrMissingToken
	}
	if u.ID == ownerID || u.IsElevated() {
		return nil
	}
	return apperrors.ErrUnauthorizedAccess
}

// VisibilityScope is the set of advances u may list or aggregate over.
func VisibilityScope(u *coreuser.User) query.Scope {
	if u == nil {
		return query.Scope{}
	}
	switch u.Role {
	case coreuser.RoleStaff:
		return query.Own(u.ID)
	case coreuser.RoleManager:
		if strings.TrimSpace(u.Department) == "" {
			return query.Scope{}
		}
		return query.Department(u.Department, string(coreuser.RoleStaff))
	case coreuser.RoleFinance, coreuser.RoleAdmin:
		return query.All()
	default:
		return query.Scope{}
	}
}

// InScope reports whether an advance owned by requester falls inside u's scope.
func InScope(u *coreuser.User, requester *coreuser.User) bool {
	if u == nil || requester == nil {
		return false
	}
	scope := VisibilityScope(u)
	switch scope.Kind {
	case query.ScopeAll:
		return true
	case query.ScopeOwn:
		return requester.ID == scope.UserID
	case query.ScopeDepartment:
		return requester.Role == coreuser.Role(scope.RequesterRole) && requester.SameDepartment(scope.Department)
	default:
		return false
	}
}
