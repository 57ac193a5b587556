package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/cash-advance/internal/core/query"
	"github.com/frahmantamala/cash-advance/internal/report"
)

const advanceJoin = "FROM advances a JOIN users u ON u.id = a.requester_id"

// ReportRepository runs read-only aggregations with sqlx.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ report.Repository = (*ReportRepository)(nil)

func (r *ReportRepository) Totals(ctx context.Context, scope query.Scope, f query.AdvanceFilter) (report.Totals, error) {
	where, args := query.AdvanceWhere(scope, f)
	q := `SELECT
		COUNT(*) AS requests,
		COALESCE(SUM(a.amount), 0) AS amount,
		COALESCE(SUM(a.disbursed_amount), 0) AS disbursed,
		COALESCE(SUM(a.total_expenses), 0) AS expenses,
		COALESCE(SUM(a.balance_returned), 0) AS balance_returned,
		COALESCE(SUM(CASE WHEN a.status = 'disbursed' THEN a.disbursed_amount ELSE 0 END), 0) AS outstanding
		` + advanceJoin + ` WHERE ` + where

	var t report.Totals
	if err := r.db.GetContext(ctx, &t, r.db.Rebind(q), args...); err != nil {
		return report.Totals{}, fmt.Errorf("advance totals: %w", err)
	}
	return t, nil
}

func (r *ReportRepository) StatusTotals(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]report.StatusTotal, error) {
	where, args := query.AdvanceWhere(scope, f)
	q := `SELECT a.status AS status, COUNT(*) AS count, COALESCE(SUM(a.amount), 0) AS amount
		` + advanceJoin + ` WHERE ` + where + `
		GROUP BY a.status`

	var rows []report.StatusTotal
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("status totals: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) DepartmentTotals(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]report.DepartmentTotal, error) {
	where, args := query.AdvanceWhere(scope, f)
	q := `SELECT MIN(TRIM(COALESCE(u.department, ''))) AS department, COUNT(*) AS count, COALESCE(SUM(a.amount), 0) AS amount
		` + advanceJoin + ` WHERE ` + where + `
		GROUP BY LOWER(TRIM(COALESCE(u.department, '')))
		ORDER BY amount DESC, department ASC`

	var rows []report.DepartmentTotal
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("department totals: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) MonthlyTrends(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]report.MonthlyTrend, error) {
	where, args := query.AdvanceWhere(scope, f)
	q := `SELECT a.period AS period,
		COUNT(*) AS count,
		COALESCE(SUM(a.amount), 0) AS amount,
		COALESCE(SUM(a.disbursed_amount), 0) AS disbursed,
		COALESCE(SUM(CASE WHEN a.status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected
		` + advanceJoin + ` WHERE ` + where + `
		GROUP BY a.period
		ORDER BY a.period ASC`

	var rows []report.MonthlyTrend
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	return rows, nil
}

func (r *ReportRepository) UserActivity(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) ([]report.UserActivity, int64, error) {
	where, args := query.AdvanceWhere(scope, f)

	var total int64
	countQ := `SELECT COUNT(DISTINCT a.requester_id) ` + advanceJoin + ` WHERE ` + where
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countQ), args...); err != nil {
		return nil, 0, fmt.Errorf("count active users: %w", err)
	}
	if total == 0 {
		return []report.UserActivity{}, 0, nil
	}

	q := `SELECT u.id AS user_id, u.employee_id, u.first_name, u.last_name,
		COALESCE(u.department, '') AS department, u.role,
		COUNT(*) AS total_requests,
		COALESCE(SUM(a.amount), 0) AS total_amount,
		COALESCE(SUM(CASE WHEN a.status IN ('pending', 'manager_approved', 'finance_approved') THEN 1 ELSE 0 END), 0) AS in_progress,
		COALESCE(SUM(CASE WHEN a.status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected,
		COALESCE(SUM(CASE WHEN a.status = 'disbursed' THEN 1 ELSE 0 END), 0) AS disbursed,
		COALESCE(SUM(CASE WHEN a.status = 'retired' THEN 1 ELSE 0 END), 0) AS retired
		` + advanceJoin + ` WHERE ` + where + `
		GROUP BY u.id, u.employee_id, u.first_name, u.last_name, u.department, u.role
		ORDER BY total_amount DESC, u.id ASC
		LIMIT ? OFFSET ?`

	var rows []report.UserActivity
	pageArgs := append(append([]any{}, args...), p.Limit, p.Offset())
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("user activity: %w", err)
	}
	return rows, total, nil
}

// TeamMembers lists the users a scope covers with their request counts,
// including users who never requested anything.
func (r *ReportRepository) TeamMembers(ctx context.Context, scope query.Scope) ([]report.TeamMember, error) {
	where, args := userScopeWhere(scope)
	q := `SELECT u.id AS user_id, u.employee_id, u.first_name, u.last_name, u.email,
		COALESCE(u.position, '') AS position, u.is_active,
		COUNT(a.id) AS total_requests,
		COALESCE(SUM(CASE WHEN a.status IN ('pending', 'manager_approved', 'finance_approved') THEN 1 ELSE 0 END), 0) AS pending_requests,
		COALESCE(SUM(a.amount), 0) AS total_amount
		FROM users u LEFT JOIN advances a ON a.requester_id = u.id
		WHERE ` + where + `
		GROUP BY u.id, u.employee_id, u.first_name, u.last_name, u.email, u.position, u.is_active
		ORDER BY u.last_name ASC, u.first_name ASC, u.id ASC`

	var rows []report.TeamMember
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("team members: %w", err)
	}
	return rows, nil
}

func userScopeWhere(scope query.Scope) (string, []any) {
	switch scope.Kind {
	case query.ScopeAll:
		return "1 = 1", nil
	case query.ScopeOwn:
		return "u.id = ?", []any{scope.UserID}
	case query.ScopeDepartment:
		return "LOWER(u.department) = LOWER(?) AND u.role = ?", []any{strings.TrimSpace(scope.Department), scope.RequesterRole}
	default:
		return "1 = 0", nil
	}
}
