package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/cash-advance/internal/advance"
	"github.com/frahmantamala/cash-advance/internal/auth"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type Repository interface {
	Totals(ctx context.Context, scope query.Scope, f query.AdvanceFilter) (Totals, error)
	StatusTotals(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]StatusTotal, error)
	DepartmentTotals(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]DepartmentTotal, error)
	MonthlyTrends(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]MonthlyTrend, error)
	UserActivity(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) ([]UserActivity, int64, error)
	TeamMembers(ctx context.Context, scope query.Scope) ([]TeamMember, error)
}

// AdvanceLister pages advances for a scope the caller has already derived.
type AdvanceLister interface {
	ListInScope(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error)
}

var awaitingReview = []advance.Status{advance.StatusPending, advance.StatusManagerApproved, advance.StatusFinanceApproved}

const (
	recentRequests = 5
	topRequesters  = 10
)

type Service struct {
	repo     Repository
	advances AdvanceLister
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, advances AdvanceLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, advances: advances, logger: logger, now: time.Now}
}

// Summary aggregates every advance visible to a finance or admin user.
func (s *Service) Summary(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (Summary, error) {
	if err := auth.Authorize(actor, auth.OpReportView); err != nil {
		return Summary{}, err
	}
	return s.summary(ctx, auth.VisibilityScope(actor), f)
}

func (s *Service) UserActivity(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[UserActivity], error) {
	if err := auth.Authorize(actor, auth.OpReportView); err != nil {
		return query.Page[UserActivity]{}, err
	}

	p = p.Normalize()
	rows, total, err := s.repo.UserActivity(ctx, auth.VisibilityScope(actor), f, p)
	if err != nil {
		return query.Page[UserActivity]{}, err
	}
	return query.NewPage(rows, p, total), nil
}

func (s *Service) MonthlyTrends(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) ([]MonthlyTrend, error) {
	if err := auth.Authorize(actor, auth.OpReportView); err != nil {
		return nil, err
	}
	return s.trends(ctx, auth.VisibilityScope(actor), f)
}

// PendingAdvances lists advances still waiting for a review or disbursement.
// A status filter can narrow that set but never add to it.
func (s *Service) PendingAdvances(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error) {
	if err := auth.Authorize(actor, auth.OpReportView); err != nil {
		return query.Page[*advance.Advance]{}, err
	}

	f, ok := narrowStatuses(f, awaitingReview...)
	if !ok {
		return query.NewPage([]*advance.Advance{}, p.Normalize(), 0), nil
	}
	if f.SortBy == "" {
		f.SortBy, f.SortOrder = "created_at", "asc"
	}
	return s.advances.ListInScope(ctx, auth.VisibilityScope(actor), f, p)
}

// OverdueReturns lists disbursed advances whose expected return date has passed.
func (s *Service) OverdueReturns(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error) {
	if err := auth.Authorize(actor, auth.OpReportView); err != nil {
		return query.Page[*advance.Advance]{}, err
	}

	f, ok := narrowStatuses(f, advance.StatusDisbursed)
	if !ok {
		return query.NewPage([]*advance.Advance{}, p.Normalize(), 0), nil
	}
	today := startOfDay(s.now())
	f.ReturnBefore = &today
	if f.SortBy == "" {
		f.SortBy, f.SortOrder = "expected_return_date", "asc"
	}
	return s.advances.ListInScope(ctx, auth.VisibilityScope(actor), f, p)
}

// StaffSummary aggregates the actor's own advances whatever their role.
func (s *Service) StaffSummary(ctx context.Context, actor *coreuser.User) (Summary, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceOwnViews); err != nil {
		return Summary{}, err
	}
	return s.summary(ctx, query.Own(actor.ID), query.AdvanceFilter{})
}

// DashboardStats aggregates the advances the actor is allowed to list.
func (s *Service) DashboardStats(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (Summary, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceList); err != nil {
		return Summary{}, err
	}
	return s.summary(ctx, auth.VisibilityScope(actor), f)
}

func (s *Service) ManagerDashboard(ctx context.Context, actor *coreuser.User) (ManagerDashboard, error) {
	if err := auth.Authorize(actor, auth.OpManagerViews); err != nil {
		return ManagerDashboard{}, err
	}
	scope := auth.VisibilityScope(actor)

	summary, err := s.summary(ctx, scope, query.AdvanceFilter{})
	if err != nil {
		return ManagerDashboard{}, err
	}
	members, err := s.repo.TeamMembers(ctx, scope)
	if err != nil {
		return ManagerDashboard{}, err
	}
	recent, err := s.advances.ListInScope(ctx, scope, query.AdvanceFilter{}, query.Params{Page: 1, Limit: recentRequests})
	if err != nil {
		return ManagerDashboard{}, err
	}

	return ManagerDashboard{
		Summary:          summary,
		PendingApprovals: summary.Count(advance.StatusPending),
		TeamSize:         len(members),
		RecentRequests:   recent.Items,
	}, nil
}

// PendingApprovals lists the advances waiting on a manager decision.
func (s *Service) PendingApprovals(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error) {
	if err := auth.Authorize(actor, auth.OpManagerViews); err != nil {
		return query.Page[*advance.Advance]{}, err
	}

	f, ok := narrowStatuses(f, advance.StatusPending)
	if !ok {
		return query.NewPage([]*advance.Advance{}, p.Normalize(), 0), nil
	}
	if f.SortBy == "" {
		f.SortBy, f.SortOrder = "created_at", "asc"
	}
	return s.advances.ListInScope(ctx, auth.VisibilityScope(actor), f, p)
}

func (s *Service) TeamRequests(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error) {
	if err := auth.Authorize(actor, auth.OpManagerViews); err != nil {
		return query.Page[*advance.Advance]{}, err
	}
	return s.advances.ListInScope(ctx, auth.VisibilityScope(actor), f, p)
}

func (s *Service) TeamMembers(ctx context.Context, actor *coreuser.User) ([]TeamMember, error) {
	if err := auth.Authorize(actor, auth.OpManagerViews); err != nil {
		return nil, err
	}
	members, err := s.repo.TeamMembers(ctx, auth.VisibilityScope(actor))
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []TeamMember{}
	}
	return members, nil
}

func (s *Service) ManagerReport(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (ManagerReport, error) {
	if err := auth.Authorize(actor, auth.OpManagerViews); err != nil {
		return ManagerReport{}, err
	}
	scope := auth.VisibilityScope(actor)

	summary, err := s.summary(ctx, scope, f)
	if err != nil {
		return ManagerReport{}, err
	}
	trends, err := s.trends(ctx, scope, f)
	if err != nil {
		return ManagerReport{}, err
	}
	top, _, err := s.repo.UserActivity(ctx, scope, f, query.Params{Page: 1, Limit: topRequesters})
	if err != nil {
		return ManagerReport{}, err
	}
	if top == nil {
		top = []UserActivity{}
	}

	return ManagerReport{Summary: summary, Trends: trends, TopUsers: top}, nil
}

func (s *Service) summary(ctx context.Context, scope query.Scope, f query.AdvanceFilter) (Summary, error) {
	totals, err := s.repo.Totals(ctx, scope, f)
	if err != nil {
		return Summary{}, err
	}
	statuses, err := s.repo.StatusTotals(ctx, scope, f)
	if err != nil {
		return Summary{}, err
	}
	departments, err := s.repo.DepartmentTotals(ctx, scope, f)
	if err != nil {
		return Summary{}, err
	}
	return NewSummary(totals, statuses, departments), nil
}

func (s *Service) trends(ctx context.Context, scope query.Scope, f query.AdvanceFilter) ([]MonthlyTrend, error) {
	rows, err := s.repo.MonthlyTrends(ctx, scope, f)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []MonthlyTrend{}
	}
	return rows, nil
}

// narrowStatuses intersects the caller's status filter with allowed. It
// reports false when nothing is left.
func narrowStatuses(f query.AdvanceFilter, allowed ...advance.Status) (query.AdvanceFilter, bool) {
	if len(f.Statuses) == 0 {
		for _, s := range allowed {
			f.Statuses = append(f.Statuses, string(s))
		}
		return f, true
	}

	var kept []string
	for _, requested := range f.Statuses {
		for _, s := range allowed {
			if requested == string(s) {
				kept = append(kept, requested)
				break
			}
		}
	}
	f.Statuses = kept
	return f, len(kept) > 0
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
