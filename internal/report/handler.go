package report

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/advance"
	"github.com/frahmantamala/cash-advance/internal/auth"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
	"github.com/frahmantamala/cash-advance/internal/transport"
	"github.com/frahmantamala/cash-advance/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ServiceAPI interface {
	Summary(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (Summary, error)
	UserActivity(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[UserActivity], error)
	MonthlyTrends(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) ([]MonthlyTrend, error)
	PendingAdvances(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error)
	OverdueReturns(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error)
	StaffSummary(ctx context.Context, actor *coreuser.User) (Summary, error)
	DashboardStats(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (Summary, error)
	ManagerDashboard(ctx context.Context, actor *coreuser.User) (ManagerDashboard, error)
	PendingApprovals(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error)
	TeamRequests(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error)
	TeamMembers(ctx context.Context, actor *coreuser.User) ([]TeamMember, error)
	ManagerReport(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (ManagerReport, error)
	Export(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (*bytes.Buffer, string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Summary handles GET /reports/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.Summary(r.Context(), actor, f)
	})
}

// UserActivity handles GET /reports/user-activity
func (h *Handler) UserActivity(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.UserActivity(r.Context(), actor, f, query.ParsePagination(r.URL.Query()))
	})
}

// MonthlyTrends handles GET /reports/monthly-trends
func (h *Handler) MonthlyTrends(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.MonthlyTrends(r.Context(), actor, f)
	})
}

// PendingAdvances handles GET /reports/pending-advances
func (h *Handler) PendingAdvances(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.PendingAdvances(r.Context(), actor, f, query.ParsePagination(r.URL.Query()))
	})
}

// OverdueReturns handles GET /reports/overdue-returns
func (h *Handler) OverdueReturns(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.OverdueReturns(r.Context(), actor, f, query.ParsePagination(r.URL.Query()))
	})
}

// StaffSummary handles GET /advances/staff/summary
func (h *Handler) StaffSummary(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, _ query.AdvanceFilter) (interface{}, error) {
		return h.Service.StaffSummary(r.Context(), actor)
	})
}

// DashboardStats handles GET /advances/dashboard/stats
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.DashboardStats(r.Context(), actor, f)
	})
}

// ManagerDashboard handles GET /manager/dashboard
func (h *Handler) ManagerDashboard(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, _ query.AdvanceFilter) (interface{}, error) {
		return h.Service.ManagerDashboard(r.Context(), actor)
	})
}

// PendingApprovals handles GET /manager/pending-approvals
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.PendingApprovals(r.Context(), actor, f, query.ParsePagination(r.URL.Query()))
	})
}

// TeamRequests handles GET /manager/team-requests
func (h *Handler) TeamRequests(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.TeamRequests(r.Context(), actor, f, query.ParsePagination(r.URL.Query()))
	})
}

// TeamMembers handles GET /manager/team-members
func (h *Handler) TeamMembers(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, _ query.AdvanceFilter) (interface{}, error) {
		return h.Service.TeamMembers(r.Context(), actor)
	})
}

// ManagerReport handles GET /manager/reports/summary
func (h *Handler) ManagerReport(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error) {
		return h.Service.ManagerReport(r.Context(), actor, f)
	})
}

// Export handles GET /reports/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	actor, f, ok := h.actorAndFilter(w, r)
	if !ok {
		return
	}

	buf, filename, err := h.Service.Export(r.Context(), actor, f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("failed to write export", "error", err)
	}
}

type viewFunc func(actor *coreuser.User, f query.AdvanceFilter) (interface{}, error)

func (h *Handler) filtered(w http.ResponseWriter, r *http.Request, view viewFunc) {
	actor, f, ok := h.actorAndFilter(w, r)
	if !ok {
		return
	}

	data, err := view(actor, f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteSuccess(w, http.StatusOK, "", data)
}

func (h *Handler) actorAndFilter(w http.ResponseWriter, r *http.Request) (*coreuser.User, query.AdvanceFilter, bool) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, apperrors.ErrMissingToken)
		return nil, query.AdvanceFilter{}, false
	}

	f, appErr := advance.ParseFilter(r.URL.Query())
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return nil, query.AdvanceFilter{}, false
	}
	return actor, f, true
}
