package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/cash-advance/internal/advance"
	"github.com/frahmantamala/cash-advance/internal/auth"
	"github.com/frahmantamala/cash-advance/internal/report"
	"github.com/frahmantamala/cash-advance/internal/transport/middleware"
	"github.com/frahmantamala/cash-advance/internal/transport/swagger"
	"github.com/frahmantamala/cash-advance/internal/user"
)

// Handlers groups what the router mounts. A nil module handler leaves its
// routes unmounted.
type Handlers struct {
	Auth    *auth.Handler
	RBAC    *auth.RBACAuthorization
	User    *user.Handler
	Advance *advance.Handler
	Report  *report.Handler
	Health  *HealthHandler
}

type Options struct {
	AllowedOrigins string
	OpenAPIPath    string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	if opts.OpenAPIPath == "" {
		opts.OpenAPIPath = "./api/openapi.yml"
	}
	if h.Health == nil {
		h.Health = NewHealthHandler(nil)
	}

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve the OpenAPI document at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, opts.OpenAPIPath)
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		if h.Auth == nil {
			return
		}
		rbac := h.RBAC
		if rbac == nil {
			rbac = auth.NewRBACAuthorization(logger)
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Auth.Register)
			ar.Post("/login", h.Auth.Login)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.Get("/me", h.Auth.Me)
				pr.Post("/change-password", h.Auth.ChangePassword)
				pr.Post("/logout", h.Auth.Logout)
				pr.Get("/verify-token", h.Auth.VerifyToken)
			})
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.With(rbac.Require(auth.OpUserList)).Get("/", h.User.ListUsers)
					ur.With(rbac.Require(auth.OpUserRolesSummary)).Get("/roles/summary", h.User.RolesSummary)
					ur.Get("/{id}", h.User.GetUser)
					ur.Put("/{id}", h.User.UpdateUser)

					ur.Group(func(mr chi.Router) {
						mr.Use(rbac.Require(auth.OpUserManage))
						mr.Put("/{id}/role", h.User.UpdateRole)
						mr.Put("/{id}/status", h.User.UpdateStatus)
						mr.Delete("/{id}", h.User.DeleteUser)
					})
				})
			}

			if h.Advance != nil {
				pr.Route("/advances", func(er chi.Router) {
					er.Post("/", h.Advance.CreateAdvance)
					er.Get("/", h.Advance.ListAdvances)
					er.Get("/staff/my-requests", h.Advance.MyRequests)
					if h.Report != nil {
						er.Get("/staff/summary", h.Report.StaffSummary)
						er.Get("/dashboard/stats", h.Report.DashboardStats)
					}
					er.Get("/{id}", h.Advance.GetAdvance)
					er.Put("/{id}", h.Advance.UpdateAdvance)
					er.With(rbac.Require(auth.OpAdvanceApprove)).Put("/{id}/approve", h.Advance.ApproveAdvance)
					er.With(rbac.Require(auth.OpAdvanceDisburse)).Put("/{id}/disburse", h.Advance.DisburseAdvance)
					er.Put("/{id}/retire", h.Advance.RetireAdvance)
				})
			}

			if h.Report != nil {
				pr.Route("/manager", func(mr chi.Router) {
					mr.Use(rbac.Require(auth.OpManagerViews))
					mr.Get("/dashboard", h.Report.ManagerDashboard)
					mr.Get("/pending-approvals", h.Report.PendingApprovals)
					mr.Get("/team-requests", h.Report.TeamRequests)
					mr.Get("/team-members", h.Report.TeamMembers)
					mr.Get("/reports/summary", h.Report.ManagerReport)
				})

				pr.Route("/reports", func(rr chi.Router) {
					rr.With(rbac.Require(auth.OpReportExport)).Get("/export", h.Report.Export)

					rr.Group(func(vr chi.Router) {
						vr.Use(rbac.Require(auth.OpReportView))
						vr.Get("/summary", h.Report.Summary)
						vr.Get("/user-activity", h.Report.UserActivity)
						vr.Get("/monthly-trends", h.Report.MonthlyTrends)
						vr.Get("/pending-advances", h.Report.PendingAdvances)
						vr.Get("/overdue-returns", h.Report.OverdueReturns)
					})
				})
			}
		})
	})
}
