package report

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/advance"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

func TestReport(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Report Suite")
}

type stubRepository struct {
	scopes   []query.Scope
	totals   Totals
	statuses []StatusTotal
	members  []TeamMember
}

func (s *stubRepository) Totals(_ context.Context, scope query.Scope, _ query.AdvanceFilter) (Totals, error) {
	s.scopes = append(s.scopes, scope)
	return s.totals, nil
}

func (s *stubRepository) StatusTotals(_ context.Context, _ query.Scope, _ query.AdvanceFilter) ([]StatusTotal, error) {
	return s.statuses, nil
}

func (s *stubRepository) DepartmentTotals(_ context.Context, _ query.Scope, _ query.AdvanceFilter) ([]DepartmentTotal, error) {
	return nil, nil
}

func (s *stubRepository) MonthlyTrends(_ context.Context, _ query.Scope, _ query.AdvanceFilter) ([]MonthlyTrend, error) {
	return nil, nil
}

func (s *stubRepository) UserActivity(_ context.Context, _ query.Scope, _ query.AdvanceFilter, _ query.Params) ([]UserActivity, int64, error) {
	return nil, 0, nil
}

func (s *stubRepository) TeamMembers(_ context.Context, scope query.Scope) ([]TeamMember, error) {
	s.scopes = append(s.scopes, scope)
	return s.members, nil
}

type stubLister struct {
	filters []query.AdvanceFilter
	scopes  []query.Scope
	items   []*advance.Advance
}

func (s *stubLister) ListInScope(_ context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) (query.Page[*advance.Advance], error) {
	s.filters = append(s.filters, f)
	s.scopes = append(s.scopes, scope)
	p = p.Normalize()
	return query.NewPage(s.items, p, int64(len(s.items))), nil
}

var (
	staff   = &coreuser.User{ID: 1, Role: coreuser.RoleStaff, Department: "Sales"}
	manager = &coreuser.User{ID: 2, Role: coreuser.RoleManager, Department: "Sales"}
	finance = &coreuser.User{ID: 3, Role: coreuser.RoleFinance, Department: "Finance"}
)

var _ = ginkgo.Describe("Service", func() {
	var (
		ctx    context.Context
		repo   *stubRepository
		lister *stubLister
		svc    *Service
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		repo = &stubRepository{}
		lister = &stubLister{}
		svc = NewService(repo, lister, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
		svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC) }
	})

	forbidden := func(err error) {
		appErr, ok := apperrors.IsAppError(err)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(appErr.Type).To(gomega.Equal(apperrors.ErrorTypeForbidden))
	}

	ginkgo.It("keeps reports away from staff and managers", func() {
		_, err := svc.Summary(ctx, staff, query.AdvanceFilter{})
		forbidden(err)
		_, err = svc.Summary(ctx, manager, query.AdvanceFilter{})
		forbidden(err)
		_, _, err = svc.Export(ctx, manager, query.AdvanceFilter{})
		forbidden(err)
		_, err = svc.ManagerDashboard(ctx, finance)
		forbidden(err)
		gomega.Expect(repo.scopes).To(gomega.BeEmpty())
	})

	ginkgo.It("zero-fills every status", func() {
		repo.statuses = []StatusTotal{{Status: advance.StatusPending, Count: 2, Amount: 700}}
		summary, err := svc.Summary(ctx, finance, query.AdvanceFilter{})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(summary.ByStatus).To(gomega.HaveLen(len(advance.AllStatuses)))
		gomega.Expect(summary.Count(advance.StatusPending)).To(gomega.Equal(int64(2)))
		gomega.Expect(summary.Count(advance.StatusRetired)).To(gomega.BeZero())
		gomega.Expect(summary.ByDepartment).NotTo(gomega.BeNil())
		gomega.Expect(repo.scopes).To(gomega.ConsistOf(query.All()))
	})

	ginkgo.It("scopes the staff summary to the caller", func() {
		_, err := svc.StaffSummary(ctx, manager)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(repo.scopes).To(gomega.ConsistOf(query.Own(manager.ID)))
	})

	ginkgo.It("scopes dashboards to the manager's department", func() {
		repo.members = []TeamMember{{UserID: 1}, {UserID: 5}}
		repo.statuses = []StatusTotal{{Status: advance.StatusPending, Count: 3}}
		d, err := svc.ManagerDashboard(ctx, manager)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(d.PendingApprovals).To(gomega.Equal(int64(3)))
		gomega.Expect(d.TeamSize).To(gomega.Equal(2))
		gomega.Expect(lister.scopes).To(gomega.ConsistOf(query.Department("Sales", "staff")))
	})

	ginkgo.It("narrows pending advances without widening", func() {
		_, err := svc.PendingAdvances(ctx, finance, query.AdvanceFilter{}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(lister.filters[0].Statuses).To(gomega.Equal([]string{"pending", "manager_approved", "finance_approved"}))

		_, err = svc.PendingAdvances(ctx, finance, query.AdvanceFilter{Statuses: []string{"manager_approved", "retired"}}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(lister.filters[1].Statuses).To(gomega.Equal([]string{"manager_approved"}))

		page, err := svc.PendingAdvances(ctx, finance, query.AdvanceFilter{Statuses: []string{"retired"}}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(page.Items).To(gomega.BeEmpty())
		gomega.Expect(lister.filters).To(gomega.HaveLen(2))
	})

	ginkgo.It("finds overdue returns from the start of today", func() {
		_, err := svc.OverdueReturns(ctx, finance, query.AdvanceFilter{}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		f := lister.filters[0]
		gomega.Expect(f.Statuses).To(gomega.Equal([]string{"disbursed"}))
		gomega.Expect(*f.ReturnBefore).To(gomega.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
		gomega.Expect(f.SortBy).To(gomega.Equal("expected_return_date"))
	})

	ginkgo.It("exports a workbook with a row per advance", func() {
		lister.items = []*advance.Advance{
			{RequestNumber: "ADV2026030001", Amount: 500, Purpose: "travel", Status: advance.StatusDisbursed,
				Requester:    &advance.Requester{EmployeeID: "E1", FirstName: "Sam", LastName: "Adams", Department: "Sales"},
				Disbursement: &advance.Disbursement{Amount: 500}},
			{RequestNumber: "ADV2026030002", Amount: 200, Purpose: "dinner", Status: advance.StatusPending},
		}

		buf, name, err := svc.Export(ctx, finance, query.AdvanceFilter{})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(name).To(gomega.Equal("cash-advances-20260310-153000.xlsx"))

		wb, err := excelize.OpenReader(buf)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		defer wb.Close()

		gomega.Expect(wb.GetSheetList()).To(gomega.Equal([]string{"Summary", "Advances"}))
		rows, err := wb.GetRows("Advances")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(rows).To(gomega.HaveLen(3))
		gomega.Expect(rows[1][0]).To(gomega.Equal("ADV2026030001"))
		gomega.Expect(rows[1][2]).To(gomega.Equal("Sam Adams"))
		gomega.Expect(rows[1][10]).To(gomega.Equal("500"))
	})
})
