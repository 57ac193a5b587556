package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

var _ = ginkgo.Describe("Policy", func() {
	ginkgo.DescribeTable("Authorize",
		func(role coreuser.Role, op Operation, allowed bool) {
			err := Authorize(&coreuser.User{ID: 1, Role: role}, op)
			if allowed {
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			} else {
				gomega.Expect(err).To(gomega.MatchError(apperrors.ErrInsufficientRole))
			}
		},
		ginkgo.Entry("staff creates", coreuser.RoleStaff, OpAdvanceCreate, true),
		ginkgo.Entry("staff cannot approve", coreuser.RoleStaff, OpAdvanceApprove, false),
		ginkgo.Entry("manager approves", coreuser.RoleManager, OpAdvanceApprove, true),
		ginkgo.Entry("admin cannot approve", coreuser.RoleAdmin, OpAdvanceApprove, false),
		ginkgo.Entry("manager cannot disburse", coreuser.RoleManager, OpAdvanceDisburse, false),
		ginkgo.Entry("finance disburses", coreuser.RoleFinance, OpAdvanceDisburse, true),
		ginkgo.Entry("admin disburses", coreuser.RoleAdmin, OpAdvanceDisburse, true),
		ginkgo.Entry("staff cannot list users", coreuser.RoleStaff, OpUserList, false),
		ginkgo.Entry("manager lists users", coreuser.RoleManager, OpUserList, true),
		ginkgo.Entry("finance cannot manage users", coreuser.RoleFinance, OpUserManage, false),
		ginkgo.Entry("admin manages users", coreuser.RoleAdmin, OpUserManage, true),
		ginkgo.Entry("finance cannot open manager views", coreuser.RoleFinance, OpManagerViews, false),
		ginkgo.Entry("manager cannot read reports", coreuser.RoleManager, OpReportView, false),
		ginkgo.Entry("finance exports reports", coreuser.RoleFinance, OpReportExport, true),
		ginkgo.Entry("unknown operation", coreuser.RoleAdmin, Operation("advance:teleport"), false),
	)

	ginkgo.It("treats a missing user as unauthenticated", func() {
		gomega.Expect(Authorize(nil, OpAdvanceList)).To(gomega.MatchError(apperrors.ErrMissingToken))
	})

	ginkgo.It("hands out copies of the role lists", func() {
		roles := RolesFor(OpAdvanceApprove)
		roles[0] = coreuser.RoleStaff
		gomega.Expect(Allowed(coreuser.RoleStaff, OpAdvanceApprove)).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("Ownership and scope", func() {
	staff := &coreuser.User{ID: 1, Role: coreuser.RoleStaff, Department: "Sales"}
	peer := &coreuser.User{ID: 2, Role: coreuser.RoleStaff, Department: "sales"}
	outsider := &coreuser.User{ID: 3, Role: coreuser.RoleStaff, Department: "Ops"}
	manager := &coreuser.User{ID: 4, Role: coreuser.RoleManager, Department: "SALES"}
	otherManager := &coreuser.User{ID: 5, Role: coreuser.RoleManager, Department: "Sales"}
	finance := &coreuser.User{ID: 6, Role: coreuser.RoleFinance}

	ginkgo.It("lets owners and elevated roles through", func() {
		gomega.Expect(CheckOwnership(staff, 1)).To(gomega.Succeed())
		gomega.Expect(CheckOwnership(manager, 1)).To(gomega.Succeed())
		gomega.Expect(CheckOwnership(staff, 2)).To(gomega.MatchError(apperrors.ErrUnauthorizedAccess))
	})

	ginkgo.It("derives the visibility scope from the role", func() {
		gomega.Expect(VisibilityScope(staff)).To(gomega.Equal(query.Own(1)))
		gomega.Expect(VisibilityScope(manager)).To(gomega.Equal(query.Department("SALES", "staff")))
		gomega.Expect(VisibilityScope(finance)).To(gomega.Equal(query.All()))
		gomega.Expect(VisibilityScope(&coreuser.User{Role: "intern"}).Kind).To(gomega.Equal(query.ScopeNone))
		gomega.Expect(VisibilityScope(&coreuser.User{ID: 7, Role: coreuser.RoleManager, Department: " "}).Kind).To(gomega.Equal(query.ScopeNone))
	})

	ginkgo.It("checks single records against the scope", func() {
		gomega.Expect(InScope(manager, peer)).To(gomega.BeTrue())
		gomega.Expect(InScope(manager, outsider)).To(gomega.BeFalse())
		gomega.Expect(InScope(manager, otherManager)).To(gomega.BeFalse())
		gomega.Expect(InScope(staff, peer)).To(gomega.BeFalse())
		gomega.Expect(InScope(finance, outsider)).To(gomega.BeTrue())
	})
})
