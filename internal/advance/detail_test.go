package advance

import (
	"math"
	"net/url"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/cash-advance/internal"
)

var _ = ginkgo.Describe("DetailOf", func() {
	approved := Approval{ID: 1, ApproverID: 2, Decision: DecisionApprove}
	rejected := Approval{ID: 2, ApproverID: 3, Decision: DecisionReject, Comment: "no budget"}
	disbursement := &Disbursement{DisbursedBy: 3, Amount: 500, Method: MethodBankTransfer}
	retirement := &Retirement{RetiredBy: 1, TotalExpenses: 480, BalanceReturned: 20}

	ginkgo.DescribeTable("consistent records",
		func(a *Advance, want Detail) {
			d, err := DetailOf(a)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(d).To(gomega.Equal(want))
			gomega.Expect(d.Status()).To(gomega.Equal(a.Status))
		},
		ginkgo.Entry("pending", &Advance{Status: StatusPending}, Pending{}),
		ginkgo.Entry("manager_approved", &Advance{Status: StatusManagerApproved, Approvals: []Approval{approved}}, ManagerApproved{ManagerApproval: approved}),
		ginkgo.Entry("finance_approved", &Advance{Status: StatusFinanceApproved, Approvals: []Approval{approved, approved}}, FinanceApproved{Approval: approved}),
		ginkgo.Entry("disbursed", &Advance{Status: StatusDisbursed, Approvals: []Approval{approved}, Disbursement: disbursement},
			Disbursed{Approval: approved, Disbursement: *disbursement}),
		ginkgo.Entry("retired", &Advance{Status: StatusRetired, Approvals: []Approval{approved}, Disbursement: disbursement, Retirement: retirement},
			Retired{Approval: approved, Disbursement: *disbursement, Retirement: *retirement}),
		ginkgo.Entry("rejected", &Advance{Status: StatusRejected, Approvals: []Approval{approved, rejected}}, Rejected{Rejection: rejected}),
	)

	ginkgo.DescribeTable("inconsistent records",
		func(a *Advance) {
			_, err := DetailOf(a)
			gomega.Expect(err).To(gomega.HaveOccurred())
			appErr, _ := apperrors.IsAppError(err)
			gomega.Expect(appErr.Code).To(gomega.Equal(apperrors.ErrCodeInconsistentRecord))
		},
		ginkgo.Entry("pending with an approval", &Advance{Status: StatusPending, Approvals: []Approval{approved}}),
		ginkgo.Entry("disbursed without disbursement", &Advance{Status: StatusDisbursed, Approvals: []Approval{approved}}),
		ginkgo.Entry("rejected after an approval", &Advance{Status: StatusRejected, Approvals: []Approval{approved}}),
		ginkgo.Entry("finance_approved with a disbursement", &Advance{Status: StatusFinanceApproved, Approvals: []Approval{approved}, Disbursement: disbursement}),
		ginkgo.Entry("unknown status", &Advance{Status: Status("archived")}),
	)
})

var _ = ginkgo.Describe("DTOs", func() {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	ginkgo.It("defaults the priority and requires a future return date", func() {
		dto := CreateAdvanceDTO{Amount: 500, Purpose: " travel reimbursement ", ExpectedReturnDate: Date{now.AddDate(0, 0, 7)}}
		dto.Normalize()
		gomega.Expect(dto.Priority).To(gomega.Equal("medium"))
		gomega.Expect(dto.Purpose).To(gomega.Equal("travel reimbursement"))
		gomega.Expect(dto.Validate(10_000, now)).To(gomega.BeNil())

		dto.ExpectedReturnDate = Date{now}
		err := dto.Validate(10_000, now)
		gomega.Expect(err).NotTo(gomega.BeNil())
		gomega.Expect(err.Details.(apperrors.ValidationErrors).Errors[0].Field).To(gomega.Equal("expected_return_date"))
	})

	ginkgo.It("reports every invalid field at once", func() {
		dto := CreateAdvanceDTO{Amount: 20_000, Purpose: "x"}
		dto.Normalize()
		err := dto.Validate(10_000, now)
		gomega.Expect(err).NotTo(gomega.BeNil())
		fields := []string{}
		for _, e := range err.Details.(apperrors.ValidationErrors).Errors {
			fields = append(fields, e.Field)
		}
		gomega.Expect(fields).To(gomega.ContainElements("amount", "purpose", "expected_return_date"))
	})

	ginkgo.It("parses plain dates and RFC 3339", func() {
		var d Date
		gomega.Expect(d.UnmarshalJSON([]byte(`"2026-03-17"`))).To(gomega.Succeed())
		gomega.Expect(d.Time).To(gomega.Equal(time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)))
		gomega.Expect(d.UnmarshalJSON([]byte(`"2026-03-17T10:00:00Z"`))).To(gomega.Succeed())
		gomega.Expect(d.UnmarshalJSON([]byte(`"17/03/2026"`))).NotTo(gomega.Succeed())
	})

	ginkgo.It("lets a rejection reason win over approve", func() {
		dto := ApproveDTO{Action: "approve", RejectionReason: "duplicate request"}
		gomega.Expect(dto.Decision()).To(gomega.Equal(DecisionReject))
		gomega.Expect(dto.Comment()).To(gomega.Equal("duplicate request"))
		gomega.Expect(dto.Validate()).To(gomega.BeNil())
	})

	ginkgo.It("requires a comment to reject", func() {
		gomega.Expect(ApproveDTO{Action: "reject"}.Validate()).NotTo(gomega.BeNil())
		gomega.Expect(ApproveDTO{}.Decision()).To(gomega.Equal(DecisionApprove))
	})

	ginkgo.It("caps the disbursed amount at the request", func() {
		over := int64(600)
		dto := DisburseDTO{Amount: &over, Method: "bank_transfer"}
		gomega.Expect(dto.Validate(500)).NotTo(gomega.BeNil())
		gomega.Expect(DisburseDTO{Method: "cash"}.DisbursedAmount(500)).To(gomega.Equal(int64(500)))
		gomega.Expect(DisburseDTO{Method: "cheque-ish"}.Validate(500)).NotTo(gomega.BeNil())
	})

	ginkgo.It("reconciles expense items with the total", func() {
		total := int64(480)
		dto := RetireDTO{TotalExpenses: &total, Items: []ExpenseItemDTO{
			{Description: "flight", Amount: 400},
			{Description: "taxi", Amount: 80},
		}}
		gomega.Expect(dto.Validate()).To(gomega.BeNil())
		gomega.Expect(dto.Total()).To(gomega.Equal(int64(480)))

		wrong := int64(470)
		dto.TotalExpenses = &wrong
		gomega.Expect(dto.Validate()).NotTo(gomega.BeNil())

		dto.TotalExpenses = nil
		gomega.Expect(dto.Total()).To(gomega.Equal(int64(480)))
		gomega.Expect(RetireDTO{}.Validate()).NotTo(gomega.BeNil())
	})

	ginkgo.It("rejects expense items whose sum overflows", func() {
		dto := RetireDTO{Items: []ExpenseItemDTO{
			{Description: "flight", Amount: math.MaxInt64},
			{Description: "taxi", Amount: 2},
		}}
		err := dto.Validate()
		gomega.Expect(err).NotTo(gomega.BeNil())
		gomega.Expect(err.Code).To(gomega.Equal(apperrors.ErrCodeInvalidAmount))
		gomega.Expect(dto.Total()).To(gomega.BeNumerically(">=", 0))

		claimed := int64(-math.MaxInt64)
		dto.TotalExpenses = &claimed
		gomega.Expect(dto.Validate()).NotTo(gomega.BeNil())
	})

	ginkgo.It("refuses an update that changes nothing", func() {
		gomega.Expect(UpdateAdvanceDTO{}.Validate(10_000, now)).NotTo(gomega.BeNil())
		amount := int64(300)
		dto := UpdateAdvanceDTO{Amount: &amount}
		gomega.Expect(dto.Validate(10_000, now)).To(gomega.BeNil())
		gomega.Expect(dto.Columns()).To(gomega.Equal(map[string]interface{}{"amount": int64(300)}))
	})
})

var _ = ginkgo.Describe("ParseFilter", func() {
	ginkgo.It("parses statuses, dates and sorting", func() {
		f, err := ParseFilter(url.Values{
			"status":     {"pending,disbursed"},
			"from":       {"2026-03-01"},
			"to":         {"2026-03-31"},
			"sort_by":    {"amount"},
			"sort_order": {"asc"},
		})
		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(f.Statuses).To(gomega.Equal([]string{"pending", "disbursed"}))
		gomega.Expect(*f.To).To(gomega.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
		gomega.Expect(f.OrderBy()).To(gomega.Equal("a.amount ASC, a.id ASC"))
	})

	ginkgo.DescribeTable("rejects bad values",
		func(key, value string) {
			_, err := ParseFilter(url.Values{key: {value}})
			gomega.Expect(err).NotTo(gomega.BeNil())
		},
		ginkgo.Entry("status", "status", "archived"),
		ginkgo.Entry("priority", "priority", "critical"),
		ginkgo.Entry("date", "from", "March"),
		ginkgo.Entry("sort column", "sort_by", "password_hash"),
		ginkgo.Entry("requester id", "requester_id", "abc"),
	)
})

var _ = ginkgo.Describe("Numbering", func() {
	ginkgo.It("formats numbers the pattern accepts", func() {
		at := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		n := FormatNumber("ADV", at, 7)
		gomega.Expect(n).To(gomega.Equal("ADV2026030007"))
		gomega.Expect(NumberPattern("ADV").MatchString(n)).To(gomega.BeTrue())
		gomega.Expect(NumberPattern("ADV").MatchString("ADV2026130007")).To(gomega.BeFalse())
		gomega.Expect(Period(at)).To(gomega.Equal("2026-03"))
	})
})
