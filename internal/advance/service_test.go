package advance

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	advanceDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/advance"
	userDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/user"
	"github.com/frahmantamala/cash-advance/internal/core/events"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

// memoryRepository mimics the conditional writes of the gorm repository.
type memoryRepository struct {
	mu        sync.Mutex
	users     map[int64]*userDatamodel.User
	advances  map[int64]*advanceDatamodel.Advance
	nextID    int64
	sequences map[string]int
}

func newMemoryRepository(users ...*coreuser.User) *memoryRepository {
	m := &memoryRepository{
		users:     make(map[int64]*userDatamodel.User),
		advances:  make(map[int64]*advanceDatamodel.Advance),
		nextID:    1,
		sequences: make(map[string]int),
	}
	for _, u := range users {
		m.users[u.ID] = &userDatamodel.User{ID: u.ID, Role: string(u.Role), Department: u.Department, IsActive: true}
	}
	return m
}

func (m *memoryRepository) Create(_ context.Context, a *advanceDatamodel.Advance, n NumberingCmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	period := Period(n.At)
	m.sequences[period]++
	a.ID = m.nextID
	m.nextID++
	a.Period = period
	a.Sequence = m.sequences[period]
	a.RequestNumber = FormatNumber(n.Prefix, n.At, a.Sequence)
	cp := *a
	m.advances[a.ID] = &cp
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id int64) (*advanceDatamodel.Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.advances[id]
	if !ok {
		return nil, apperrors.ErrAdvanceNotFound
	}
	return m.copyOf(a), nil
}

func (m *memoryRepository) copyOf(a *advanceDatamodel.Advance) *advanceDatamodel.Advance {
	cp := *a
	cp.Approvals = append([]advanceDatamodel.Approval(nil), a.Approvals...)
	cp.ExpenseItems = append([]advanceDatamodel.ExpenseItem(nil), a.ExpenseItems...)
	cp.Requester = m.users[a.RequesterID]
	return &cp
}

func (m *memoryRepository) List(_ context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) ([]*advanceDatamodel.Advance, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*advanceDatamodel.Advance
	for _, a := range m.advances {
		owner := m.users[a.RequesterID]
		switch scope.Kind {
		case query.ScopeAll:
		case query.ScopeOwn:
			if a.RequesterID != scope.UserID {
				continue
			}
		case query.ScopeDepartment:
			if owner == nil || owner.Department != scope.Department || owner.Role != scope.RequesterRole {
				continue
			}
		default:
			continue
		}
		if f.RequesterID > 0 && a.RequesterID != f.RequesterID {
			continue
		}
		matched = append(matched, m.copyOf(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := p.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memoryRepository) Transition(_ context.Context, cmd TransitionCmd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.advances[cmd.ID]
	if !ok {
		return apperrors.ErrAdvanceNotFound
	}
	if a.Status != string(cmd.From) || a.Version != cmd.Version {
		return apperrors.NewStateConflictError("Request is no longer in the expected state", apperrors.ErrCodeStaleState, a.Status, string(cmd.Action))
	}

	a.Status = string(cmd.To)
	a.Version++
	for col, v := range cmd.Columns {
		switch col {
		case "amount":
			a.Amount = v.(int64)
		case "purpose":
			a.Purpose = v.(string)
		case "disbursed_by":
			id := v.(int64)
			a.DisbursedBy = &id
		case "disbursed_at":
			t := v.(time.Time)
			a.DisbursedAt = &t
		case "disbursed_amount":
			amount := v.(int64)
			a.DisbursedAmount = &amount
		case "disbursement_method":
			method := v.(string)
			a.DisbursementMethod = &method
		case "retired_by":
			id := v.(int64)
			a.RetiredBy = &id
		case "retired_at":
			t := v.(time.Time)
			a.RetiredAt = &t
		case "total_expenses":
			total := v.(int64)
			a.TotalExpenses = &total
		case "balance_returned":
			balance := v.(int64)
			a.BalanceReturned = &balance
		}
	}
	if cmd.Approval != nil {
		ap := *cmd.Approval
		ap.ID = int64(len(a.Approvals) + 1)
		a.Approvals = append(a.Approvals, ap)
	}
	a.ExpenseItems = append(a.ExpenseItems, cmd.Items...)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = ginkgo.Describe("Service", func() {
	var (
		ctx       context.Context
		repo      *memoryRepository
		publisher *recordingPublisher
		svc       *Service
		now       time.Time
		outsider  *coreuser.User
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		outsider = &coreuser.User{ID: 6, Role: coreuser.RoleManager, Department: "Engineering"}
		repo = newMemoryRepository(owner, manager, finance, admin, other, outsider)
		publisher = &recordingPublisher{}
		svc = NewService(repo, publisher, apperrors.DefaultAdvanceConfig(), testLogger())
		svc.now = func() time.Time { return now }
	})

	create := func(actor *coreuser.User, amount int64) *Advance {
		a, err := svc.Create(ctx, actor, CreateAdvanceDTO{
			Amount:             amount,
			Purpose:            "travel reimbursement",
			ExpectedReturnDate: Date{now.AddDate(0, 0, 7)},
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		return a
	}

	ginkgo.It("creates pending advances with a monthly number", func() {
		a := create(owner, 500)
		gomega.Expect(a.Status).To(gomega.Equal(StatusPending))
		gomega.Expect(a.Amount).To(gomega.Equal(int64(500)))
		gomega.Expect(a.Priority).To(gomega.Equal(PriorityMedium))
		gomega.Expect(a.RequestNumber).To(gomega.MatchRegexp(`^ADV\d{4}(0[1-9]|1[0-2])\d{4}$`))
		gomega.Expect(a.RequestNumber).To(gomega.Equal("ADV2026030001"))
		gomega.Expect(create(other, 100).RequestNumber).To(gomega.Equal("ADV2026030002"))
		gomega.Expect(publisher.types()).To(gomega.ConsistOf(events.EventTypeAdvanceCreated, events.EventTypeAdvanceCreated))
	})

	ginkgo.It("rejects invalid requests before touching the store", func() {
		_, err := svc.Create(ctx, owner, CreateAdvanceDTO{Amount: 0, Purpose: "travel"})
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeValidation))
		gomega.Expect(repo.advances).To(gomega.BeEmpty())
	})

	ginkgo.It("walks the full lifecycle and reconciles the balance", func() {
		a := create(owner, 500)

		a, err := svc.Review(ctx, manager, a.ID, ApproveDTO{Action: "approve", Comments: "ok"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(a.Status).To(gomega.Equal(StatusManagerApproved))

		a, err = svc.Review(ctx, finance, a.ID, ApproveDTO{Action: "approve"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(a.Status).To(gomega.Equal(StatusFinanceApproved))
		gomega.Expect(a.Approvals).To(gomega.HaveLen(2))

		a, err = svc.Disburse(ctx, finance, a.ID, DisburseDTO{Method: "bank_transfer"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(a.Status).To(gomega.Equal(StatusDisbursed))
		gomega.Expect(a.Disbursement.Amount).To(gomega.Equal(int64(500)))

		spent := int64(480)
		a, err = svc.Retire(ctx, owner, a.ID, RetireDTO{TotalExpenses: &spent})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(a.Status).To(gomega.Equal(StatusRetired))
		gomega.Expect(a.Retirement.BalanceReturned).To(gomega.Equal(int64(20)))

		_, err = svc.Retire(ctx, owner, a.ID, RetireDTO{TotalExpenses: &spent})
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeStateConflict))

		gomega.Expect(publisher.types()).To(gomega.Equal([]string{
			events.EventTypeAdvanceCreated,
			events.EventTypeAdvanceApproved,
			events.EventTypeAdvanceApproved,
			events.EventTypeAdvanceDisbursed,
			events.EventTypeAdvanceRetired,
		}))
	})

	ginkgo.It("rejects with a reason and stops there", func() {
		a := create(owner, 500)
		a, err := svc.Review(ctx, manager, a.ID, ApproveDTO{RejectionReason: "no budget"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(a.Status).To(gomega.Equal(StatusRejected))
		latest, _ := a.LatestApproval()
		gomega.Expect(latest.Decision).To(gomega.Equal(DecisionReject))
		gomega.Expect(latest.Comment).To(gomega.Equal("no budget"))

		_, err = svc.Review(ctx, finance, a.ID, ApproveDTO{Action: "approve"})
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeStateConflict))
	})

	ginkgo.It("keeps managers inside their department", func() {
		a := create(owner, 500)
		_, err := svc.Review(ctx, outsider, a.ID, ApproveDTO{Action: "approve"})
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeForbidden))
	})

	ginkgo.It("lets exactly one of two concurrent approvals win", func() {
		a := create(owner, 500)
		second := &coreuser.User{ID: 7, Role: coreuser.RoleManager, Department: "Sales"}
		repo.users[second.ID] = &userDatamodel.User{ID: second.ID, Role: "manager", Department: "Sales"}

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i, reviewer := range []*coreuser.User{manager, second} {
			wg.Add(1)
			go func(i int, reviewer *coreuser.User) {
				defer ginkgo.GinkgoRecover()
				defer wg.Done()
				_, errs[i] = svc.Review(ctx, reviewer, a.ID, ApproveDTO{Action: "approve"})
			}(i, reviewer)
		}
		wg.Wait()

		var failures []error
		for _, err := range errs {
			if err != nil {
				failures = append(failures, err)
			}
		}
		gomega.Expect(failures).To(gomega.HaveLen(1))
		appErr, _ := apperrors.IsAppError(failures[0])
		gomega.Expect(appErr.Type).To(gomega.Equal(apperrors.ErrorTypeStateConflict))
		gomega.Expect(appErr.Details).To(gomega.HaveField("CurrentStatus", "manager_approved"))
		gomega.Expect(appErr.Details).To(gomega.HaveField("Action", "approve"))

		stored, _ := repo.GetByID(ctx, a.ID)
		gomega.Expect(stored.Approvals).To(gomega.HaveLen(1))
	})

	ginkgo.It("limits reads to owners and elevated roles", func() {
		a := create(owner, 500)
		_, err := svc.Get(ctx, other, a.ID)
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeForbidden))

		got, err := svc.Get(ctx, finance, a.ID)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(got.Requester.ID).To(gomega.Equal(ownerID))

		_, err = svc.Get(ctx, owner, 999)
		gomega.Expect(err).To(gomega.MatchError(apperrors.ErrAdvanceNotFound))
	})

	ginkgo.It("never widens a staff listing through filters", func() {
		create(owner, 500)
		create(other, 300)

		page, err := svc.List(ctx, owner, query.AdvanceFilter{RequesterID: other.ID}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(page.Items).To(gomega.BeEmpty())

		page, err = svc.List(ctx, owner, query.AdvanceFilter{}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(page.Items).To(gomega.HaveLen(1))
		gomega.Expect(page.Items[0].RequesterID).To(gomega.Equal(ownerID))

		page, err = svc.List(ctx, manager, query.AdvanceFilter{}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(page.Pagination.TotalRecords).To(gomega.Equal(int64(2)))

		page, err = svc.MyRequests(ctx, finance, query.AdvanceFilter{}, query.Params{Page: 1, Limit: 10})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(page.Items).To(gomega.BeEmpty())
	})

	ginkgo.It("edits content only while pending", func() {
		a := create(owner, 500)
		amount := int64(450)
		a, err := svc.Update(ctx, owner, a.ID, UpdateAdvanceDTO{Amount: &amount})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(a.Amount).To(gomega.Equal(int64(450)))
		gomega.Expect(a.Version).To(gomega.Equal(int64(2)))

		_, err = svc.Review(ctx, manager, a.ID, ApproveDTO{Action: "approve"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		_, err = svc.Update(ctx, owner, a.ID, UpdateAdvanceDTO{Amount: &amount})
		gomega.Expect(err).To(gomega.MatchError(apperrors.ErrCannotModify))
	})

	ginkgo.It("refuses to disburse more than requested", func() {
		a := create(owner, 500)
		_, err := svc.Review(ctx, manager, a.ID, ApproveDTO{Action: "approve"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		_, err = svc.Review(ctx, finance, a.ID, ApproveDTO{Action: "approve"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		over := int64(501)
		_, err = svc.Disburse(ctx, finance, a.ID, DisburseDTO{Amount: &over, Method: "cash"})
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeValidation))

		_, err = svc.Disburse(ctx, manager, a.ID, DisburseDTO{Method: "cash"})
		gomega.Expect(errorType(err)).To(gomega.Equal(apperrors.ErrorTypeForbidden))
	})
})
