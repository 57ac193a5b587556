package advance

import (
	"time"

	advanceDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/advance"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusManagerApproved Status = "manager_approved"
	StatusFinanceApproved Status = "finance_approved"
	StatusDisbursed       Status = "disbursed"
	StatusRejected        Status = "rejected"
	StatusRetired         Status = "retired"
)

var AllStatuses = []Status{
	StatusPending, StatusManagerApproved, StatusFinanceApproved,
	StatusDisbursed, StatusRejected, StatusRetired,
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal statuses absorb every further action.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusRetired
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

type DisbursementMethod string

const (
	MethodCash         DisbursementMethod = "cash"
	MethodBankTransfer DisbursementMethod = "bank_transfer"
	MethodCheque       DisbursementMethod = "cheque"
	MethodMobileMoney  DisbursementMethod = "mobile_money"
)

// Requester is the owner summary embedded in advance responses.
type Requester struct {
	ID         int64         `json:"id"`
	EmployeeID string        `json:"employee_id"`
	FirstName  string        `json:"first_name"`
	LastName   string        `json:"last_name"`
	Email      string        `json:"email"`
	Department string        `json:"department"`
	Position   string        `json:"position,omitempty"`
	Role       coreuser.Role `json:"role"`
}

type Approval struct {
	ID           int64         `json:"id"`
	ApproverID   int64         `json:"approver_id"`
	ApproverRole coreuser.Role `json:"approver_role"`
	Decision     Decision      `json:"decision"`
	Comment      string        `json:"comment,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

type Disbursement struct {
	DisbursedBy int64              `json:"disbursed_by"`
	DisbursedAt time.Time          `json:"disbursed_at"`
	Amount      int64              `json:"amount"`
	Method      DisbursementMethod `json:"method"`
	Reference   string             `json:"reference,omitempty"`
}

type ExpenseItem struct {
	ID               int64  `json:"id,omitempty"`
	Description      string `json:"description"`
	Category         string `json:"category,omitempty"`
	Amount           int64  `json:"amount"`
	ReceiptReference string `json:"receipt_reference,omitempty"`
}

type Retirement struct {
	RetiredBy       int64         `json:"retired_by"`
	RetiredAt       time.Time     `json:"retired_at"`
	Items           []ExpenseItem `json:"items"`
	TotalExpenses   int64         `json:"total_expenses"`
	BalanceReturned int64         `json:"balance_returned"`
	Notes           string        `json:"notes,omitempty"`
}

// Advance is the flat stored view of a request. Sub-records are nil until
// the lifecycle reaches them; Detail gives the status-checked view.
type Advance struct {
	ID                 int64         `json:"id"`
	RequestNumber      string        `json:"request_number"`
	RequesterID        int64         `json:"requester_id"`
	Requester          *Requester    `json:"requester,omitempty"`
	Amount             int64         `json:"amount"`
	Purpose            string        `json:"purpose"`
	Description        string        `json:"description,omitempty"`
	Priority           Priority      `json:"priority"`
	Status             Status        `json:"status"`
	RequestedDate      time.Time     `json:"requested_date"`
	ExpectedReturnDate time.Time     `json:"expected_return_date"`
	Version            int64         `json:"version"`
	Approvals          []Approval    `json:"approvals"`
	Disbursement       *Disbursement `json:"disbursement,omitempty"`
	Retirement         *Retirement   `json:"retirement,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// LatestApproval returns the most recent approval event, if any.
func (a *Advance) LatestApproval() (Approval, bool) {
	if len(a.Approvals) == 0 {
		return Approval{}, false
	}
	return a.Approvals[len(a.Approvals)-1], true
}

func FromDataModel(m *advanceDatamodel.Advance) *Advance {
	a := &Advance{
		ID:                 m.ID,
		RequestNumber:      m.RequestNumber,
		RequesterID:        m.RequesterID,
		Amount:             m.Amount,
		Purpose:            m.Purpose,
		Description:        m.Description,
		Priority:           Priority(m.Priority),
		Status:             Status(m.Status),
		RequestedDate:      m.RequestedDate,
		ExpectedReturnDate: m.ExpectedReturnDate,
		Version:            m.Version,
		Approvals:          make([]Approval, 0, len(m.Approvals)),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	if m.Requester != nil {
		a.Requester = RequesterFrom(coreuser.FromDataModel(m.Requester))
	}

	for _, ap := range m.Approvals {
		a.Approvals = append(a.Approvals, Approval{
			ID:           ap.ID,
			ApproverID:   ap.ApproverID,
			ApproverRole: coreuser.Role(ap.ApproverRole),
			Decision:     Decision(ap.Decision),
			Comment:      ap.Comment,
			CreatedAt:    ap.CreatedAt,
		})
	}

	if m.DisbursedAt != nil {
		d := &Disbursement{DisbursedAt: *m.DisbursedAt}
		if m.DisbursedBy != nil {
			d.DisbursedBy = *m.DisbursedBy
		}
		if m.DisbursedAmount != nil {
			d.Amount = *m.DisbursedAmount
		}
		if m.DisbursementMethod != nil {
			d.Method = DisbursementMethod(*m.DisbursementMethod)
		}
		if m.DisbursementReference != nil {
			d.Reference = *m.DisbursementReference
		}
		a.Disbursement = d
	}

	if m.RetiredAt != nil {
		r := &Retirement{RetiredAt: *m.RetiredAt, Items: make([]ExpenseItem, 0, len(m.ExpenseItems))}
		if m.RetiredBy != nil {
			r.RetiredBy = *m.RetiredBy
		}
		if m.TotalExpenses != nil {
			r.TotalExpenses = *m.TotalExpenses
		}
		if m.BalanceReturned != nil {
			r.BalanceReturned = *m.BalanceReturned
		}
		if m.RetirementNotes != nil {
			r.Notes = *m.RetirementNotes
		}
		for _, it := range m.ExpenseItems {
			r.Items = append(r.Items, ExpenseItem{
				ID:               it.ID,
				Description:      it.Description,
				Category:         it.Category,
				Amount:           it.Amount,
				ReceiptReference: it.ReceiptReference,
			})
		}
		a.Retirement = r
	}

	return a
}

func RequesterFrom(u *coreuser.User) *Requester {
	if u == nil {
		return nil
	}
	return &Requester{
		ID:         u.ID,
		EmployeeID: u.EmployeeID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Department: u.Department,
		Position:   u.Position,
		Role:       u.Role,
	}
}

func (r *Requester) User() *coreuser.User {
	if r == nil {
		return nil
	}
	return &coreuser.User{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Department: r.Department,
		Position:   r.Position,
		Role:       r.Role,
	}
}
