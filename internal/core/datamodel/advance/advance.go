package advance

import (
	"time"

	userDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/user"
)

type Advance struct {
	ID                 int64     `gorm:"primaryKey"`
	RequestNumber      string    `gorm:"column:request_number;uniqueIndex:idx_advances_request_number;not null"`
	Period             string    `gorm:"column:period;index;not null"`
	Sequence           int       `gorm:"column:sequence;not null"`
	RequesterID        int64     `gorm:"column:requester_id;index;not null"`
	Amount             int64     `gorm:"column:amount;not null"`
	Purpose            string    `gorm:"column:purpose;not null"`
	Description        string    `gorm:"column:description"`
	Priority           string    `gorm:"column:priority;not null"`
	Status             string    `gorm:"column:status;index;not null"`
	RequestedDate      time.Time `gorm:"column:requested_date;not null"`
	ExpectedReturnDate time.Time `gorm:"column:expected_return_date;not null"`
	Version            int64     `gorm:"column:version;not null"`

	DisbursedBy           *int64     `gorm:"column:disbursed_by"`
	DisbursedAt           *time.Time `gorm:"column:disbursed_at"`
	DisbursedAmount       *int64     `gorm:"column:disbursed_amount"`
	DisbursementMethod    *string    `gorm:"column:disbursement_method"`
	DisbursementReference *string    `gorm:"column:disbursement_reference"`

	RetiredBy       *int64     `gorm:"column:retired_by"`
	RetiredAt       *time.Time `gorm:"column:retired_at"`
	TotalExpenses   *int64     `gorm:"column:total_expenses"`
	BalanceReturned *int64     `gorm:"column:balance_returned"`
	RetirementNotes *string    `gorm:"column:retirement_notes"`

	CreatedAt time.Time `gorm:"column:created_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	Requester    *userDatamodel.User `gorm:"foreignKey:RequesterID"`
	Approvals    []Approval          `gorm:"foreignKey:AdvanceID"`
	ExpenseItems []ExpenseItem       `gorm:"foreignKey:AdvanceID"`
}

func (Advance) TableName() string {
	return "advances"
}

// Approval is one immutable approve/reject event.
type Approval struct {
	ID           int64     `gorm:"primaryKey"`
	AdvanceID    int64     `gorm:"column:advance_id;index;not null"`
	ApproverID   int64     `gorm:"column:approver_id;not null"`
	ApproverRole string    `gorm:"column:approver_role;not null"`
	Decision     string    `gorm:"column:decision;not null"`
	Comment      string    `gorm:"column:comment"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (Approval) TableName() string {
	return "advance_approvals"
}

type ExpenseItem struct {
	ID               int64     `gorm:"primaryKey"`
	AdvanceID        int64     `gorm:"column:advance_id;index;not null"`
	Description      string    `gorm:"column:description;not null"`
	Category         string    `gorm:"column:category"`
	Amount           int64     `gorm:"column:amount;not null"`
	ReceiptReference string    `gorm:"column:receipt_reference"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
}

func (ExpenseItem) TableName() string {
	return "advance_expense_items"
}
