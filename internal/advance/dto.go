package advance

import (
	"math"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/core/common/validation"
)

// Date accepts both "2006-01-02" and RFC 3339 in JSON bodies.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type CreateAdvanceDTO struct {
	Amount             int64  `json:"amount" validate:"required,gt=0"`
	Purpose            string `json:"purpose" validate:"required,min=3,max=200"`
	Description        string `json:"description" validate:"max=1000"`
	Priority           string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ExpectedReturnDate Date   `json:"expected_return_date"`
}

func (d *CreateAdvanceDTO) Normalize() {
	d.Purpose = strings.TrimSpace(d.Purpose)
	d.Description = strings.TrimSpace(d.Description)
	d.Priority = strings.ToLower(strings.TrimSpace(d.Priority))
	if d.Priority == "" {
		d.Priority = string(PriorityMedium)
	}
}

func (d CreateAdvanceDTO) Validate(maxAmount int64, now time.Time) *apperrors.AppError {
	v := validation.NewValidator()
	v.Field("amount", d.Amount).MaxInt(maxAmount, apperrors.ErrCodeAmountTooHigh)
	v.Field("expected_return_date", d.ExpectedReturnDate.Time).Custom(requiredDate("expected_return_date")).AfterDay(now)
	return validation.Merge(validation.Struct(d), v.Validate())
}

// UpdateAdvanceDTO changes request content while it is still untouched by reviewers.
type UpdateAdvanceDTO struct {
	Amount             *int64  `json:"amount" validate:"omitempty,gt=0"`
	Purpose            *string `json:"purpose" validate:"omitempty,min=3,max=200"`
	Description        *string `json:"description" validate:"omitempty,max=1000"`
	Priority           *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ExpectedReturnDate *Date   `json:"expected_return_date"`
}

func (d *UpdateAdvanceDTO) Normalize() {
	if d.Purpose != nil {
		*d.Purpose = strings.TrimSpace(*d.Purpose)
	}
	if d.Description != nil {
		*d.Description = strings.TrimSpace(*d.Description)
	}
	if d.Priority != nil {
		*d.Priority = strings.ToLower(strings.TrimSpace(*d.Priority))
	}
}

func (d UpdateAdvanceDTO) Validate(maxAmount int64, createdAt time.Time) *apperrors.AppError {
	v := validation.NewValidator()
	if d.Amount != nil {
		v.Field("amount", *d.Amount).MaxInt(maxAmount, apperrors.ErrCodeAmountTooHigh)
	}
	if d.ExpectedReturnDate != nil {
		v.Field("expected_return_date", d.ExpectedReturnDate.Time).Custom(requiredDate("expected_return_date")).AfterDay(createdAt)
	}
	if d.Amount == nil && d.Purpose == nil && d.Description == nil && d.Priority == nil && d.ExpectedReturnDate == nil {
		return apperrors.NewValidationError("No updatable fields supplied", apperrors.ErrCodeValidationFailed)
	}
	return validation.Merge(validation.Struct(d), v.Validate())
}

// Columns maps the set fields onto advances columns.
func (d UpdateAdvanceDTO) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if d.Amount != nil {
		cols["amount"] = *d.Amount
	}
	if d.Purpose != nil {
		cols["purpose"] = *d.Purpose
	}
	if d.Description != nil {
		cols["description"] = *d.Description
	}
	if d.Priority != nil {
		cols["priority"] = *d.Priority
	}
	if d.ExpectedReturnDate != nil {
		cols["expected_return_date"] = d.ExpectedReturnDate.Time
	}
	return cols
}

// ApproveDTO records a review. A non-empty rejection_reason turns the call
// into a rejection whatever action says.
type ApproveDTO struct {
	Action          string `json:"action" validate:"omitempty,oneof=approve reject"`
	Comments        string `json:"comments" validate:"max=1000"`
	RejectionReason string `json:"rejection_reason" validate:"max=1000"`
}

func (d ApproveDTO) Decision() Decision {
	if strings.TrimSpace(d.RejectionReason) != "" || strings.EqualFold(strings.TrimSpace(d.Action), string(DecisionReject)) {
		return DecisionReject
	}
	return DecisionApprove
}

func (d ApproveDTO) Comment() string {
	if reason := strings.TrimSpace(d.RejectionReason); reason != "" {
		return reason
	}
	return strings.TrimSpace(d.Comments)
}

func (d ApproveDTO) Validate() *apperrors.AppError {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	if err := validation.Struct(d); err != nil {
		return err
	}
	if d.Decision() == DecisionReject && d.Comment() == "" {
		return apperrors.NewValidationFieldError("rejection_reason", "a reason is required to reject an advance", apperrors.ErrCodeValidationFailed)
	}
	return nil
}

type DisburseDTO struct {
	Amount    *int64 `json:"disbursed_amount" validate:"omitempty,gt=0"`
	Method    string `json:"disbursement_method" validate:"required,oneof=cash bank_transfer cheque mobile_money"`
	Reference string `json:"disbursement_reference" validate:"max=100"`
}

func (d *DisburseDTO) Normalize() {
	d.Method = strings.ToLower(strings.TrimSpace(d.Method))
	d.Reference = strings.TrimSpace(d.Reference)
}

func (d DisburseDTO) Validate(advanceAmount int64) *apperrors.AppError {
	v := validation.NewValidator()
	if d.Amount != nil {
		v.Field("disbursed_amount", *d.Amount).MaxInt(advanceAmount, apperrors.ErrCodeAmountTooHigh)
	}
	return validation.Merge(validation.Struct(d), v.Validate())
}

// DisbursedAmount defaults to the requested amount.
func (d DisburseDTO) DisbursedAmount(advanceAmount int64) int64 {
	if d.Amount != nil {
		return *d.Amount
	}
	return advanceAmount
}

type ExpenseItemDTO struct {
	Description      string `json:"description" validate:"required,max=200"`
	Category         string `json:"category" validate:"max=50"`
	Amount           int64  `json:"amount" validate:"gte=0"`
	ReceiptReference string `json:"receipt_reference" validate:"max=100"`
}

// RetireDTO reconciles spending. When items are given they must add up to
// total_expenses; when the total is omitted it is their sum.
type RetireDTO struct {
	TotalExpenses *int64           `json:"total_expenses" validate:"omitempty,gte=0"`
	Items         []ExpenseItemDTO `json:"expense_items" validate:"dive"`
	Notes         string           `json:"notes" validate:"max=1000"`
}

func (d RetireDTO) Validate() *apperrors.AppError {
	if err := validation.Struct(d); err != nil {
		return err
	}
	if d.TotalExpenses == nil && len(d.Items) == 0 {
		return apperrors.NewValidationFieldError("total_expenses", "total_expenses or expense_items is required", apperrors.ErrCodeValidationFailed)
	}
	if len(d.Items) == 0 {
		return nil
	}
	sum, ok := d.itemsSum()
	if !ok {
		return apperrors.NewValidationFieldError("total_expenses", "sum of expense_items is too large", apperrors.ErrCodeInvalidAmount)
	}
	if d.TotalExpenses != nil && sum != *d.TotalExpenses {
		return apperrors.NewValidationFieldError("total_expenses", "total_expenses must equal the sum of expense_items", apperrors.ErrCodeInvalidAmount)
	}
	return nil
}

func (d RetireDTO) Total() int64 {
	if d.TotalExpenses != nil {
		return *d.TotalExpenses
	}
	sum, _ := d.itemsSum()
	return sum
}

// itemsSum reports false when the amounts overflow int64.
func (d RetireDTO) itemsSum() (int64, bool) {
	var sum int64
	for _, it := range d.Items {
		if it.Amount > math.MaxInt64-sum {
			return 0, false
		}
		sum += it.Amount
	}
	return sum, true
}

func requiredDate(field string) validation.ValidatorFunc {
	return func(value interface{}) *apperrors.AppError {
		if t, ok := value.(time.Time); ok && t.IsZero() {
			return apperrors.NewValidationFieldError(field, field+" is required", apperrors.ErrCodeInvalidDate)
		}
		return nil
	}
}
