package advance

import (
	"fmt"

	apperrors "github.com/frahmantamala/cash-advance/internal"
)

// Detail is the status-checked view of an advance. Each variant carries
// exactly the sub-records its status implies.
type Detail interface {
	Status() Status
	isDetail()
}

type Pending struct{}

type ManagerApproved struct {
	ManagerApproval Approval
}

type FinanceApproved struct {
	Approval Approval
}

type Disbursed struct {
	Approval     Approval
	Disbursement Disbursement
}

type Retired struct {
	Approval     Approval
	Disbursement Disbursement
	Retirement   Retirement
}

type Rejected struct {
	Rejection Approval
}

func (Pending) Status() Status         { return StatusPending }
func (ManagerApproved) Status() Status { return StatusManagerApproved }
func (FinanceApproved) Status() Status { return StatusFinanceApproved }
func (Disbursed) Status() Status       { return StatusDisbursed }
func (Retired) Status() Status         { return StatusRetired }
func (Rejected) Status() Status        { return StatusRejected }

func (Pending) isDetail()         {}
func (ManagerApproved) isDetail() {}
func (FinanceApproved) isDetail() {}
func (Disbursed) isDetail()       {}
func (Retired) isDetail()         {}
func (Rejected) isDetail()        {}

// DetailOf builds the variant for a stored advance and fails when the
// sub-records disagree with the status.
func DetailOf(a *Advance) (Detail, error) {
	latest, hasLatest := a.LatestApproval()
	noDisbursement := a.Disbursement == nil
	noRetirement := a.Retirement == nil

	switch a.Status {
	case StatusPending:
		if len(a.Approvals) == 0 && noDisbursement && noRetirement {
			return Pending{}, nil
		}
	case StatusManagerApproved:
		if hasLatest && latest.Decision == DecisionApprove && noDisbursement && noRetirement {
			return ManagerApproved{ManagerApproval: latest}, nil
		}
	case StatusFinanceApproved:
		if hasLatest && latest.Decision == DecisionApprove && noDisbursement && noRetirement {
			return FinanceApproved{Approval: latest}, nil
		}
	case StatusDisbursed:
		if hasLatest && latest.Decision == DecisionApprove && !noDisbursement && noRetirement {
			return Disbursed{Approval: latest, Disbursement: *a.Disbursement}, nil
		}
	case StatusRetired:
		if hasLatest && latest.Decision == DecisionApprove && !noDisbursement && !noRetirement {
			return Retired{Approval: latest, Disbursement: *a.Disbursement, Retirement: *a.Retirement}, nil
		}
	case StatusRejected:
		if hasLatest && latest.Decision == DecisionReject && noDisbursement && noRetirement {
			return Rejected{Rejection: latest}, nil
		}
	}

	return nil, apperrors.NewStateConflictError(
		fmt.Sprintf("Advance %s has sub-records inconsistent with status %s", a.RequestNumber, a.Status),
		apperrors.ErrCodeInconsistentRecord,
		string(a.Status),
		"",
	)
}
