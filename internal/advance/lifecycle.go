package advance

import (
	"fmt"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/auth"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionDisburse Action = "disburse"
	ActionRetire   Action = "retire"

	// ActionUpdate edits a pending advance; it never changes the status.
	ActionUpdate Action = "update"
)

var actionOperation = map[Action]auth.Operation{
	ActionApprove:  auth.OpAdvanceApprove,
	ActionReject:   auth.OpAdvanceApprove,
	ActionDisburse: auth.OpAdvanceDisburse,
	ActionRetire:   auth.OpAdvanceRetire,
}

// reviewStage is the status each reviewing role acts on, and where an
// approval from that role leads.
var reviewStage = map[coreuser.Role]struct{ from, approved Status }{
	coreuser.RoleManager: {StatusPending, StatusManagerApproved},
	coreuser.RoleFinance: {StatusManagerApproved, StatusFinanceApproved},
}

// Transition computes the status an action leads to. It has no side effects;
// persisting the result is the caller's job.
func Transition(current Status, action Action, actor *coreuser.User, ownerID int64) (Status, error) {
	op, ok := actionOperation[action]
	if !ok {
		return current, apperrors.NewValidationFieldError("action", fmt.Sprintf("unknown action %q", action), apperrors.ErrCodeValidationFailed)
	}
	if err := auth.Authorize(actor, op); err != nil {
		return current, err
	}
	if !current.Valid() {
		return current, apperrors.NewStateConflictError("Advance has an unknown status", apperrors.ErrCodeInconsistentRecord, string(current), string(action))
	}
	if current.Terminal() {
		return current, conflict(current, action)
	}

	switch action {
	case ActionApprove, ActionReject:
		if actor.ID == ownerID {
			return current, apperrors.NewForbiddenError("You cannot review your own advance", apperrors.ErrCodeSelfModification)
		}
		stage, ok := reviewStage[actor.Role]
		if !ok || current != stage.from {
			return current, conflict(current, action)
		}
		if action == ActionReject {
			return StatusRejected, nil
		}
		return stage.approved, nil

	case ActionDisburse:
		if current != StatusFinanceApproved {
			return current, conflict(current, action)
		}
		return StatusDisbursed, nil

	case ActionRetire:
		if actor.ID != ownerID {
			return current, apperrors.NewForbiddenError("Only the requester can retire an advance", apperrors.ErrCodeUnauthorizedAccess)
		}
		if current != StatusDisbursed {
			return current, conflict(current, action)
		}
		return StatusRetired, nil
	}

	return current, conflict(current, action)
}

// CanEdit reports whether actor may still change the request content.
func CanEdit(a *Advance, actor *coreuser.User) error {
	if err := auth.Authorize(actor, auth.OpAdvanceUpdate); err != nil {
		return err
	}
	if actor.ID != a.RequesterID {
		return apperrors.NewForbiddenError("Only the requester can edit an advance", apperrors.ErrCodeUnauthorizedAccess)
	}
	if a.Status != StatusPending || len(a.Approvals) > 0 {
		return apperrors.ErrCannotModify.WithDetails(apperrors.StateConflictDetails{
			CurrentStatus: string(a.Status),
			Action:        string(ActionUpdate),
		})
	}
	return nil
}

func conflict(current Status, action Action) *apperrors.AppError {
	return apperrors.NewStateConflictError(
		fmt.Sprintf("Cannot %s an advance in status %s", action, current),
		apperrors.ErrCodeInvalidTransition,
		string(current),
		string(action),
	)
}
