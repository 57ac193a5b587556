package advance

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/auth"
	advanceDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/advance"
	"github.com/frahmantamala/cash-advance/internal/core/events"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

// TransitionCmd is one conditional write: it applies only while the stored
// advance still has status From at Version.
type TransitionCmd struct {
	ID       int64
	Action   Action
	From     Status
	Version  int64
	To       Status
	Columns  map[string]interface{}
	Approval *advanceDatamodel.Approval
	Items    []advanceDatamodel.ExpenseItem
}

// NumberingCmd tells Create how to assign the request number.
type NumberingCmd struct {
	Prefix   string
	At       time.Time
	Attempts int
}

type Repository interface {
	Create(ctx context.Context, a *advanceDatamodel.Advance, numbering NumberingCmd) error
	GetByID(ctx context.Context, id int64) (*advanceDatamodel.Advance, error)
	List(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) ([]*advanceDatamodel.Advance, int64, error)
	Transition(ctx context.Context, cmd TransitionCmd) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      Repository
	publisher EventPublisher
	cfg       apperrors.AdvanceConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher EventPublisher, cfg apperrors.AdvanceConfig, logger *slog.Logger) *Service {
	defaults := apperrors.DefaultAdvanceConfig()
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = defaults.NumberPrefix
	}
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = defaults.MaxAmount
	}
	if cfg.NumberRetryAttempts <= 0 {
		cfg.NumberRetryAttempts = defaults.NumberRetryAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Create submits a new advance in status pending.
func (s *Service) Create(ctx context.Context, actor *coreuser.User, dto CreateAdvanceDTO) (*Advance, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceCreate); err != nil {
		return nil, err
	}

	now := s.now()
	dto.Normalize()
	if err := dto.Validate(s.cfg.MaxAmount, now); err != nil {
		return nil, err
	}

	record := &advanceDatamodel.Advance{
		RequesterID:        actor.ID,
		Amount:             dto.Amount,
		Purpose:            dto.Purpose,
		Description:        dto.Description,
		Priority:           dto.Priority,
		Status:             string(StatusPending),
		RequestedDate:      now,
		ExpectedReturnDate: dto.ExpectedReturnDate.Time,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.repo.Create(ctx, record, NumberingCmd{
		Prefix:   s.cfg.NumberPrefix,
		At:       now,
		Attempts: s.cfg.NumberRetryAttempts,
	})
	if err != nil {
		s.logger.Error("failed to create advance", "error", err, "user_id", actor.ID)
		return nil, err
	}

	s.logger.Info("advance created",
		"advance_id", record.ID,
		"request_number", record.RequestNumber,
		"user_id", actor.ID,
		"amount", record.Amount)
	s.publish(ctx, events.EventTypeAdvanceCreated, record.ID, record.RequestNumber, actor.ID, "", StatusPending, record.Amount)

	return s.load(ctx, record.ID)
}

// Get returns an advance to its requester or to an elevated role.
func (s *Service) Get(ctx context.Context, actor *coreuser.User, id int64) (*Advance, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceView); err != nil {
		return nil, err
	}

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(actor, a.RequesterID); err != nil {
		s.logger.Warn("unauthorized access to advance", "advance_id", id, "user_id", actor.ID, "requester_id", a.RequesterID)
		return nil, err
	}
	return a, nil
}

// List pages the advances inside the actor's visibility scope.
func (s *Service) List(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error) {
	if err := auth.Authorize(actor, auth.OpAdvanceList); err != nil {
		return query.Page[*Advance]{}, err
	}
	return s.list(ctx, auth.VisibilityScope(actor), f, p)
}

// MyRequests pages the actor's own advances whatever their role.
func (s *Service) MyRequests(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error) {
	if err := auth.Authorize(actor, auth.OpAdvanceOwnViews); err != nil {
		return query.Page[*Advance]{}, err
	}
	return s.list(ctx, query.Own(actor.ID), f, p)
}

// ListInScope pages advances for an explicit scope; callers derive it from
// the acting user.
func (s *Service) ListInScope(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error) {
	return s.list(ctx, scope, f, p)
}

func (s *Service) list(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) (query.Page[*Advance], error) {
	p = p.Normalize()
	records, total, err := s.repo.List(ctx, scope, f, p)
	if err != nil {
		return query.Page[*Advance]{}, err
	}

	items := make([]*Advance, 0, len(records))
	for _, r := range records {
		items = append(items, FromDataModel(r))
	}
	return query.NewPage(items, p, total), nil
}

// Update edits request content while the advance is pending and unreviewed.
func (s *Service) Update(ctx context.Context, actor *coreuser.User, id int64, dto UpdateAdvanceDTO) (*Advance, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceUpdate); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanEdit(current, actor); err != nil {
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(s.cfg.MaxAmount, current.CreatedAt); err != nil {
		return nil, err
	}

	err = s.repo.Transition(ctx, TransitionCmd{
		ID:      id,
		Action:  ActionUpdate,
		From:    StatusPending,
		Version: current.Version,
		To:      StatusPending,
		Columns: dto.Columns(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("advance updated", "advance_id", id, "user_id", actor.ID)
	return s.load(ctx, id)
}

// Review appends an approval event and moves the advance to the status that
// event implies.
func (s *Service) Review(ctx context.Context, actor *coreuser.User, id int64, dto ApproveDTO) (*Advance, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceApprove); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.loadConsistent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.InScope(actor, current.Requester.User()) {
		s.logger.Warn("review outside visibility scope", "advance_id", id, "user_id", actor.ID)
		return nil, apperrors.ErrUnauthorizedAccess
	}

	decision := dto.Decision()
	action := ActionApprove
	if decision == DecisionReject {
		action = ActionReject
	}

	next, err := Transition(current.Status, action, actor, current.RequesterID)
	if err != nil {
		s.logger.Warn("review refused", "advance_id", id, "user_id", actor.ID, "status", current.Status, "error", err)
		return nil, err
	}

	now := s.now()
	err = s.repo.Transition(ctx, TransitionCmd{
		ID:      id,
		Action:  action,
		From:    current.Status,
		Version: current.Version,
		To:      next,
		Approval: &advanceDatamodel.Approval{
			AdvanceID:    id,
			ApproverID:   actor.ID,
			ApproverRole: string(actor.Role),
			Decision:     string(decision),
			Comment:      dto.Comment(),
			CreatedAt:    now,
		},
	})
	if err != nil {
		return nil, err
	}

	eventType := events.EventTypeAdvanceApproved
	if decision == DecisionReject {
		eventType = events.EventTypeAdvanceRejected
	}
	s.logger.Info("advance reviewed",
		"advance_id", id,
		"user_id", actor.ID,
		"decision", decision,
		"from", current.Status,
		"to", next)
	s.publish(ctx, eventType, id, current.RequestNumber, actor.ID, current.Status, next, current.Amount)

	return s.load(ctx, id)
}

// Disburse records the release of funds for a finance-approved advance.
func (s *Service) Disburse(ctx context.Context, actor *coreuser.User, id int64, dto DisburseDTO) (*Advance, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceDisburse); err != nil {
		return nil, err
	}

	current, err := s.loadConsistent(ctx, id)
	if err != nil {
		return nil, err
	}

	dto.Normalize()
	if err := dto.Validate(current.Amount); err != nil {
		return nil, err
	}

	next, err := Transition(current.Status, ActionDisburse, actor, current.RequesterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	amount := dto.DisbursedAmount(current.Amount)
	columns := map[string]interface{}{
		"disbursed_by":        actor.ID,
		"disbursed_at":        now,
		"disbursed_amount":    amount,
		"disbursement_method": dto.Method,
	}
	if dto.Reference != "" {
		columns["disbursement_reference"] = dto.Reference
	}

	err = s.repo.Transition(ctx, TransitionCmd{
		ID:      id,
		Action:  ActionDisburse,
		From:    current.Status,
		Version: current.Version,
		To:      next,
		Columns: columns,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("advance disbursed", "advance_id", id, "user_id", actor.ID, "amount", amount, "method", dto.Method)
	s.publish(ctx, events.EventTypeAdvanceDisbursed, id, current.RequestNumber, actor.ID, current.Status, next, amount)

	return s.load(ctx, id)
}

// Retire reconciles the requester's spending against the disbursed amount.
// A negative balance means the requester is owed a reimbursement.
func (s *Service) Retire(ctx context.Context, actor *coreuser.User, id int64, dto RetireDTO) (*Advance, error) {
	if err := auth.Authorize(actor, auth.OpAdvanceRetire); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.loadConsistent(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := Transition(current.Status, ActionRetire, actor, current.RequesterID)
	if err != nil {
		return nil, err
	}

	detail, err := DetailOf(current)
	if err != nil {
		return nil, err
	}
	disbursed, ok := detail.(Disbursed)
	if !ok {
		return nil, apperrors.NewStateConflictError("Advance has not been disbursed", apperrors.ErrCodeInvalidTransition, string(current.Status), string(ActionRetire))
	}

	now := s.now()
	total := dto.Total()
	balance := disbursed.Disbursement.Amount - total

	items := make([]advanceDatamodel.ExpenseItem, 0, len(dto.Items))
	for _, it := range dto.Items {
		items = append(items, advanceDatamodel.ExpenseItem{
			AdvanceID:        id,
			Description:      it.Description,
			Category:         it.Category,
			Amount:           it.Amount,
			ReceiptReference: it.ReceiptReference,
			CreatedAt:        now,
		})
	}

	columns := map[string]interface{}{
		"retired_by":       actor.ID,
		"retired_at":       now,
		"total_expenses":   total,
		"balance_returned": balance,
	}
	if dto.Notes != "" {
		columns["retirement_notes"] = dto.Notes
	}

	err = s.repo.Transition(ctx, TransitionCmd{
		ID:      id,
		Action:  ActionRetire,
		From:    current.Status,
		Version: current.Version,
		To:      next,
		Columns: columns,
		Items:   items,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("advance retired", "advance_id", id, "user_id", actor.ID, "total_expenses", total, "balance_returned", balance)
	s.publish(ctx, events.EventTypeAdvanceRetired, id, current.RequestNumber, actor.ID, current.Status, next, total)

	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id int64) (*Advance, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(record), nil
}

// loadConsistent refuses to act on records whose sub-records contradict their status.
func (s *Service) loadConsistent(ctx context.Context, id int64) (*Advance, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := DetailOf(a); err != nil {
		s.logger.Error("inconsistent advance record", "advance_id", id, "status", a.Status)
		return nil, err
	}
	return a, nil
}

func (s *Service) publish(ctx context.Context, eventType string, id int64, number string, actorID int64, from, to Status, amount int64) {
	if s.publisher == nil {
		return
	}
	ev := events.NewAdvanceEvent(eventType, id, number, actorID, string(from), string(to), amount)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish advance event", "error", err, "event_type", eventType, "advance_id", id)
	}
}
