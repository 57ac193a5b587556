package user

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/auth"
	userDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/user"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

type Repository interface {
	List(ctx context.Context, f Filter, p query.Params) ([]*userDatamodel.User, int64, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Update(ctx context.Context, id int64, columns map[string]interface{}) (*userDatamodel.User, error)
	Delete(ctx context.Context, id int64) error
	RoleCounts(ctx context.Context) ([]RoleCount, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, actor *coreuser.User, f Filter, p query.Params) (query.Page[*coreuser.User], error) {
	if err := auth.Authorize(actor, auth.OpUserList); err != nil {
		return query.Page[*coreuser.User]{}, err
	}

	p = p.Normalize()
	records, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return query.Page[*coreuser.User]{}, err
	}
	return query.NewPage(coreuser.FromDataModelSlice(records), p, total), nil
}

func (s *Service) RolesSummary(ctx context.Context, actor *coreuser.User) (RolesSummary, error) {
	if err := auth.Authorize(actor, auth.OpUserRolesSummary); err != nil {
		return RolesSummary{}, err
	}

	counts, err := s.repo.RoleCounts(ctx)
	if err != nil {
		return RolesSummary{}, err
	}
	return NewRolesSummary(counts), nil
}

// Get returns a user to themselves or to an elevated role.
func (s *Service) Get(ctx context.Context, actor *coreuser.User, id int64) (*coreuser.User, error) {
	if err := auth.CheckOwnership(actor, id); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return coreuser.FromDataModel(record), nil
}

// Update applies profile changes. Users edit their own name and phone;
// administrators may edit anyone and also department and position.
func (s *Service) Update(ctx context.Context, actor *coreuser.User, id int64, dto UpdateUserDTO) (*coreuser.User, error) {
	if actor == nil {
		return nil, apperrors.ErrMissingToken
	}

	isAdmin := auth.Allowed(actor.Role, auth.OpUserManage)
	if actor.ID != id && !isAdmin {
		s.logger.Warn("user update denied", "actor_id", actor.ID, "target_id", id)
		return nil, apperrors.ErrUnauthorizedAccess
	}
	if dto.touchesAdminFields() && !isAdmin {
		return nil, apperrors.ErrInsufficientRole.WithDetails(map[string]string{
			"fields": "department, position",
		})
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	columns := dto.Columns()
	if len(columns) == 0 {
		return nil, apperrors.NewValidationError("No updatable fields supplied", apperrors.ErrCodeValidationFailed)
	}

	record, err := s.repo.Update(ctx, id, columns)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "actor_id", actor.ID, "user_id", id, "fields", len(columns))
	return coreuser.FromDataModel(record), nil
}

func (s *Service) UpdateRole(ctx context.Context, actor *coreuser.User, id int64, dto UpdateRoleDTO) (*coreuser.User, error) {
	if err := s.authorizeManage(actor, id); err != nil {
		return nil, err
	}

	dto.Role = strings.ToLower(strings.TrimSpace(dto.Role))
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.Update(ctx, id, map[string]interface{}{"role": dto.Role})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user role changed", "actor_id", actor.ID, "user_id", id, "role", dto.Role)
	return coreuser.FromDataModel(record), nil
}

func (s *Service) UpdateStatus(ctx context.Context, actor *coreuser.User, id int64, dto UpdateStatusDTO) (*coreuser.User, error) {
	if err := s.authorizeManage(actor, id); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.Update(ctx, id, map[string]interface{}{"is_active": *dto.IsActive})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user status changed", "actor_id", actor.ID, "user_id", id, "is_active", *dto.IsActive)
	return coreuser.FromDataModel(record), nil
}

// Delete removes an account that no advance record refers to.
func (s *Service) Delete(ctx context.Context, actor *coreuser.User, id int64) error {
	if err := s.authorizeManage(actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("user delete refused", "error", err, "actor_id", actor.ID, "user_id", id)
		return err
	}

	s.logger.Info("user deleted", "actor_id", actor.ID, "user_id", id)
	return nil
}

func (s *Service) authorizeManage(actor *coreuser.User, targetID int64) error {
	if err := auth.Authorize(actor, auth.OpUserManage); err != nil {
		return err
	}
	if actor.ID == targetID {
		return apperrors.ErrSelfModification
	}
	return nil
}
