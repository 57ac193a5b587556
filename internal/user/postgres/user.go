package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	advanceDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/advance"
	"github.com/frahmantamala/cash-advance/internal/core/datamodel/dberr"
	userDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/user"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
	"github.com/frahmantamala/cash-advance/internal/user"
)

// UserRepository implements user.Repository using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) List(ctx context.Context, f user.Filter, p query.Params) ([]*userDatamodel.User, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&userDatamodel.User{})
		if f.Role != "" {
			q = q.Where("role = ?", string(f.Role))
		}
		if f.Department != "" {
			q = q.Where("LOWER(department) = LOWER(?)", f.Department)
		}
		if f.IsActive != nil {
			q = q.Where("is_active = ?", *f.IsActive)
		}
		if f.Search != "" {
			like := "%" + strings.ToLower(f.Search) + "%"
			q = q.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(employee_id) LIKE ?)", like, like, like, like)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []*userDatamodel.User
	err := filtered().Order("last_name ASC, first_name ASC, id ASC").
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, columns map[string]interface{}) (*userDatamodel.User, error) {
	columns["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		if dberr.IsUniqueViolation(res.Error) {
			return nil, apperrors.NewDuplicateError(dberr.UserField(res.Error)).WithCause(res.Error)
		}
		return nil, fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user unless any advance or approval refers to them.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		err := tx.Model(&advanceDatamodel.Advance{}).
			Where("requester_id = ? OR disbursed_by = ? OR retired_by = ?", id, id, id).
			Count(&refs).Error
		if err != nil {
			return fmt.Errorf("count advances: %w", err)
		}
		if refs == 0 {
			err = tx.Model(&advanceDatamodel.Approval{}).Where("approver_id = ?", id).Count(&refs).Error
			if err != nil {
				return fmt.Errorf("count approvals: %w", err)
			}
		}
		if refs > 0 {
			return apperrors.ErrUserHasAdvances
		}

		res := tx.Delete(&userDatamodel.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) RoleCounts(ctx context.Context) ([]user.RoleCount, error) {
	var rows []struct {
		Role   string
		Total  int64
		Active int64
	}
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Select("role, COUNT(*) AS total, SUM(CASE WHEN is_active THEN 1 ELSE 0 END) AS active").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}

	counts := make([]user.RoleCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, user.RoleCount{Role: coreuser.Role(row.Role), Total: row.Total, Active: row.Active})
	}
	return counts, nil
}
