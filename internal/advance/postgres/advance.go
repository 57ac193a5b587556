package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/advance"
	advanceDatamodel "github.com/frahmantamala/cash-advance/internal/core/datamodel/advance"
	"github.com/frahmantamala/cash-advance/internal/core/datamodel/dberr"
	"github.com/frahmantamala/cash-advance/internal/core/query"
)

var errStaleState = errors.New("advance changed since it was read")

// AdvanceRepository implements advance.Repository using GORM
type AdvanceRepository struct {
	db *gorm.DB
}

func NewAdvanceRepository(db *gorm.DB) *AdvanceRepository {
	return &AdvanceRepository{db: db}
}

var _ advance.Repository = (*AdvanceRepository)(nil)

// Create assigns the next request number for the month and inserts the
// advance. A concurrent insert of the same number is retried with a fresh
// read of the sequence.
func (r *AdvanceRepository) Create(ctx context.Context, a *advanceDatamodel.Advance, numbering advance.NumberingCmd) error {
	period := advance.Period(numbering.At)

	for attempt := 1; attempt <= numbering.Attempts; attempt++ {
		var last int
		err := r.db.WithContext(ctx).Model(&advanceDatamodel.Advance{}).
			Where("period = ?", period).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error
		if err != nil {
			return fmt.Errorf("read sequence: %w", err)
		}
		if last >= advance.MaxSequence {
			return apperrors.NewConflictError("Monthly request number range is exhausted", apperrors.ErrCodeSequenceConflict)
		}

		a.ID = 0
		a.Period = period
		a.Sequence = last + 1
		a.RequestNumber = advance.FormatNumber(numbering.Prefix, numbering.At, a.Sequence)

		err = r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
		if err == nil {
			return nil
		}
		if !dberr.IsRequestNumberConflict(err) {
			return fmt.Errorf("create advance: %w", err)
		}
	}

	return apperrors.NewConflictError("Could not assign a request number, please retry", apperrors.ErrCodeSequenceConflict)
}

func (r *AdvanceRepository) GetByID(ctx context.Context, id int64) (*advanceDatamodel.Advance, error) {
	var a advanceDatamodel.Advance
	err := r.preloaded(ctx).First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAdvanceNotFound
		}
		return nil, fmt.Errorf("get advance: %w", err)
	}
	return &a, nil
}

// List selects the page of ids under the scope and filter, then loads those
// advances with their sub-records in the same order.
func (r *AdvanceRepository) List(ctx context.Context, scope query.Scope, f query.AdvanceFilter, p query.Params) ([]*advanceDatamodel.Advance, int64, error) {
	where, args := query.AdvanceWhere(scope, f)
	filtered := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Table("advances AS a").
			Joins("JOIN users u ON u.id = a.requester_id").
			Where(where, args...)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count advances: %w", err)
	}
	if total == 0 {
		return []*advanceDatamodel.Advance{}, 0, nil
	}

	var ids []int64
	err := filtered().
		Order(f.OrderBy()).
		Limit(p.Limit).
		Offset(p.Offset()).
		Pluck("a.id", &ids).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list advances: %w", err)
	}
	if len(ids) == 0 {
		return []*advanceDatamodel.Advance{}, total, nil
	}

	var rows []*advanceDatamodel.Advance
	if err := r.preloaded(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("load advances: %w", err)
	}

	byID := make(map[int64]*advanceDatamodel.Advance, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]*advanceDatamodel.Advance, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, total, nil
}

// Transition applies cmd only if the stored row still matches cmd.From and
// cmd.Version. The status write and any approval or expense rows commit
// together or not at all.
func (r *AdvanceRepository) Transition(ctx context.Context, cmd advance.TransitionCmd) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := make(map[string]interface{}, len(cmd.Columns)+3)
		for k, v := range cmd.Columns {
			updates[k] = v
		}
		updates["status"] = string(cmd.To)
		updates["version"] = gorm.Expr("version + 1")
		updates["updated_at"] = time.Now()

		res := tx.Model(&advanceDatamodel.Advance{}).
			Where("id = ? AND status = ? AND version = ?", cmd.ID, string(cmd.From), cmd.Version).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update advance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errStaleState
		}

		if cmd.Approval != nil {
			if err := tx.Create(cmd.Approval).Error; err != nil {
				return fmt.Errorf("insert approval: %w", err)
			}
		}
		if len(cmd.Items) > 0 {
			if err := tx.Create(&cmd.Items).Error; err != nil {
				return fmt.Errorf("insert expense items: %w", err)
			}
		}
		return nil
	})
	if !errors.Is(err, errStaleState) {
		return err
	}

	var current advanceDatamodel.Advance
	err = r.db.WithContext(ctx).Select("id", "status").First(&current, cmd.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAdvanceNotFound
		}
		return fmt.Errorf("reload advance: %w", err)
	}
	return apperrors.NewStateConflictError("Request is no longer in the expected state", apperrors.ErrCodeStaleState, current.Status, string(cmd.Action))
}

func (r *AdvanceRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("ExpenseItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}
