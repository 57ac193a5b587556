package advance

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/core/common/validation"
	"github.com/frahmantamala/cash-advance/internal/core/query"
)

// ParseFilter reads list filters from the query string. It only ever
// narrows; the caller's visibility scope is applied separately.
func ParseFilter(q url.Values) (query.AdvanceFilter, *apperrors.AppError) {
	var (
		f    query.AdvanceFilter
		errs []*apperrors.AppError
	)

	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if !Status(s).Valid() {
				errs = append(errs, apperrors.NewValidationFieldError("status", "unknown status "+s, apperrors.ErrCodeValidationFailed))
				continue
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	if p := strings.ToLower(strings.TrimSpace(q.Get("priority"))); p != "" {
		if !validPriority(p) {
			errs = append(errs, apperrors.NewValidationFieldError("priority", "priority must be one of: low, medium, high, urgent", apperrors.ErrCodeValidationFailed))
		} else {
			f.Priority = p
		}
	}

	f.Search = strings.TrimSpace(q.Get("search"))
	f.Department = strings.TrimSpace(q.Get("department"))

	if raw := q.Get("requester_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			errs = append(errs, apperrors.NewValidationFieldError("requester_id", "requester_id must be a positive integer", apperrors.ErrCodeInvalidID))
		} else {
			f.RequesterID = id
		}
	}

	if from, err := parseDay(q.Get("from"), "from"); err != nil {
		errs = append(errs, err)
	} else if from != nil {
		f.From = from
	}
	if to, err := parseDay(q.Get("to"), "to"); err != nil {
		errs = append(errs, err)
	} else if to != nil {
		end := to.AddDate(0, 0, 1)
		f.To = &end
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		errs = append(errs, apperrors.NewValidationFieldError("to", "to must not be before from", apperrors.ErrCodeInvalidDate))
	}

	if sortBy := strings.TrimSpace(q.Get("sort_by")); sortBy != "" {
		if !query.IsSortColumn(sortBy) {
			errs = append(errs, apperrors.NewValidationFieldError("sort_by", "unsupported sort_by "+sortBy, apperrors.ErrCodeValidationFailed))
		} else {
			f.SortBy = sortBy
		}
	}
	if order := strings.ToLower(strings.TrimSpace(q.Get("sort_order"))); order != "" {
		if order != "asc" && order != "desc" {
			errs = append(errs, apperrors.NewValidationFieldError("sort_order", "sort_order must be asc or desc", apperrors.ErrCodeValidationFailed))
		} else {
			f.SortOrder = order
		}
	}

	if err := validation.Merge(errs...); err != nil {
		return query.AdvanceFilter{}, err
	}
	return f, nil
}

func validPriority(p string) bool {
	for _, known := range AllPriorities {
		if Priority(p) == known {
			return true
		}
	}
	return false
}

// parseDay reads a YYYY-MM-DD date as the start of that UTC day.
func parseDay(raw, field string) (*time.Time, *apperrors.AppError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperrors.NewValidationFieldError(field, field+" must be a date in YYYY-MM-DD format", apperrors.ErrCodeInvalidDate)
	}
	return &t, nil
}
