// Package dberr classifies driver errors so repositories can translate them
// without caring whether they run on postgres or sqlite.
package dberr

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Constraint returns the violated index name (postgres) or the failing
// table.column list (sqlite).
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("UNIQUE constraint failed:"):])
	}
	return ""
}

// UserField names the users column behind a unique violation.
func UserField(err error) string {
	c := Constraint(err)
	switch {
	case strings.Contains(c, "employee_id"):
		return "employee_id"
	case strings.Contains(c, "email"):
		return "email"
	default:
		return "user"
	}
}

func IsRequestNumberConflict(err error) bool {
	return IsUniqueViolation(err) && strings.Contains(Constraint(err), "request_number")
}
