package query

import (
	"strings"
	"time"
)

// AdvanceFilter narrows a scoped advance query. Fields left empty do not
// constrain anything.
type AdvanceFilter struct {
	Statuses     []string
	Priority     string
	Search       string
	From         *time.Time
	To           *time.Time
	Department   string
	RequesterID  int64
	ReturnBefore *time.Time
	SortBy       string
	SortOrder    string
}

// likeEscaper makes search terms match literally under ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// sortColumns whitelists sort_by values; anything else never reaches SQL.
var sortColumns = map[string]string{
	"created_at":           "a.created_at",
	"amount":               "a.amount",
	"expected_return_date": "a.expected_return_date",
	"status":               "a.status",
	"priority":             "CASE a.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 ELSE 0 END",
	"request_number":       "a.request_number",
}

func IsSortColumn(name string) bool {
	_, ok := sortColumns[name]
	return ok
}

// AdvanceWhere renders the scope and filter as one conjunction over the
// aliases a (advances) and u (users, joined on the requester). Placeholders
// are '?' so the result feeds gorm directly and sqlx after Rebind.
func AdvanceWhere(scope Scope, f AdvanceFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	switch scope.Kind {
	case ScopeAll:
	case ScopeOwn:
		clauses = append(clauses, "a.requester_id = ?")
		args = append(args, scope.UserID)
	case ScopeDepartment:
		clauses = append(clauses, "LOWER(u.department) = LOWER(?)", "u.role = ?")
		args = append(args, strings.TrimSpace(scope.Department), scope.RequesterRole)
	default:
		return "1 = 0", nil
	}

	if len(f.Statuses) == 1 {
		clauses = append(clauses, "a.status = ?")
		args = append(args, f.Statuses[0])
	} else if len(f.Statuses) > 1 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Statuses)), ", ")
		clauses = append(clauses, "a.status IN ("+marks+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.Priority != "" {
		clauses = append(clauses, "a.priority = ?")
		args = append(args, f.Priority)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		clauses = append(clauses, "(LOWER(a.purpose) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(a.description, '')) LIKE ? ESCAPE '\\' OR LOWER(u.first_name) LIKE ? ESCAPE '\\' OR LOWER(u.last_name) LIKE ? ESCAPE '\\' OR LOWER(u.employee_id) LIKE ? ESCAPE '\\')")
		args = append(args, like, like, like, like, like)
	}
	if f.From != nil {
		clauses = append(clauses, "a.created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		clauses = append(clauses, "a.created_at < ?")
		args = append(args, *f.To)
	}
	if f.Department != "" {
		clauses = append(clauses, "LOWER(u.department) = LOWER(?)")
		args = append(args, strings.TrimSpace(f.Department))
	}
	if f.RequesterID > 0 {
		clauses = append(clauses, "a.requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.ReturnBefore != nil {
		clauses = append(clauses, "a.expected_return_date < ?")
		args = append(args, *f.ReturnBefore)
	}

	if len(clauses) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// OrderBy returns a whitelisted ORDER BY expression with a stable id tie-break.
func (f AdvanceFilter) OrderBy() string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns["created_at"]
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return col + " " + dir + ", a.id " + dir
}
