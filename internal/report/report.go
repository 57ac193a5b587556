package report

import (
	"github.com/frahmantamala/cash-advance/internal/advance"
)

type StatusTotal struct {
	Status advance.Status `json:"status" db:"status"`
	Count  int64          `json:"count" db:"count"`
	Amount int64          `json:"amount" db:"amount"`
}

// Totals are money sums over a scoped set of advances.
type Totals struct {
	Requests        int64 `json:"total_requests" db:"requests"`
	Amount          int64 `json:"total_amount" db:"amount"`
	Disbursed       int64 `json:"total_disbursed" db:"disbursed"`
	Expenses        int64 `json:"total_expenses" db:"expenses"`
	BalanceReturned int64 `json:"total_balance_returned" db:"balance_returned"`
	Outstanding     int64 `json:"outstanding" db:"outstanding"`
}

type DepartmentTotal struct {
	Department string `json:"department" db:"department"`
	Count      int64  `json:"count" db:"count"`
	Amount     int64  `json:"amount" db:"amount"`
}

type MonthlyTrend struct {
	Period    string `json:"period" db:"period"`
	Count     int64  `json:"count" db:"count"`
	Amount    int64  `json:"amount" db:"amount"`
	Disbursed int64  `json:"disbursed" db:"disbursed"`
	Rejected  int64  `json:"rejected" db:"rejected"`
}

type UserActivity struct {
	UserID        int64  `json:"user_id" db:"user_id"`
	EmployeeID    string `json:"employee_id" db:"employee_id"`
	FirstName     string `json:"first_name" db:"first_name"`
	LastName      string `json:"last_name" db:"last_name"`
	Department    string `json:"department" db:"department"`
	Role          string `json:"role" db:"role"`
	TotalRequests int64  `json:"total_requests" db:"total_requests"`
	TotalAmount   int64  `json:"total_amount" db:"total_amount"`
	InProgress    int64  `json:"in_progress" db:"in_progress"`
	Rejected      int64  `json:"rejected" db:"rejected"`
	Disbursed     int64  `json:"disbursed" db:"disbursed"`
	Retired       int64  `json:"retired" db:"retired"`
}

type TeamMember struct {
	UserID          int64  `json:"user_id" db:"user_id"`
	EmployeeID      string `json:"employee_id" db:"employee_id"`
	FirstName       string `json:"first_name" db:"first_name"`
	LastName        string `json:"last_name" db:"last_name"`
	Email           string `json:"email" db:"email"`
	Position        string `json:"position" db:"position"`
	IsActive        bool   `json:"is_active" db:"is_active"`
	TotalRequests   int64  `json:"total_requests" db:"total_requests"`
	PendingRequests int64  `json:"pending_requests" db:"pending_requests"`
	TotalAmount     int64  `json:"total_amount" db:"total_amount"`
}

// Summary is the aggregate view over one scoped, filtered set of advances.
// ByStatus always lists every status, zeroed when absent.
type Summary struct {
	Totals
	ByStatus     []StatusTotal     `json:"by_status"`
	ByDepartment []DepartmentTotal `json:"by_department"`
}

func NewSummary(totals Totals, statuses []StatusTotal, departments []DepartmentTotal) Summary {
	found := make(map[advance.Status]StatusTotal, len(statuses))
	for _, s := range statuses {
		found[s.Status] = s
	}

	byStatus := make([]StatusTotal, 0, len(advance.AllStatuses))
	for _, s := range advance.AllStatuses {
		st, ok := found[s]
		if !ok {
			st = StatusTotal{Status: s}
		}
		byStatus = append(byStatus, st)
	}

	if departments == nil {
		departments = []DepartmentTotal{}
	}
	return Summary{Totals: totals, ByStatus: byStatus, ByDepartment: departments}
}

// Count returns the number of advances in status s.
func (s Summary) Count(status advance.Status) int64 {
	for _, st := range s.ByStatus {
		if st.Status == status {
			return st.Count
		}
	}
	return 0
}

type ManagerDashboard struct {
	Summary          Summary            `json:"summary"`
	PendingApprovals int64              `json:"pending_approvals"`
	TeamSize         int                `json:"team_size"`
	RecentRequests   []*advance.Advance `json:"recent_requests"`
}

type ManagerReport struct {
	Summary  Summary        `json:"summary"`
	Trends   []MonthlyTrend `json:"monthly_trends"`
	TopUsers []UserActivity `json:"top_requesters"`
}
