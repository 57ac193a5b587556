package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/frahmantamala/cash-advance/internal"
	"github.com/frahmantamala/cash-advance/internal/advance"
	"github.com/frahmantamala/cash-advance/internal/auth"
	"github.com/frahmantamala/cash-advance/internal/core/query"
	coreuser "github.com/frahmantamala/cash-advance/internal/core/user"
)

const (
	summarySheet  = "Summary"
	advancesSheet = "Advances"
	exportPage    = query.MaxLimit
	maxExportRows = 10_000
)

var advanceHeaders = []string{
	"Request Number", "Employee ID", "Requester", "Department", "Amount", "Purpose",
	"Priority", "Status", "Requested", "Expected Return", "Disbursed", "Expenses", "Balance Returned",
}

// Export writes the summary and the matching advances to an xlsx workbook.
func (s *Service) Export(ctx context.Context, actor *coreuser.User, f query.AdvanceFilter) (*bytes.Buffer, string, error) {
	if err := auth.Authorize(actor, auth.OpReportExport); err != nil {
		return nil, "", err
	}
	scope := auth.VisibilityScope(actor)

	summary, err := s.summary(ctx, scope, f)
	if err != nil {
		return nil, "", err
	}

	var rows []*advance.Advance
	for page := 1; len(rows) < maxExportRows; page++ {
		p, err := s.advances.ListInScope(ctx, scope, f, query.Params{Page: page, Limit: exportPage})
		if err != nil {
			return nil, "", err
		}
		rows = append(rows, p.Items...)
		if !p.Pagination.HasNext {
			break
		}
	}
	if len(rows) > maxExportRows {
		rows = rows[:maxExportRows]
	}

	wb := excelize.NewFile()
	defer func() {
		if cerr := wb.Close(); cerr != nil {
			s.logger.Warn("failed to close workbook", "error", cerr)
		}
	}()

	if err := writeSummarySheet(wb, summary); err != nil {
		return nil, "", apperrors.NewInternalError("failed to build report", err)
	}
	if err := writeAdvancesSheet(wb, rows); err != nil {
		return nil, "", apperrors.NewInternalError("failed to build report", err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to build report", err)
	}

	s.logger.Info("report exported", "user_id", actor.ID, "rows", len(rows))
	return buf, fmt.Sprintf("cash-advances-%s.xlsx", s.now().UTC().Format("20060102-150405")), nil
}

func writeSummarySheet(wb *excelize.File, summary Summary) error {
	if err := wb.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}

	lines := [][]interface{}{
		{"Total requests", summary.Requests},
		{"Total amount", summary.Amount},
		{"Total disbursed", summary.Disbursed},
		{"Total expenses", summary.Expenses},
		{"Total balance returned", summary.BalanceReturned},
		{"Outstanding", summary.Outstanding},
		{},
		{"Status", "Count", "Amount"},
	}
	for _, st := range summary.ByStatus {
		lines = append(lines, []interface{}{string(st.Status), st.Count, st.Amount})
	}
	lines = append(lines, []interface{}{}, []interface{}{"Department", "Count", "Amount"})
	for _, d := range summary.ByDepartment {
		lines = append(lines, []interface{}{d.Department, d.Count, d.Amount})
	}

	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(summarySheet, cell, &line); err != nil {
			return err
		}
	}
	return nil
}

func writeAdvancesSheet(wb *excelize.File, rows []*advance.Advance) error {
	if _, err := wb.NewSheet(advancesSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(advanceHeaders))
	for i, h := range advanceHeaders {
		header[i] = h
	}
	if err := wb.SetSheetRow(advancesSheet, "A1", &header); err != nil {
		return err
	}

	for i, a := range rows {
		var employeeID, name, department string
		if a.Requester != nil {
			employeeID = a.Requester.EmployeeID
			name = a.Requester.FirstName + " " + a.Requester.LastName
			department = a.Requester.Department
		}
		var disbursed, expenses, balance interface{}
		if a.Disbursement != nil {
			disbursed = a.Disbursement.Amount
		}
		if a.Retirement != nil {
			expenses = a.Retirement.TotalExpenses
			balance = a.Retirement.BalanceReturned
		}

		line := []interface{}{
			a.RequestNumber, employeeID, name, department, a.Amount, a.Purpose,
			string(a.Priority), string(a.Status),
			a.RequestedDate.UTC().Format("2006-01-02"),
			a.ExpectedReturnDate.UTC().Format("2006-01-02"),
			disbursed, expenses, balance,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(advancesSheet, cell, &line); err != nil {
			return err
		}
	}
	return nil
}
