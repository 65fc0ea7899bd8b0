package datascan

import (
	"strconv"
	"strings"

	"github.com/soxtools/adreview/pkg/review/xlsxio"
)

// Report sheet names, in workbook order.
const (
	SheetProcessed  = "Processed_Data"
	SheetSummary    = "User_Summary"
	SheetMatrix     = "Permission_Matrix"
	SheetHighRisk   = "High_Risk_Users"
	SheetValidation = "AD_Validation"
	SheetOrphaned   = "Orphaned_Access"
)

// BuildWorkbook assembles the full analysis workbook from parsed permissions
// and directory validation results.
func BuildWorkbook(perms []Permission, validations []Validation, deleteThreshold int) (*xlsxio.Workbook, error) {
	wb := xlsxio.NewWorkbook()

	if err := wb.AddSheet(SheetProcessed, processedHeader(), processedRows(perms)); err != nil {
		return nil, err
	}
	if err := wb.AddSheet(SheetSummary, summaryHeader(), summaryRows(SummarizeUsers(perms))); err != nil {
		return nil, err
	}
	if err := wb.AddSheet(SheetMatrix, matrixHeader(), matrixRows(perms)); err != nil {
		return nil, err
	}
	if err := wb.AddSheet(SheetHighRisk, summaryHeader(), summaryRows(HighRiskUsers(perms, deleteThreshold))); err != nil {
		return nil, err
	}
	if err := wb.AddSheet(SheetValidation, validationHeader(), validationRows(validations)); err != nil {
		return nil, err
	}
	if err := wb.AddSheet(SheetOrphaned, orphanHeader(), orphanRows(OrphanedAccess(perms, validations))); err != nil {
		return nil, err
	}
	return wb, nil
}

func processedHeader() []string {
	return []string{UserColumn, RolesColumn, AreaColumn, FeatureColumn, FunctionColumn, ViewColumn, AddEditColumn, DeleteColumn}
}

func processedRows(perms []Permission) [][]string {
	rows := make([][]string, 0, len(perms))
	for _, p := range perms {
		rows = append(rows, []string{
			p.User, p.Roles, p.Area, p.Feature, p.Function,
			marker(p.View), marker(p.AddEdit), marker(p.Delete),
		})
	}
	return rows
}

func marker(granted bool) string {
	if granted {
		return "X"
	}
	return ""
}

func summaryHeader() []string {
	return []string{"User", "Roles", "Functional Areas", "View Count", "Add/Edit Count", "Delete Count"}
}

func summaryRows(summaries []UserSummary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.User, s.Roles, strings.Join(s.Areas, ", "),
			strconv.Itoa(s.View), strconv.Itoa(s.AddEdit), strconv.Itoa(s.Delete),
		})
	}
	return rows
}

func matrixHeader() []string {
	return []string{"User", AreaColumn, FeatureColumn, FunctionColumn, "Permission Level"}
}

func matrixRows(perms []Permission) [][]string {
	rows := make([][]string, 0, len(perms))
	for _, p := range perms {
		rows = append(rows, []string{p.User, p.Area, p.Feature, p.Function, p.Level()})
	}
	return rows
}

func validationHeader() []string {
	return []string{"Report Name", "Found", "Username", "Display Name", "Email", "Department", "Title", "Account Disabled", "Lookup Method", "Error"}
}

func validationRows(validations []Validation) [][]string {
	rows := make([][]string, 0, len(validations))
	for _, v := range validations {
		rows = append(rows, []string{
			v.Name,
			strconv.FormatBool(v.Found),
			v.Username, v.DisplayName, v.Email, v.Department, v.Title,
			strconv.FormatBool(v.Disabled),
			string(v.Method),
			v.Err,
		})
	}
	return rows
}

func orphanHeader() []string {
	return []string{"User", RolesColumn, AreaColumn, FeatureColumn, FunctionColumn, "Permission Level", "Username", "Risk Level"}
}

func orphanRows(orphans []Orphan) [][]string {
	rows := make([][]string, 0, len(orphans))
	for _, o := range orphans {
		rows = append(rows, []string{
			o.User, o.Roles, o.Area, o.Feature, o.Function, o.Level(), o.Username, o.Risk,
		})
	}
	return rows
}
