package apps

import (
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

// DefiLOS correlates the loan-origination export. The primary identifier is
// the User Name column; when that misses, the local part of the email address
// in column J is tried as a backup account name. The export also carries one
// yes/no column per product role, which Roles turns into assignments.
type DefiLOS struct {
	h           *header
	emailCol    string
	activeCol   string
	roleColumns []string
}

const (
	losUsernameColumn = "User Name"
	losEmailColumnIdx = 9  // column J
	losActiveColIdx   = 10 // column K

	losExcludedNamespace = "sfs.funding"
)

// losMetadataColumns are user-attribute columns; everything else in the
// export header is a role column.
var losMetadataColumns = map[string]bool{
	"user name":         true,
	"first name":        true,
	"last name":         true,
	"phone number":      true,
	"cell phone number": true,
	"extension":         true,
	"fax number":        true,
	"employee id":       true,
	"region":            true,
	"email":             true,
	"active?":           true,
	"lastlogin?":        true,
}

func (a *DefiLOS) Name() string { return "defi-los" }

func (a *DefiLOS) Bind(headers []string) error {
	h, err := bindHeader(headers, losUsernameColumn)
	if err != nil {
		return err
	}
	a.h = h
	a.emailCol = h.at(losEmailColumnIdx)
	a.activeCol = h.at(losActiveColIdx)

	a.roleColumns = a.roleColumns[:0]
	for _, col := range headers {
		if !losMetadataColumns[strings.ToLower(strings.TrimSpace(col))] {
			a.roleColumns = append(a.roleColumns, col)
		}
	}
	return nil
}

func (a *DefiLOS) ShouldSkip(row review.Row) bool {
	if a.h.get(row, losUsernameColumn) == "" {
		return true
	}
	// Column K is the export's own active flag. When the export is too
	// narrow to carry it, every row is kept.
	if a.activeCol != "" {
		return !strings.EqualFold(strings.TrimSpace(row[a.activeCol]), "yes")
	}
	return false
}

func (a *DefiLOS) Attempts(row review.Row) ([]review.Attempt, string) {
	primary := a.h.get(row, losUsernameColumn)

	attempts := []review.Attempt{
		{Attr: review.AttrAccountName, Value: primary, Method: review.MethodPrimary},
	}
	if local := emailLocalPart(a.rowEmail(row)); local != "" {
		attempts = append(attempts, review.Attempt{
			Attr:   review.AttrAccountName,
			Value:  local,
			Method: review.MethodBackup,
		})
	}
	return attempts, primary
}

// DropAfterResolve excludes rows in the shared funding-mailbox namespace:
// those accounts are expected to miss the directory and would otherwise
// pollute the failure count.
func (a *DefiLOS) DropAfterResolve(row review.Row, method review.LookupMethod) bool {
	if method != review.MethodFailed {
		return false
	}
	return strings.Contains(strings.ToLower(a.rowEmail(row)), losExcludedNamespace)
}

func (a *DefiLOS) BuildRecord(_ review.Row, username string, id *review.Identity, method review.LookupMethod, original string) review.OutputRecord {
	return review.NewRecord(username, id, method, original)
}

func (a *DefiLOS) OutputColumns() []string {
	return review.StandardColumns()
}

// Roles emits one assignment per affirmed role column, or a single "No Roles"
// marker so every user still appears in the role review.
func (a *DefiLOS) Roles(row review.Row, rec review.OutputRecord) []review.RoleAssignment {
	username := rec.Username
	if username == "" {
		username = rec.OriginalIdentifier
	}
	department := rec.Department
	if department == "" {
		department = "Defi LOS"
	}
	title := rec.Title
	if title == "" {
		title = rec.FullName
	}
	if title == "" {
		title = username
	}

	var assigned []string
	for _, col := range a.roleColumns {
		switch strings.ToLower(strings.TrimSpace(row[col])) {
		case "yes", "y", "true", "1":
			assigned = append(assigned, cleanRoleName(col))
		}
	}
	if len(assigned) == 0 {
		assigned = []string{"No Roles"}
	}

	roles := make([]review.RoleAssignment, 0, len(assigned))
	for _, role := range assigned {
		roles = append(roles, review.RoleAssignment{
			Username:           username,
			Department:         department,
			Title:              title,
			Role:               role,
			OriginalIdentifier: rec.OriginalIdentifier,
		})
	}
	return roles
}

func (a *DefiLOS) rowEmail(row review.Row) string {
	if a.emailCol == "" {
		return ""
	}
	return strings.TrimSpace(row[a.emailCol])
}

func emailLocalPart(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	return strings.TrimSpace(email[:at])
}

// cleanRoleName turns a role column header into a readable role name:
// question marks dropped, words title-cased, common abbreviations kept upper.
func cleanRoleName(col string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(col, "?", ""))

	words := strings.Fields(cleaned)
	out := make([]string, 0, len(words))
	for _, w := range words {
		switch strings.ToLower(w) {
		case "admin", "mgr", "sr", "jr", "ii", "iii", "iv":
			out = append(out, strings.ToUpper(w))
		case "administrator":
			out = append(out, "Admin")
		case "representative":
			out = append(out, "Rep")
		default:
			out = append(out, titleCase(w))
		}
	}
	return strings.Join(out, " ")
}

func titleCase(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

var (
	_ review.App           = (*DefiLOS)(nil)
	_ review.RoleExtractor = (*DefiLOS)(nil)
	_ review.ResultFilter  = (*DefiLOS)(nil)
)
