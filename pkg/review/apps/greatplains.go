package apps

import (
	"github.com/soxtools/adreview/pkg/review"
)

// GreatPlains correlates the ERP security export. The export carries person
// names rather than account names, so resolution tries an exact display-name
// match first and falls back to a given-name+surname compound query.
type GreatPlains struct {
	h *header
}

const (
	gpUsernameColumn     = "username"
	gpTitleColumn        = "title"
	gpDepartmentColumn   = "department"
	gpSecurityRoleColumn = "SECURITYROLEID"
)

func (a *GreatPlains) Name() string { return "great-plains" }

func (a *GreatPlains) Bind(headers []string) error {
	h, err := bindHeader(headers, gpUsernameColumn)
	if err != nil {
		return err
	}
	a.h = h
	return nil
}

func (a *GreatPlains) ShouldSkip(row review.Row) bool {
	return a.h.get(row, gpUsernameColumn) == ""
}

func (a *GreatPlains) Attempts(row review.Row) ([]review.Attempt, string) {
	raw := a.h.get(row, gpUsernameColumn)
	fullName := review.CollapseSpaces(raw)

	attempts := []review.Attempt{
		{Attr: review.AttrDisplayName, Value: fullName, Method: review.MethodDisplayName},
	}
	if given, surname, ok := review.SplitName(fullName); ok {
		attempts = append(attempts, review.Attempt{
			GivenName: given,
			Surname:   surname,
			Method:    review.MethodNameComponents,
		})
	}
	return attempts, raw
}

func (a *GreatPlains) BuildRecord(row review.Row, username string, id *review.Identity, method review.LookupMethod, original string) review.OutputRecord {
	rec := review.NewRecord(username, id, method, original)
	rec.Extra = map[string]string{
		"csv_title":        a.h.get(row, gpTitleColumn),
		"csv_department":   a.h.get(row, gpDepartmentColumn),
		"security_role_id": a.h.get(row, gpSecurityRoleColumn),
	}
	return rec
}

func (a *GreatPlains) OutputColumns() []string {
	return append(review.StandardColumns(), "csv_title", "csv_department", "security_role_id")
}

var _ review.App = (*GreatPlains)(nil)
