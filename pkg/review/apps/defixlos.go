package apps

import (
	"github.com/soxtools/adreview/pkg/review"
)

// DefiXLOS correlates the extended loan-origination export: UserId is the
// primary account-name lookup, the full Email address is the backup (matched
// against the directory mail attribute). Disabled platform accounts are
// filtered before resolution.
type DefiXLOS struct {
	h *header
}

const (
	xlosUserIDColumn    = "UserId"
	xlosUserGUIDColumn  = "UserGuid"
	xlosFullNameColumn  = "FullName"
	xlosStatusColumn    = "Status"
	xlosEmailColumn     = "Email"
	xlosLastLoginColumn = "LastLoginDate"
	xlosCreatedColumn   = "CreateDate"
)

func (a *DefiXLOS) Name() string { return "defi-xlos" }

func (a *DefiXLOS) Bind(headers []string) error {
	h, err := bindHeader(headers, xlosUserIDColumn)
	if err != nil {
		return err
	}
	a.h = h
	return nil
}

func (a *DefiXLOS) ShouldSkip(row review.Row) bool {
	if a.h.get(row, xlosUserIDColumn) == "" {
		return true
	}
	return a.h.get(row, xlosStatusColumn) == "Disabled"
}

func (a *DefiXLOS) Attempts(row review.Row) ([]review.Attempt, string) {
	primary := a.h.get(row, xlosUserIDColumn)

	attempts := []review.Attempt{
		{Attr: review.AttrAccountName, Value: primary, Method: review.MethodPrimary},
	}
	if email := a.h.get(row, xlosEmailColumn); email != "" {
		attempts = append(attempts, review.Attempt{
			Attr:   review.AttrMail,
			Value:  email,
			Method: review.MethodBackup,
		})
	}
	return attempts, primary
}

func (a *DefiXLOS) BuildRecord(row review.Row, username string, id *review.Identity, method review.LookupMethod, original string) review.OutputRecord {
	rec := review.NewRecord(username, id, method, original)
	rec.Extra = map[string]string{
		"user_guid":       a.h.get(row, xlosUserGUIDColumn),
		"csv_full_name":   a.h.get(row, xlosFullNameColumn),
		"csv_status":      a.h.get(row, xlosStatusColumn),
		"csv_email":       a.h.get(row, xlosEmailColumn),
		"last_login_date": a.h.get(row, xlosLastLoginColumn),
		"create_date":     a.h.get(row, xlosCreatedColumn),
	}
	return rec
}

func (a *DefiXLOS) OutputColumns() []string {
	return append(review.StandardColumns(),
		"user_guid", "csv_full_name", "csv_status", "csv_email", "last_login_date", "create_date")
}

var _ review.App = (*DefiXLOS)(nil)
