package apps

import (
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

// DefiServicing correlates the loan-servicing export. Application user IDs
// carry an environment prefix ("SFSE." or "SFSE") that is stripped before the
// account-name lookup; there is no backup identifier. Deleted and disabled
// platform accounts are filtered out before resolution.
type DefiServicing struct {
	h *header
}

const (
	svcUserIDColumn = "Application User ID"
	svcStatusColumn = "User Status Code"

	svcPrefix = "SFSE"
)

var svcPassthrough = []string{
	"Application User Login Org Id",
	"Application User First Name",
	"Application User Last Name",
	"User Status Code",
	"User Create Date",
	"User Disable Date",
	"User Disabled By UserId",
	"Master Role Id",
	"Servicer Id",
	"Master Role Desc",
	"servicer_id",
	"client_id",
}

var svcOutputColumns = []string{
	"application_user_login_org_id",
	"application_user_first_name",
	"application_user_last_name",
	"user_status_code",
	"user_create_date",
	"user_disable_date",
	"user_disabled_by_userid",
	"master_role_id",
	"servicer_id",
	"master_role_desc",
	"servicer_id_2",
	"client_id",
}

func (a *DefiServicing) Name() string { return "defi-servicing" }

func (a *DefiServicing) Bind(headers []string) error {
	h, err := bindHeader(headers, svcUserIDColumn)
	if err != nil {
		return err
	}
	a.h = h
	return nil
}

func (a *DefiServicing) ShouldSkip(row review.Row) bool {
	if a.h.get(row, svcUserIDColumn) == "" {
		return true
	}
	switch a.h.get(row, svcStatusColumn) {
	case "DELETED", "DISABLED":
		return true
	}
	return false
}

func (a *DefiServicing) Attempts(row review.Row) ([]review.Attempt, string) {
	raw := a.h.get(row, svcUserIDColumn)

	attempts := []review.Attempt{{
		Attr:   review.AttrAccountName,
		Value:  stripServicingPrefix(raw),
		Method: review.MethodPrimary,
	}}
	return attempts, raw
}

func (a *DefiServicing) BuildRecord(row review.Row, username string, id *review.Identity, method review.LookupMethod, original string) review.OutputRecord {
	rec := review.NewRecord(username, id, method, original)
	rec.Extra = make(map[string]string, len(svcPassthrough))
	// The Servicer Id / servicer_id pair collides once lowercased, so the
	// second keeps a _2 suffix in the output schema.
	for i, src := range svcPassthrough {
		rec.Extra[svcOutputColumns[i]] = a.h.get(row, src)
	}
	return rec
}

func (a *DefiServicing) OutputColumns() []string {
	return append(review.StandardColumns(), svcOutputColumns...)
}

func stripServicingPrefix(id string) string {
	if rest, ok := strings.CutPrefix(id, svcPrefix+"."); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(id, svcPrefix); ok {
		return rest
	}
	return id
}

var _ review.App = (*DefiServicing)(nil)
