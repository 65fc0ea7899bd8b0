package apps

import (
	"testing"

	"github.com/soxtools/adreview/pkg/review"
)

var xlosHeaders = []string{
	"UserId", "UserGuid", "FullName", "Status", "Email", "LastLoginDate", "CreateDate",
}

func TestDefiXLOSAttempts(t *testing.T) {
	t.Parallel()

	app := &DefiXLOS{}
	if err := app.Bind(xlosHeaders); err != nil {
		t.Fatal(err)
	}

	attempts, original := app.Attempts(review.Row{"UserId": "jdoe", "Email": "jane.doe@example.com"})
	if original != "jdoe" {
		t.Errorf("original = %q", original)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %+v", attempts)
	}
	if attempts[0].Attr != review.AttrAccountName || attempts[0].Method != review.MethodPrimary {
		t.Errorf("primary = %+v", attempts[0])
	}
	// the backup matches the whole address against the mail attribute
	if attempts[1].Attr != review.AttrMail || attempts[1].Value != "jane.doe@example.com" {
		t.Errorf("backup = %+v", attempts[1])
	}

	attempts, _ = app.Attempts(review.Row{"UserId": "jdoe"})
	if len(attempts) != 1 {
		t.Errorf("attempts without email = %+v", attempts)
	}
}

func TestDefiXLOSStatusFilter(t *testing.T) {
	t.Parallel()

	app := &DefiXLOS{}
	if err := app.Bind(xlosHeaders); err != nil {
		t.Fatal(err)
	}

	if app.ShouldSkip(review.Row{"UserId": "jdoe", "Status": "Active"}) {
		t.Error("active row kept")
	}
	if !app.ShouldSkip(review.Row{"UserId": "jdoe", "Status": "Disabled"}) {
		t.Error("disabled row must skip")
	}
	if !app.ShouldSkip(review.Row{"UserId": ""}) {
		t.Error("blank id must skip")
	}
}

func TestDefiXLOSPassthrough(t *testing.T) {
	t.Parallel()

	app := &DefiXLOS{}
	if err := app.Bind(xlosHeaders); err != nil {
		t.Fatal(err)
	}

	row := review.Row{
		"UserId":   "jdoe",
		"UserGuid": "9f1c",
		"FullName": "Jane Doe",
		"Status":   "Active",
		"Email":    "jane.doe@example.com",
	}
	rec := app.BuildRecord(row, "jdoe", nil, review.MethodPrimary, "jdoe")
	if rec.Extra["user_guid"] != "9f1c" || rec.Extra["csv_full_name"] != "Jane Doe" {
		t.Errorf("extra = %v", rec.Extra)
	}
}
