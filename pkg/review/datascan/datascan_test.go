package datascan

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/soxtools/adreview/pkg/review"
)

// fakeDirectory resolves display-name and name-component queries from fixed
// maps and counts display-name hits per value.
type fakeDirectory struct {
	byDisplay      map[string]*review.Identity
	byName         map[string]*review.Identity // "given surname"
	displayQueries map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byDisplay:      make(map[string]*review.Identity),
		byName:         make(map[string]*review.Identity),
		displayQueries: make(map[string]int),
	}
}

func (d *fakeDirectory) Lookup(ctx context.Context, attr review.Attribute, value string) (*review.Identity, error) {
	if attr == review.AttrDisplayName {
		d.displayQueries[value]++
		return d.byDisplay[value], nil
	}
	return nil, nil
}

func (d *fakeDirectory) LookupNameComponents(ctx context.Context, givenName, surname string) (*review.Identity, error) {
	return d.byName[givenName+" "+surname], nil
}

func matrixTable() review.Table {
	headers := []string{UserColumn, RolesColumn, AreaColumn, FeatureColumn, FunctionColumn, ViewColumn, AddEditColumn, DeleteColumn}
	row := func(user, roles, area, feature, fn, view, edit, del string) review.Row {
		return review.Row{
			UserColumn: user, RolesColumn: roles, AreaColumn: area,
			FeatureColumn: feature, FunctionColumn: fn,
			ViewColumn: view, AddEditColumn: edit, DeleteColumn: del,
		}
	}
	return review.Table{
		Headers: headers,
		Rows: []review.Row{
			row("Jane Doe", "Admin", "Ledger", "Accounts", "Post", "X", "x", "X"),
			row("Jane Doe", "Admin", "Payments", "Wires", "Send", "X", "", ""),
			row("Jane Doe", "Admin", "Payments", "Wires", "Approve", "", "", "x"),
			row("Al Smith", "Viewer", "Ledger", "Accounts", "Read", "X", "", ""),
			row("Al Smith", "Viewer", "Ledger", "Accounts", "Export", "", "", ""), // no permission
			row("Ghost User", "Temp", "Ledger", "Accounts", "Post", "", "X", "X"),
		},
	}
}

func TestParsePermissions(t *testing.T) {
	t.Parallel()

	perms, err := ParsePermissions(matrixTable())
	if err != nil {
		t.Fatalf("ParsePermissions: %v", err)
	}
	// the no-permission row is dropped
	if len(perms) != 5 {
		t.Fatalf("perms = %d, want 5", len(perms))
	}
	p := perms[0]
	if !p.View || !p.AddEdit || !p.Delete {
		t.Errorf("X markers not decoded: %+v", p)
	}
	if p.Level() != "View, Add/Edit, Delete" {
		t.Errorf("level = %q", p.Level())
	}
	if perms[1].Level() != "View" {
		t.Errorf("level = %q", perms[1].Level())
	}
}

func TestParsePermissionsRequiresUserColumn(t *testing.T) {
	t.Parallel()

	_, err := ParsePermissions(review.Table{Headers: []string{"Something"}})
	var structErr *review.StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("got %v, want StructuralError", err)
	}
}

func TestPermissionLevelNoAccess(t *testing.T) {
	t.Parallel()

	if got := (Permission{}).Level(); got != "No Access" {
		t.Errorf("level = %q", got)
	}
}

func TestValidateUsersCascadeAndCaching(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.byDisplay["Jane Doe"] = &review.Identity{
		Username: "jdoe", DisplayName: "Jane Doe", Active: true,
	}
	dir.byName["Al Smith"] = &review.Identity{
		Username: "asmith", DisplayName: "Albert Smith", Active: false,
	}

	perms, err := ParsePermissions(matrixTable())
	if err != nil {
		t.Fatal(err)
	}
	validations := ValidateUsers(context.Background(), dir, perms)

	if len(validations) != 3 {
		t.Fatalf("validations = %+v, one per distinct user", validations)
	}
	// Jane spans three matrix rows but is looked up once
	if dir.displayQueries["Jane Doe"] != 1 {
		t.Errorf("Jane queried %d times, want 1", dir.displayQueries["Jane Doe"])
	}

	jane := validations[0]
	if !jane.Found || jane.Username != "jdoe" || jane.Method != review.MethodDisplayName {
		t.Errorf("jane = %+v", jane)
	}
	al := validations[1]
	if !al.Found || al.Username != "asmith" || !al.Disabled {
		t.Errorf("al = %+v", al)
	}
	if al.Method != review.MethodNameComponents {
		t.Errorf("al method = %s, want name_components fallback", al.Method)
	}
	ghost := validations[2]
	if ghost.Found || ghost.Username != "" {
		t.Errorf("ghost = %+v", ghost)
	}
}

func TestOrphanedAccess(t *testing.T) {
	t.Parallel()

	perms, err := ParsePermissions(matrixTable())
	if err != nil {
		t.Fatal(err)
	}
	validations := []Validation{
		{Name: "Jane Doe", NormalizedName: review.NormalizeName("Jane Doe"), Found: true},
		{Name: "Al Smith", NormalizedName: review.NormalizeName("Al Smith"), Found: true, Disabled: true, Username: "asmith"},
		{Name: "Ghost User", NormalizedName: review.NormalizeName("Ghost User")},
	}

	orphans := OrphanedAccess(perms, validations)
	if len(orphans) != 2 {
		t.Fatalf("orphans = %+v", orphans)
	}
	if orphans[0].User != "Al Smith" || orphans[0].Risk != "High - Account disabled in AD" {
		t.Errorf("orphan 0 = %+v", orphans[0])
	}
	if orphans[1].User != "Ghost User" || orphans[1].Risk != "High - User not found in AD" {
		t.Errorf("orphan 1 = %+v", orphans[1])
	}
}

func TestSummarizeUsers(t *testing.T) {
	t.Parallel()

	perms, err := ParsePermissions(matrixTable())
	if err != nil {
		t.Fatal(err)
	}
	summaries := SummarizeUsers(perms)
	if len(summaries) != 3 {
		t.Fatalf("summaries = %+v", summaries)
	}

	// sorted by user then roles: Al Smith, Ghost User, Jane Doe
	if summaries[0].User != "Al Smith" || summaries[1].User != "Ghost User" {
		t.Fatalf("order = %+v", summaries)
	}
	jane := summaries[2]
	if jane.User != "Jane Doe" {
		t.Fatalf("order = %+v", summaries)
	}
	if jane.View != 2 || jane.AddEdit != 1 || jane.Delete != 2 {
		t.Errorf("jane counts = %+v", jane)
	}
	if !reflect.DeepEqual(jane.Areas, []string{"Ledger", "Payments"}) {
		t.Errorf("jane areas = %v", jane.Areas)
	}
}

func TestHighRiskUsers(t *testing.T) {
	t.Parallel()

	perms := []Permission{
		{User: "Bulk Deleter", Roles: "Admin", Area: "A", Delete: true},
		{User: "Bulk Deleter", Roles: "Admin", Area: "B", Delete: true},
		{User: "Reader", Roles: "Viewer", Area: "A", View: true},
	}

	if got := HighRiskUsers(perms, 2); len(got) != 1 || got[0].User != "Bulk Deleter" {
		t.Errorf("high risk = %+v", got)
	}
	if got := HighRiskUsers(perms, 3); len(got) != 0 {
		t.Errorf("threshold 3 should exclude everyone: %+v", got)
	}
	// threshold <= 0 falls back to the default (5)
	if got := HighRiskUsers(perms, 0); len(got) != 0 {
		t.Errorf("default threshold should exclude everyone: %+v", got)
	}
}
