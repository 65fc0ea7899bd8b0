package review

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// testApp is a minimal exact-key-with-backup policy: UserId against the
// account name, then the email local part.
type testApp struct {
	dropServiceMisses bool
	emitRoles         bool
	bound             bool
}

func (a *testApp) Name() string { return "test" }

func (a *testApp) Bind(headers []string) error {
	for _, h := range headers {
		if h == "UserId" {
			a.bound = true
			return nil
		}
	}
	return &StructuralError{Columns: []string{"UserId"}}
}

func (a *testApp) ShouldSkip(row Row) bool {
	return row["Status"] == "Disabled"
}

func (a *testApp) Attempts(row Row) ([]Attempt, string) {
	userID := row["UserId"]
	email := row["Email"]
	local, _, _ := strings.Cut(email, "@")

	original := userID
	if original == "" {
		original = email
	}
	return []Attempt{
		{Attr: AttrAccountName, Value: userID, Method: MethodPrimary},
		{Attr: AttrAccountName, Value: local, Method: MethodBackup},
	}, original
}

func (a *testApp) BuildRecord(row Row, username string, id *Identity, method LookupMethod, original string) OutputRecord {
	rec := NewRecord(username, id, method, original)
	rec.Extra = map[string]string{"note": row["Note"]}
	return rec
}

func (a *testApp) OutputColumns() []string {
	return append(StandardColumns(), "note")
}

func (a *testApp) DropAfterResolve(row Row, method LookupMethod) bool {
	return a.dropServiceMisses && method == MethodFailed && strings.Contains(row["Email"], "svc")
}

func (a *testApp) Roles(row Row, rec OutputRecord) []RoleAssignment {
	if !a.emitRoles || row["Role"] == "" {
		return nil
	}
	return []RoleAssignment{{
		Username:           rec.Username,
		Department:         rec.Department,
		Title:              rec.Title,
		Role:               row["Role"],
		OriginalIdentifier: rec.OriginalIdentifier,
	}}
}

func activeUser(username string) *Identity {
	return &Identity{
		Username:    username,
		DisplayName: strings.ToUpper(username),
		Email:       username + "@example.com",
		Department:  "Finance",
		Title:       "Analyst",
		Active:      true,
	}
}

func TestRunResolvesPrimaryScenario(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(AttrAccountName, "jdoe", activeUser("jdoe"))

	table := Table{
		Headers: []string{"UserId", "Status"},
		Rows:    []Row{{"UserId": "jdoe", "Status": "Active"}},
	}

	res, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Username != "jdoe" || rec.Method != MethodPrimary || rec.OriginalIdentifier != "jdoe" || !rec.Active {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestRunBackupScenarioDerivesEmailLocalPart(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(AttrAccountName, "jane.smith", activeUser("jane.smith"))

	table := Table{
		Headers: []string{"UserId", "Email"},
		Rows:    []Row{{"UserId": "", "Email": "jane.smith@co.com"}},
	}

	res, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := res.Records[0]
	if rec.Method != MethodBackup {
		t.Errorf("method = %s, want backup", rec.Method)
	}
	if rec.Username != "jane.smith" {
		t.Errorf("username = %q", rec.Username)
	}
	if rec.OriginalIdentifier != "jane.smith@co.com" {
		t.Errorf("original = %q", rec.OriginalIdentifier)
	}
}

func TestRunDeterminism(t *testing.T) {
	t.Parallel()

	build := func() (*RunResult, error) {
		dir := newFakeDirectory()
		dir.add(AttrAccountName, "jdoe", activeUser("jdoe"))
		dir.add(AttrAccountName, "asmith", activeUser("asmith"))
		table := Table{
			Headers: []string{"UserId", "Email", "Status"},
			Rows: []Row{
				{"UserId": "jdoe"},
				{"UserId": "ghost"},
				{"UserId": "asmith"},
			},
		}
		return Run(context.Background(), table, &testApp{}, dir, RunOptions{Workers: 4})
	}

	first, err := build()
	if err != nil {
		t.Fatal(err)
	}
	second, err := build()
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Error("records differ across identical runs")
	}
	if !reflect.DeepEqual(first.Stats.Methods, second.Stats.Methods) {
		t.Error("statistics differ across identical runs")
	}
	// input order regardless of worker count
	if first.Records[0].OriginalIdentifier != "jdoe" || first.Records[2].OriginalIdentifier != "asmith" {
		t.Errorf("output order broken: %+v", first.Records)
	}
}

func TestRunSkippedRowsExcludedFromOutputAndCounts(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(AttrAccountName, "jdoe", activeUser("jdoe"))
	table := Table{
		Headers: []string{"UserId", "Status"},
		Rows: []Row{
			{"UserId": "jdoe", "Status": "Active"},
			{"UserId": "gone", "Status": "Disabled"},
		},
	}

	res, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	if res.Stats.TotalRecords != 1 {
		t.Errorf("total = %d, skipped rows must not be counted", res.Stats.TotalRecords)
	}
}

func TestRunDisableFiltersProcessesSkippedRows(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(AttrAccountName, "gone", activeUser("gone"))
	table := Table{
		Headers: []string{"UserId", "Status"},
		Rows:    []Row{{"UserId": "gone", "Status": "Disabled"}},
	}

	res, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{DisableFilters: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || res.Records[0].Method != MethodPrimary {
		t.Errorf("filtered row should be processed when filters are disabled: %+v", res.Records)
	}
}

func TestRunErrorVersusFailedClassification(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.errOn["broken"] = errors.New("network is down")
	table := Table{
		Headers: []string{"UserId"},
		Rows: []Row{
			{"UserId": "broken"},
			{"UserId": "absent"},
		},
	}

	res, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if res.Records[0].Method != MethodError {
		t.Errorf("row 0 method = %s, want error", res.Records[0].Method)
	}
	if res.Records[1].Method != MethodFailed {
		t.Errorf("row 1 method = %s, want failed", res.Records[1].Method)
	}
	for _, rec := range res.Records {
		if rec.Username != "" {
			t.Errorf("unresolved row has username %q", rec.Username)
		}
		if rec.OriginalIdentifier == "" {
			t.Error("original identifier must survive resolution failure")
		}
	}
	if res.Stats.Methods[MethodError] != 1 || res.Stats.Methods[MethodFailed] != 1 {
		t.Errorf("stats = %v", res.Stats.Methods)
	}
}

func TestRunStatisticsArithmetic(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(AttrAccountName, "jdoe", activeUser("jdoe"))
	dir.errOn["broken"] = errors.New("boom")
	table := Table{
		Headers: []string{"UserId"},
		Rows: []Row{
			{"UserId": "jdoe"},
			{"UserId": "ghost"},
			{"UserId": "broken"},
		},
	}

	res, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	sum := 0
	for _, n := range res.Stats.Methods {
		sum += n
	}
	if sum != res.Stats.TotalRecords {
		t.Errorf("total %d != method sum %d", res.Stats.TotalRecords, sum)
	}
	want := float64(res.Stats.TotalRecords-res.Stats.Methods[MethodFailed]-res.Stats.Methods[MethodError]) /
		float64(res.Stats.TotalRecords) * 100
	if got := res.Stats.SuccessRate(); got != want {
		t.Errorf("success rate = %v, want %v", got, want)
	}
}

func TestRunStructuralErrorAbortsBeforeAnyRow(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	table := Table{
		Headers: []string{"Unrelated"},
		Rows:    []Row{{"Unrelated": "x"}},
	}

	_, err := Run(context.Background(), table, &testApp{}, dir, RunOptions{})
	var structErr *StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
	if len(dir.queries) != 0 {
		t.Errorf("no directory queries expected, got %v", dir.queries)
	}
}

func TestRunPostResolveDropRespectsDisableFilters(t *testing.T) {
	t.Parallel()

	table := Table{
		Headers: []string{"UserId", "Email"},
		Rows:    []Row{{"UserId": "batch", "Email": "batch@svc.example.com"}},
	}

	res, err := Run(context.Background(), table, &testApp{dropServiceMisses: true}, newFakeDirectory(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 0 || res.Stats.TotalRecords != 0 {
		t.Errorf("post-resolve drop should remove row from output and counts: %+v", res)
	}

	res, err = Run(context.Background(), table, &testApp{dropServiceMisses: true}, newFakeDirectory(),
		RunOptions{DisableFilters: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 {
		t.Error("DisableFilters must bypass post-resolve drops too")
	}
}

func TestRunRoleExtraction(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(AttrAccountName, "jdoe", activeUser("jdoe"))
	table := Table{
		Headers: []string{"UserId", "Role"},
		Rows:    []Row{{"UserId": "jdoe", "Role": "Collector"}},
	}

	res, err := Run(context.Background(), table, &testApp{emitRoles: true}, dir,
		RunOptions{ExtractRoles: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Roles) != 1 {
		t.Fatalf("roles = %d, want 1", len(res.Roles))
	}
	role := res.Roles[0]
	if role.Username != "jdoe" || role.Role != "Collector" || role.Department != "Finance" {
		t.Errorf("unexpected role: %+v", role)
	}

	// extraction off: same app, no roles emitted
	res, err = Run(context.Background(), table, &testApp{emitRoles: true}, dir, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Roles) != 0 {
		t.Errorf("roles emitted without ExtractRoles: %+v", res.Roles)
	}
}
