package review

// App bundles one application type's resolution and row-filter policies.
// Implementations are stateless apart from header positions captured in Bind;
// a fresh instance is used per run.
type App interface {
	// Name is the registry key for this application type.
	Name() string

	// Bind validates the source header before any row is processed and lets
	// the app capture column positions it needs. A missing required column is
	// a *StructuralError.
	Bind(headers []string) error

	// ShouldSkip decides whether a row is excluded from the run entirely.
	// Skipped rows contribute to neither output nor statistics. The engine's
	// DisableFilters option bypasses this wholesale.
	ShouldSkip(row Row) bool

	// Attempts returns the ordered identifier attempts for a row and the
	// row's original identifier (the source value recorded on the output
	// record regardless of resolution outcome).
	Attempts(row Row) (attempts []Attempt, original string)

	// BuildRecord assembles the output record for a processed row, including
	// the app's passthrough columns.
	BuildRecord(row Row, username string, id *Identity, method LookupMethod, original string) OutputRecord

	// OutputColumns is the full output schema: StandardColumns followed by
	// app-specific passthrough columns.
	OutputColumns() []string
}

// RoleExtractor is implemented by apps that expose role data. Roles returns
// zero or more assignments for a row, tagged with the row's output record.
type RoleExtractor interface {
	Roles(row Row, rec OutputRecord) []RoleAssignment
}

// ResultFilter is implemented by apps that drop rows only recognizable after
// resolution (e.g. a shared service-account namespace that is expected to
// miss the directory). Dropped rows are treated exactly like skipped ones.
type ResultFilter interface {
	DropAfterResolve(row Row, method LookupMethod) bool
}
