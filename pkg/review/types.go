// Package review implements the identity-resolution and record-correlation
// core of the access-review tool: per-application resolution policies, the
// fallback resolver, and the correlation engine that turns application export
// rows into normalized, audit-ready output records.
package review

import (
	"context"
	"strconv"
)

// LookupMethod classifies how (or whether) a row's identity was resolved.
// Exactly one method is recorded per processed row; MethodFailed and
// MethodError imply no identity was found.
type LookupMethod string

const (
	MethodPrimary        LookupMethod = "primary"
	MethodBackup         LookupMethod = "backup"
	MethodDisplayName    LookupMethod = "displayname"
	MethodNameComponents LookupMethod = "name_components"
	MethodFailed         LookupMethod = "failed"
	MethodError          LookupMethod = "error"
)

// Resolved reports whether the method represents a successful lookup.
func (m LookupMethod) Resolved() bool {
	return m != MethodFailed && m != MethodError && m != ""
}

// Attribute names a directory attribute used for exact-match lookups.
type Attribute string

const (
	AttrAccountName Attribute = "sAMAccountName"
	AttrMail        Attribute = "mail"
	AttrDisplayName Attribute = "displayName"
)

// Identity is the normalized snapshot of a resolved directory identity.
// It is constructed fresh per lookup and never mutated afterwards.
type Identity struct {
	Username    string
	DisplayName string
	Email       string
	Department  string
	Title       string
	GivenName   string
	Surname     string
	Active      bool
}

// Directory is the injected lookup capability. Lookup performs an exact,
// case-insensitive match on the given attribute and returns (nil, nil) for a
// clean not-found; a non-nil error means the directory itself failed (network,
// auth, malformed query) and is classified per-row as MethodError.
//
// LookupNameComponents is the one sanctioned non-single-attribute query: an
// exact compound match on given name and surname.
type Directory interface {
	Lookup(ctx context.Context, attr Attribute, value string) (*Identity, error)
	LookupNameComponents(ctx context.Context, givenName, surname string) (*Identity, error)
}

// Row is one input record keyed by column name.
type Row map[string]string

// Table is an ordered row sequence plus the source header it was read with.
type Table struct {
	Headers []string
	Rows    []Row
}

// OutputRecord is the normalized output entity, one per processed input row.
// OriginalIdentifier is always populated from the source row, resolved or not;
// it is the audit trail back to the source system.
type OutputRecord struct {
	Username           string
	Email              string
	FullName           string
	Department         string
	Title              string
	Active             bool
	Method             LookupMethod
	OriginalIdentifier string

	// Extra holds application-specific passthrough columns, keyed by the
	// output column name declared in the app's OutputColumns.
	Extra map[string]string
}

// RoleAssignment is one extracted role for a row, tagged with the row's
// resolved username (or the source identifier when unresolved).
type RoleAssignment struct {
	Username           string
	Department         string
	Title              string
	Role               string
	OriginalIdentifier string
}

// StandardColumns is the fixed prefix of every application's output schema.
func StandardColumns() []string {
	return []string{
		"username",
		"email",
		"full_name",
		"department",
		"title",
		"is_active",
		"lookup_method",
		"original_identifier",
	}
}

// RoleColumns is the output schema for extracted role assignments.
func RoleColumns() []string {
	return []string{"username", "department", "title", "assigned_roles", "original_identifier"}
}

// Value returns the record's value for an output column, falling back to the
// passthrough set for application-specific columns.
func (r OutputRecord) Value(col string) string {
	switch col {
	case "username":
		return r.Username
	case "email":
		return r.Email
	case "full_name":
		return r.FullName
	case "department":
		return r.Department
	case "title":
		return r.Title
	case "is_active":
		return strconv.FormatBool(r.Active)
	case "lookup_method":
		return string(r.Method)
	case "original_identifier":
		return r.OriginalIdentifier
	}
	return r.Extra[col]
}

// Values flattens the role assignment in RoleColumns order.
func (a RoleAssignment) Values() []string {
	return []string{a.Username, a.Department, a.Title, a.Role, a.OriginalIdentifier}
}

// NewRecord fills the standard portion of an OutputRecord from a resolved (or
// absent) identity. Apps layer their passthrough columns on top.
func NewRecord(username string, id *Identity, method LookupMethod, original string) OutputRecord {
	rec := OutputRecord{
		Username:           username,
		Method:             method,
		OriginalIdentifier: original,
	}
	if id != nil {
		rec.Email = id.Email
		rec.FullName = id.DisplayName
		rec.Department = id.Department
		rec.Title = id.Title
		rec.Active = id.Active
	}
	return rec
}
