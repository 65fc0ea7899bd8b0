// Package datascan analyzes the Datascan permission-matrix workbook: a
// hierarchical Excel export where merged user/role cells span many permission
// rows and X markers grant View / Add-Edit / Delete per function. Users are
// validated against the directory and access held by unknown or disabled
// accounts is reported as orphaned.
package datascan

import (
	"context"
	"sort"
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

const (
	UserColumn     = "User Name"
	RolesColumn    = "User Role(s)"
	AreaColumn     = "Functional Area"
	FeatureColumn  = "Feature"
	FunctionColumn = "Function"

	ViewColumn    = "View"
	AddEditColumn = "Add/Edit"
	DeleteColumn  = "Delete"

	// DeleteThreshold is the default delete-permission count above which a
	// user lands on the high-risk sheet.
	DeleteThreshold = 5
)

// ForwardFillColumns are the merged-cell columns the reader must fill down.
func ForwardFillColumns() []string {
	return []string{UserColumn, RolesColumn}
}

// Permission is one cleaned row of the matrix.
type Permission struct {
	User     string
	Roles    string
	Area     string
	Feature  string
	Function string
	View     bool
	AddEdit  bool
	Delete   bool
}

// Level renders the granted permissions as the report's combined string.
func (p Permission) Level() string {
	var parts []string
	if p.View {
		parts = append(parts, "View")
	}
	if p.AddEdit {
		parts = append(parts, "Add/Edit")
	}
	if p.Delete {
		parts = append(parts, "Delete")
	}
	if len(parts) == 0 {
		return "No Access"
	}
	return strings.Join(parts, ", ")
}

// ParsePermissions converts the raw sheet into permission rows. An X marker
// (any case) grants the column's permission; rows granting nothing are
// dropped from the analysis.
func ParsePermissions(table review.Table) ([]Permission, error) {
	if !hasHeader(table.Headers, UserColumn) {
		return nil, &review.StructuralError{Columns: []string{UserColumn}}
	}

	var perms []Permission
	for _, row := range table.Rows {
		p := Permission{
			User:     strings.TrimSpace(row[UserColumn]),
			Roles:    strings.TrimSpace(row[RolesColumn]),
			Area:     strings.TrimSpace(row[AreaColumn]),
			Feature:  strings.TrimSpace(row[FeatureColumn]),
			Function: strings.TrimSpace(row[FunctionColumn]),
			View:     isMarked(row[ViewColumn]),
			AddEdit:  isMarked(row[AddEditColumn]),
			Delete:   isMarked(row[DeleteColumn]),
		}
		if !p.View && !p.AddEdit && !p.Delete {
			continue
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func isMarked(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), "x")
}

func hasHeader(headers []string, want string) bool {
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return true
		}
	}
	return false
}

// Validation is the directory verdict for one report user.
type Validation struct {
	Name           string
	NormalizedName string
	Found          bool
	Username       string
	DisplayName    string
	Email          string
	Department     string
	Title          string
	Disabled       bool
	Method         review.LookupMethod
	Err            string
}

// ValidateUsers checks every distinct report user against the directory, in
// first-appearance order. Lookups cascade display-name → mail (when the cell
// is an address) → name components; results are memoized per normalized name
// since the same user spans many matrix rows.
func ValidateUsers(ctx context.Context, dir review.Directory, perms []Permission) []Validation {
	cache := make(map[string]Validation)
	var order []string

	for _, p := range perms {
		if p.User == "" {
			continue
		}
		key := review.NormalizeName(p.User)
		if key == "" {
			continue
		}
		if _, seen := cache[key]; seen {
			continue
		}
		cache[key] = validateOne(ctx, dir, p.User, key)
		order = append(order, key)
	}

	out := make([]Validation, 0, len(order))
	for _, key := range order {
		out = append(out, cache[key])
	}
	return out
}

func validateOne(ctx context.Context, dir review.Directory, name, normalized string) Validation {
	collapsed := review.CollapseSpaces(name)

	attempts := []review.Attempt{
		{Attr: review.AttrDisplayName, Value: collapsed, Method: review.MethodDisplayName},
	}
	if strings.Contains(collapsed, "@") {
		attempts = append(attempts, review.Attempt{
			Attr:   review.AttrMail,
			Value:  collapsed,
			Method: review.MethodBackup,
		})
	}
	if given, surname, ok := review.SplitName(collapsed); ok {
		attempts = append(attempts, review.Attempt{
			GivenName: given,
			Surname:   surname,
			Method:    review.MethodNameComponents,
		})
	}

	res := review.Resolve(ctx, dir, attempts)
	v := Validation{
		Name:           name,
		NormalizedName: normalized,
		Method:         res.Method,
	}
	if res.Err != nil {
		v.Err = res.Err.Error()
		return v
	}
	if res.Identity != nil {
		v.Found = true
		v.Username = res.Identity.Username
		v.DisplayName = res.Identity.DisplayName
		v.Email = res.Identity.Email
		v.Department = res.Identity.Department
		v.Title = res.Identity.Title
		v.Disabled = !res.Identity.Active
	}
	return v
}

// Orphan is access held by a user the directory does not vouch for.
type Orphan struct {
	Permission
	Found    bool
	Disabled bool
	Username string
	Risk     string
}

// OrphanedAccess joins problem users (not found, or disabled) back onto their
// permission rows with a risk label.
func OrphanedAccess(perms []Permission, validations []Validation) []Orphan {
	byName := make(map[string]Validation, len(validations))
	for _, v := range validations {
		byName[v.NormalizedName] = v
	}

	var out []Orphan
	for _, p := range perms {
		v, ok := byName[review.NormalizeName(p.User)]
		if !ok {
			continue
		}
		if v.Found && !v.Disabled {
			continue
		}
		risk := "High - User not found in AD"
		if v.Found && v.Disabled {
			risk = "High - Account disabled in AD"
		}
		out = append(out, Orphan{
			Permission: p,
			Found:      v.Found,
			Disabled:   v.Disabled,
			Username:   v.Username,
			Risk:       risk,
		})
	}
	return out
}

// UserSummary aggregates a user+role pairing across the whole matrix.
type UserSummary struct {
	User    string
	Roles   string
	Areas   []string
	View    int
	AddEdit int
	Delete  int
}

// SummarizeUsers groups permissions by user and role set, collecting distinct
// functional areas and counting each permission kind. Output is sorted by
// user then roles.
func SummarizeUsers(perms []Permission) []UserSummary {
	type key struct{ user, roles string }
	groups := make(map[key]*UserSummary)
	areas := make(map[key]map[string]bool)

	for _, p := range perms {
		k := key{p.User, p.Roles}
		g := groups[k]
		if g == nil {
			g = &UserSummary{User: p.User, Roles: p.Roles}
			groups[k] = g
			areas[k] = make(map[string]bool)
		}
		if p.Area != "" && !areas[k][p.Area] {
			areas[k][p.Area] = true
			g.Areas = append(g.Areas, p.Area)
		}
		if p.View {
			g.View++
		}
		if p.AddEdit {
			g.AddEdit++
		}
		if p.Delete {
			g.Delete++
		}
	}

	out := make([]UserSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].User != out[j].User {
			return out[i].User < out[j].User
		}
		return out[i].Roles < out[j].Roles
	})
	return out
}

// HighRiskUsers filters the summary down to users holding at least threshold
// delete permissions, widest access first.
func HighRiskUsers(perms []Permission, threshold int) []UserSummary {
	if threshold <= 0 {
		threshold = DeleteThreshold
	}
	var out []UserSummary
	for _, s := range SummarizeUsers(perms) {
		if s.Delete >= threshold {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Delete > out[j].Delete })
	return out
}
