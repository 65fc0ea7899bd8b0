// Package roleanalysis classifies role assignments as standard or ad-hoc.
// Users are grouped by department and title; a role held by at least the
// threshold percentage of a group's unique users is standard for that group,
// anything rarer is an ad-hoc grant that needs review.
package roleanalysis

import (
	"sort"
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

// DefaultThreshold is the percentage of a group's users that must hold a
// role for it to count as standard.
const DefaultThreshold = 70

const (
	colUsername   = "username"
	colDepartment = "department"
	colTitle      = "title"
	colRoles      = "assigned_roles"
)

// User is one unique user with their aggregated role set.
type User struct {
	Username   string
	Department string
	Title      string
	Roles      []string
}

// HasRole reports whether the user's aggregated set contains role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleStat is one role's adoption within a department/title group.
type RoleStat struct {
	Role       string
	Count      int
	Percentage float64
	Standard   bool
}

// Group is the analysis of one department/title combination.
type Group struct {
	Department string
	Title      string
	TotalUsers int
	Roles      []RoleStat
	Users      []User
}

// StandardRoles returns the group's standard roles, widest adoption first.
func (g Group) StandardRoles() []RoleStat { return g.filter(true) }

// AdHocRoles returns the group's below-threshold roles, widest adoption first.
func (g Group) AdHocRoles() []RoleStat { return g.filter(false) }

func (g Group) filter(standard bool) []RoleStat {
	var out []RoleStat
	for _, r := range g.Roles {
		if r.Standard == standard {
			out = append(out, r)
		}
	}
	return out
}

// NeedsReview reports whether the group carries any ad-hoc assignment.
func (g Group) NeedsReview() bool { return len(g.AdHocRoles()) > 0 }

// Analysis is the full result of analyzing a role-assignment table.
type Analysis struct {
	Threshold int
	Groups    []Group
	// SkippedRows counts input rows dropped for missing required values.
	SkippedRows int
}

// Analyze aggregates a role-assignment table into per-group role statistics.
// The table must carry username, department, title and assigned_roles columns
// (case-insensitive); roles are counted once per unique user even when the
// input repeats a user across rows. threshold <= 0 selects DefaultThreshold.
func Analyze(table review.Table, threshold int) (*Analysis, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	cols, err := bindColumns(table.Headers)
	if err != nil {
		return nil, err
	}

	type userKey struct{ username, department, title string }
	users := make(map[userKey]*User)
	var userOrder []userKey
	skipped := 0

	for _, row := range table.Rows {
		username := strings.TrimSpace(row[cols[colUsername]])
		department := strings.TrimSpace(row[cols[colDepartment]])
		title := strings.TrimSpace(row[cols[colTitle]])
		rolesCell := strings.TrimSpace(row[cols[colRoles]])
		if username == "" || department == "" || title == "" || rolesCell == "" {
			skipped++
			continue
		}

		k := userKey{username, department, title}
		u := users[k]
		if u == nil {
			u = &User{Username: username, Department: department, Title: title}
			users[k] = u
			userOrder = append(userOrder, k)
		}
		for _, role := range splitRoles(rolesCell) {
			if !u.HasRole(role) {
				u.Roles = append(u.Roles, role)
			}
		}
	}

	type groupKey struct{ department, title string }
	grouped := make(map[groupKey][]User)
	for _, k := range userOrder {
		u := *users[k]
		sort.Strings(u.Roles)
		gk := groupKey{u.Department, u.Title}
		grouped[gk] = append(grouped[gk], u)
	}

	analysis := &Analysis{Threshold: threshold, SkippedRows: skipped}
	for gk, members := range grouped {
		analysis.Groups = append(analysis.Groups, analyzeGroup(gk.department, gk.title, members, threshold))
	}
	sort.Slice(analysis.Groups, func(i, j int) bool {
		a, b := analysis.Groups[i], analysis.Groups[j]
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		return a.Title < b.Title
	})
	return analysis, nil
}

func analyzeGroup(department, title string, members []User, threshold int) Group {
	frequency := make(map[string]int)
	for _, u := range members {
		for _, role := range u.Roles {
			frequency[role]++
		}
	}

	total := len(members)
	roles := make([]RoleStat, 0, len(frequency))
	for role, count := range frequency {
		pct := float64(count) / float64(total) * 100
		roles = append(roles, RoleStat{
			Role:       role,
			Count:      count,
			Percentage: pct,
			Standard:   pct >= float64(threshold),
		})
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Percentage != roles[j].Percentage {
			return roles[i].Percentage > roles[j].Percentage
		}
		return roles[i].Role < roles[j].Role
	})

	return Group{
		Department: department,
		Title:      title,
		TotalUsers: total,
		Roles:      roles,
		Users:      members,
	}
}

func splitRoles(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if role := strings.TrimSpace(part); role != "" {
			out = append(out, role)
		}
	}
	return out
}

func bindColumns(headers []string) (map[string]string, error) {
	required := []string{colUsername, colDepartment, colTitle, colRoles}
	bound := make(map[string]string, len(required))
	var missing []string
	for _, want := range required {
		found := ""
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				found = h
				break
			}
		}
		if found == "" {
			missing = append(missing, want)
			continue
		}
		bound[want] = found
	}
	if len(missing) > 0 {
		return nil, &review.StructuralError{Columns: missing}
	}
	return bound, nil
}

// Summary rolls the per-group analysis up into headline numbers.
type Summary struct {
	TotalGroups        int
	GroupsWithAdHoc    int
	GroupsStandardOnly int
	StandardRoles      int
	AdHocRoles         int
	TotalUsers         int
	ComplianceRate     float64
}

// Summarize computes headline statistics across all groups.
func Summarize(analysis *Analysis) Summary {
	var s Summary
	s.TotalGroups = len(analysis.Groups)
	for _, g := range analysis.Groups {
		s.TotalUsers += g.TotalUsers
		s.StandardRoles += len(g.StandardRoles())
		adhoc := len(g.AdHocRoles())
		s.AdHocRoles += adhoc
		if adhoc > 0 {
			s.GroupsWithAdHoc++
		}
	}
	s.GroupsStandardOnly = s.TotalGroups - s.GroupsWithAdHoc
	if s.TotalGroups > 0 {
		s.ComplianceRate = float64(s.GroupsStandardOnly) / float64(s.TotalGroups) * 100
	}
	return s
}
