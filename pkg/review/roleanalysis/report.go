package roleanalysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WriteTextReport renders the summary and per-group detail as a plain-text
// report suitable for attaching to a review ticket.
func WriteTextReport(w io.Writer, analysis *Analysis) error {
	s := Summarize(analysis)
	rule := strings.Repeat("=", 72)

	if _, err := fmt.Fprintf(w, "%s\nACCESS REVIEW ANALYSIS SUMMARY\n%s\n", rule, rule); err != nil {
		return err
	}
	fmt.Fprintf(w, "Threshold for standard roles: %d%%\n", analysis.Threshold)
	fmt.Fprintf(w, "Total users analyzed: %d\n", s.TotalUsers)
	fmt.Fprintf(w, "Total department/title groups: %d\n", s.TotalGroups)
	fmt.Fprintf(w, "Groups with standard roles only: %d\n", s.GroupsStandardOnly)
	fmt.Fprintf(w, "Groups requiring review: %d\n", s.GroupsWithAdHoc)
	fmt.Fprintf(w, "Compliance rate: %.1f%%\n", s.ComplianceRate)
	fmt.Fprintf(w, "Standard role assignments: %d\n", s.StandardRoles)
	fmt.Fprintf(w, "Ad-hoc role assignments: %d\n", s.AdHocRoles)

	for _, g := range analysis.Groups {
		fmt.Fprintf(w, "\n%s\nDEPARTMENT: %s | TITLE: %s\n%s\n", rule, g.Department, g.Title, rule)
		fmt.Fprintf(w, "Total users: %d\n", g.TotalUsers)
		if g.NeedsReview() {
			fmt.Fprintln(w, "Status: REQUIRES REVIEW (has ad-hoc role assignments)")
		} else {
			fmt.Fprintln(w, "Status: COMPLIANT (standard roles only)")
		}

		fmt.Fprintf(w, "\nStandard roles (>= %d%%):\n", analysis.Threshold)
		writeRoleLines(w, g, g.StandardRoles())
		fmt.Fprintf(w, "\nAd-hoc roles (< %d%%):\n", analysis.Threshold)
		writeRoleLines(w, g, g.AdHocRoles())
	}

	_, err := fmt.Fprintln(w)
	return err
}

func writeRoleLines(w io.Writer, g Group, roles []RoleStat) {
	if len(roles) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, r := range roles {
		fmt.Fprintf(w, "  %-40s %3d/%-3d (%5.1f%%)\n", r.Role, r.Count, g.TotalUsers, r.Percentage)
	}
}

// WriteRecommendations writes one CSV row per group role with its
// classification and the recommended follow-up.
func WriteRecommendations(w io.Writer, analysis *Analysis) error {
	cw := csv.NewWriter(w)
	header := []string{"department", "title", "role", "user_count", "total_users", "percentage", "status", "recommendation"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, g := range analysis.Groups {
		for _, r := range g.Roles {
			status := "Ad-hoc"
			recommendation := "Review individual assignments - consider removal or document justification"
			if r.Standard {
				status = "Standard"
				recommendation = fmt.Sprintf("Apply to all %ss in %s", g.Title, g.Department)
			}
			row := []string{
				g.Department,
				g.Title,
				r.Role,
				fmt.Sprintf("%d", r.Count),
				fmt.Sprintf("%d", g.TotalUsers),
				fmt.Sprintf("%.1f", r.Percentage),
				status,
				recommendation,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Action is one work item for the identity team derived from the analysis.
type Action struct {
	Type          string
	Priority      string
	Department    string
	Title         string
	Role          string
	Username      string
	CurrentStatus string
	Recommended   string
	Justification string
	Compliance    string
	Affected      string
	Notes         string
}

// Actions expands the analysis into a grant/review work queue: users missing
// a standard role get a grant action, holders of ad-hoc roles get a review
// action, and fully compliant groups get a single informational row.
func Actions(analysis *Analysis) []Action {
	var out []Action

	for _, g := range analysis.Groups {
		standard := g.StandardRoles()
		adhoc := g.AdHocRoles()

		for _, r := range standard {
			var missing []User
			for _, u := range g.Users {
				if !u.HasRole(r.Role) {
					missing = append(missing, u)
				}
			}
			for _, u := range missing {
				out = append(out, Action{
					Type:          "GRANT_ACCESS",
					Priority:      "HIGH",
					Department:    g.Department,
					Title:         g.Title,
					Role:          r.Role,
					Username:      u.Username,
					CurrentStatus: "MISSING_STANDARD_ROLE",
					Recommended:   fmt.Sprintf("Grant %s access", r.Role),
					Justification: "NO",
					Compliance:    fmt.Sprintf("%.1f%%", r.Percentage),
					Affected:      fmt.Sprintf("%d of %d", len(missing), g.TotalUsers),
					Notes:         fmt.Sprintf("Standard role for %ss in %s - %d/%d currently have this role", g.Title, g.Department, r.Count, g.TotalUsers),
				})
			}
		}

		for _, r := range adhoc {
			priority := "LOW"
			if r.Percentage >= 25 {
				priority = "MEDIUM"
			}
			for _, u := range g.Users {
				if !u.HasRole(r.Role) {
					continue
				}
				out = append(out, Action{
					Type:          "REVIEW_ACCESS",
					Priority:      priority,
					Department:    g.Department,
					Title:         g.Title,
					Role:          r.Role,
					Username:      u.Username,
					CurrentStatus: "HAS_ADHOC_ROLE",
					Recommended:   "Review and document business justification OR remove access",
					Justification: "YES",
					Compliance:    fmt.Sprintf("%.1f%%", r.Percentage),
					Affected:      fmt.Sprintf("%d of %d", r.Count, g.TotalUsers),
					Notes:         fmt.Sprintf("Ad-hoc role - only %d/%d %ss have this role. Verify business need.", r.Count, g.TotalUsers, g.Title),
				})
			}
		}

		if len(adhoc) == 0 && len(standard) > 0 {
			out = append(out, Action{
				Type:          "NO_ACTION",
				Priority:      "INFO",
				Department:    g.Department,
				Title:         g.Title,
				Role:          "ALL_ROLES",
				Username:      "N/A",
				CurrentStatus: "COMPLIANT",
				Recommended:   "No action required - group is fully compliant",
				Justification: "NO",
				Compliance:    "100.0%",
				Affected:      fmt.Sprintf("All %d users", g.TotalUsers),
				Notes:         fmt.Sprintf("Group has proper role standardization with %d standard roles", len(standard)),
			})
		}
	}
	return out
}

// WriteActions writes the work queue as CSV for the identity team.
func WriteActions(w io.Writer, analysis *Analysis) error {
	cw := csv.NewWriter(w)
	header := []string{
		"action_type", "priority", "department", "title", "role", "username",
		"current_status", "recommended_action", "business_justification_required",
		"percentage_compliance", "affected_users", "implementation_notes",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range Actions(analysis) {
		row := []string{
			a.Type, a.Priority, a.Department, a.Title, a.Role, a.Username,
			a.CurrentStatus, a.Recommended, a.Justification,
			a.Compliance, a.Affected, a.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
