package summary

import (
	"strings"
	"testing"

	"github.com/soxtools/adreview/pkg/review"
)

func TestTextIsDeterministicAndCountsOnly(t *testing.T) {
	t.Parallel()

	stats := review.NewStats()
	stats.Count(review.MethodPrimary)
	stats.Count(review.MethodPrimary)
	stats.Count(review.MethodBackup)
	stats.Count(review.MethodFailed)

	info := RunInfo{
		Application: "defi-los",
		InputPath:   "exports/defi_los.csv",
		Stats:       stats,
		Warnings:    2,
		RoleCount:   7,
	}

	first := Text(info)
	second := Text(info)
	if first != second {
		t.Fatal("Text must be deterministic")
	}

	for _, want := range []string{
		"Application: defi-los",
		"primary: 2",
		"backup: 1",
		"failed: 1",
		"Input warnings: 2",
		"Role assignments extracted: 7",
	} {
		if !strings.Contains(first, want) {
			t.Errorf("summary missing %q:\n%s", want, first)
		}
	}
}

func TestTextOmitsEmptySections(t *testing.T) {
	t.Parallel()

	info := RunInfo{
		Application: "great-plains",
		InputPath:   "gp.csv",
		Stats:       review.NewStats(),
	}
	out := Text(info)
	if strings.Contains(out, "warnings") || strings.Contains(out, "Role assignments") {
		t.Errorf("empty sections should be omitted:\n%s", out)
	}
}

func TestBuildPromptCarriesCountsNotRows(t *testing.T) {
	t.Parallel()

	stats := review.NewStats()
	stats.Count(review.MethodDisplayName)
	prompt := buildPrompt(RunInfo{Application: "datascan", InputPath: "scan.xlsx", Stats: stats})

	if !strings.Contains(prompt, "displayname: 1") {
		t.Errorf("prompt missing counts:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Do not speculate") {
		t.Errorf("prompt missing instruction guardrails:\n%s", prompt)
	}
}
