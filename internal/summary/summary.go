// Package summary renders the end-of-run narrative attached to review
// evidence. The deterministic text renderer always works; a Gemini-backed
// narrator can be layered on when an API key is configured. Only aggregate
// counts ever leave the process, never row data or identities.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soxtools/adreview/pkg/review"
)

// RunInfo is the aggregate, PII-free description of a completed run.
type RunInfo struct {
	Application string
	InputPath   string
	Stats       *review.Stats
	Warnings    int
	RoleCount   int
}

// Text renders a deterministic plain-text summary of the run.
func Text(info RunInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Application: %s\n", info.Application)
	fmt.Fprintf(&b, "Input: %s\n", info.InputPath)
	fmt.Fprintf(&b, "%s\n", info.Stats.Summary())

	methods := make([]string, 0, len(info.Stats.Methods))
	for m := range info.Stats.Methods {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(&b, "  %s: %d\n", m, info.Stats.Methods[review.LookupMethod(m)])
	}

	if info.Warnings > 0 {
		fmt.Fprintf(&b, "Input warnings: %d\n", info.Warnings)
	}
	if info.RoleCount > 0 {
		fmt.Fprintf(&b, "Role assignments extracted: %d\n", info.RoleCount)
	}
	return b.String()
}
