package review

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stats accumulates per-method counts for one engine run. The engine owns the
// instance for the duration of the run and hands it out read-only afterwards.
type Stats struct {
	TotalRecords int
	Methods      map[LookupMethod]int
	Duration     time.Duration
}

func NewStats() *Stats {
	return &Stats{Methods: make(map[LookupMethod]int)}
}

// Count records one processed row's terminal method.
func (s *Stats) Count(m LookupMethod) {
	s.TotalRecords++
	s.Methods[m]++
}

// Successful is the number of rows resolved by any method.
func (s *Stats) Successful() int {
	return s.TotalRecords - s.Methods[MethodFailed] - s.Methods[MethodError]
}

// SuccessRate is successful lookups over total, in percent. Zero when no rows
// were processed.
func (s *Stats) SuccessRate() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.Successful()) / float64(s.TotalRecords) * 100
}

// Summary renders a one-line log summary of the method counts.
func (s *Stats) Summary() string {
	methods := make([]string, 0, len(s.Methods))
	for m := range s.Methods {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)

	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		parts = append(parts, fmt.Sprintf("%s=%d", m, s.Methods[LookupMethod(m)]))
	}
	return fmt.Sprintf("records=%d %s rate=%.1f%% duration=%s",
		s.TotalRecords, strings.Join(parts, " "), s.SuccessRate(), s.Duration.Round(time.Millisecond))
}
