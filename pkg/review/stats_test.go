package review

import (
	"strings"
	"testing"
)

func TestStatsCounting(t *testing.T) {
	t.Parallel()

	s := NewStats()
	s.Count(MethodPrimary)
	s.Count(MethodPrimary)
	s.Count(MethodBackup)
	s.Count(MethodFailed)
	s.Count(MethodError)

	if s.TotalRecords != 5 {
		t.Errorf("total = %d, want 5", s.TotalRecords)
	}
	if s.Successful() != 3 {
		t.Errorf("successful = %d, want 3", s.Successful())
	}
	if got := s.SuccessRate(); got != 60 {
		t.Errorf("rate = %v, want 60", got)
	}
}

func TestStatsEmptyRun(t *testing.T) {
	t.Parallel()

	s := NewStats()
	if s.SuccessRate() != 0 {
		t.Errorf("empty run rate = %v, want 0", s.SuccessRate())
	}
	if !strings.Contains(s.Summary(), "records=0") {
		t.Errorf("summary = %q", s.Summary())
	}
}

func TestStatsSummaryIsDeterministic(t *testing.T) {
	t.Parallel()

	s := NewStats()
	s.Count(MethodDisplayName)
	s.Count(MethodNameComponents)
	s.Count(MethodFailed)

	first := s.Summary()
	for i := 0; i < 5; i++ {
		if got := s.Summary(); got != first {
			t.Fatalf("summary changed between calls: %q vs %q", first, got)
		}
	}
	for _, want := range []string{"displayname=1", "name_components=1", "failed=1"} {
		if !strings.Contains(first, want) {
			t.Errorf("summary %q missing %q", first, want)
		}
	}
}
