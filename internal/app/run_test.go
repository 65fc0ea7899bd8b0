package app

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soxtools/adreview/internal/config"
)

func TestRunAnalyzeEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "roles.csv")
	data := "username,department,title,assigned_roles\n" +
		"jdoe,Collections,Collector,\"Collector, Report Viewer\"\n" +
		"asmith,Collections,Collector,Collector\n" +
		"bjones,Collections,Collector,Collector\n"
	if err := os.WriteFile(input, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	report := filepath.Join(dir, "report.txt")
	recs := filepath.Join(dir, "recommendations.csv")

	var logBuf strings.Builder
	rt := &Runtime{
		Config: config.Defaults(),
		Logger: log.New(&logBuf, "", 0),
	}

	err := RunAnalyze(rt, AnalyzeOptions{
		InputPath:           input,
		ReportPath:          report,
		RecommendationsPath: recs,
		Threshold:           70,
	})
	if err != nil {
		t.Fatalf("RunAnalyze: %v", err)
	}

	reportBytes, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(reportBytes), "DEPARTMENT: Collections | TITLE: Collector") {
		t.Errorf("report:\n%s", reportBytes)
	}

	recBytes, err := os.ReadFile(recs)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(recBytes), "Collector") {
		t.Errorf("recommendations:\n%s", recBytes)
	}

	if !strings.Contains(logBuf.String(), "analyzed 3 users in 1 groups") {
		t.Errorf("log:\n%s", logBuf.String())
	}
}

func TestRunAnalyzeMissingColumnsFailsBeforeWriting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "roles.csv")
	if err := os.WriteFile(input, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(dir, "report.txt")

	rt := &Runtime{Config: config.Defaults(), Logger: log.New(os.Stderr, "", 0)}
	err := RunAnalyze(rt, AnalyzeOptions{InputPath: input, ReportPath: report, Threshold: 70})
	if err == nil {
		t.Fatal("expected structural error")
	}
	if _, statErr := os.Stat(report); !os.IsNotExist(statErr) {
		t.Error("report must not be written on structural error")
	}
}
