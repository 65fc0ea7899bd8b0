// Package app orchestrates complete review runs: input parsing, directory
// dial, engine invocation, and output writing, with run-scoped logging.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/soxtools/adreview/internal/config"
	"github.com/soxtools/adreview/internal/directory"
	"github.com/soxtools/adreview/internal/summary"
	"github.com/soxtools/adreview/internal/util"
	"github.com/soxtools/adreview/pkg/review"
	"github.com/soxtools/adreview/pkg/review/apps"
	"github.com/soxtools/adreview/pkg/review/csvio"
	"github.com/soxtools/adreview/pkg/review/datascan"
	"github.com/soxtools/adreview/pkg/review/roleanalysis"
	"github.com/soxtools/adreview/pkg/review/xlsxio"
)

// Runtime carries the per-invocation dependencies shared by every subcommand.
type Runtime struct {
	Config config.Config
	Logger *log.Logger
}

func (rt *Runtime) logf(runID string) func(format string, args ...any) {
	return func(format string, args ...any) {
		prefix := make([]any, 0, len(args)+1)
		prefix = append(prefix, runID)
		prefix = append(prefix, args...)
		rt.Logger.Printf("run=%s "+format, prefix...)
	}
}

func newRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}

// CSVOptions configures one export correlation run.
type CSVOptions struct {
	AppName        string
	InputPath      string
	OutputPath     string
	RoleOutputPath string
	DisableFilters bool
	Summarize      bool
}

// RunCSV correlates one CSV export against the directory and writes the
// normalized output (plus role assignments when requested).
func RunCSV(ctx context.Context, rt *Runtime, opts CSVOptions) error {
	runID := newRunID()
	logf := rt.logf(runID)
	start := time.Now()

	app, err := apps.New(opts.AppName)
	if err != nil {
		return err
	}
	if err := rt.Config.ValidateDirectory(); err != nil {
		return err
	}
	logf("correlation start: app=%s input=%s workers=%d timeout=%s rateLimitRPS=%g noFilters=%t",
		opts.AppName, opts.InputPath, rt.Config.Run.Workers, rt.Config.Run.RequestTimeout,
		rt.Config.Run.RateLimitRPS, opts.DisableFilters)

	table, warnings, err := readCSVFile(opts.InputPath)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logf("input row %d: %s", w.Row, w.Message)
	}
	logf("loaded %d rows (%d warnings) from %s", len(table.Rows), len(warnings), opts.InputPath)

	dir, err := dialDirectory(rt, logf)
	if err != nil {
		return err
	}
	defer dir.Close()
	cache := directory.NewCache(dir)

	result, err := review.Run(ctx, table, app, cache, review.RunOptions{
		DisableFilters: opts.DisableFilters,
		ExtractRoles:   opts.RoleOutputPath != "",
		Workers:        rt.Config.Run.Workers,
		RequestTimeout: rt.Config.Run.RequestTimeout,
		RateLimitRPS:   rt.Config.Run.RateLimitRPS,
		Logf:           logf,
	})
	if err != nil {
		return err
	}
	logf("resolution complete: %s (cache entries=%d)", result.Stats.Summary(), cache.Len())

	if err := writeRecordsFile(opts.OutputPath, app.OutputColumns(), result.Records); err != nil {
		return err
	}
	logf("wrote %d records to %s", len(result.Records), opts.OutputPath)

	if opts.RoleOutputPath != "" {
		if err := writeRolesFile(opts.RoleOutputPath, result.Roles); err != nil {
			return err
		}
		logf("wrote %d role assignments to %s", len(result.Roles), opts.RoleOutputPath)
	}

	if opts.Summarize {
		narrate(ctx, rt, logf, summary.RunInfo{
			Application: opts.AppName,
			InputPath:   opts.InputPath,
			Stats:       result.Stats,
			Warnings:    len(warnings),
			RoleCount:   len(result.Roles),
		})
	}

	logf("correlation complete: duration=%s", time.Since(start).Round(time.Millisecond))
	return nil
}

// DatascanOptions configures one permission-matrix analysis run.
type DatascanOptions struct {
	InputPath       string
	OutputPath      string
	Sheet           string
	DeleteThreshold int
	Summarize       bool
}

// RunDatascan analyzes the permission-matrix workbook, validates its users
// against the directory, and writes the multi-sheet report.
func RunDatascan(ctx context.Context, rt *Runtime, opts DatascanOptions) error {
	runID := newRunID()
	logf := rt.logf(runID)
	start := time.Now()

	if err := rt.Config.ValidateDirectory(); err != nil {
		return err
	}
	logf("datascan start: input=%s sheet=%q", opts.InputPath, opts.Sheet)

	table, err := xlsxio.ReadFile(opts.InputPath, xlsxio.ReadOptions{
		Sheet:       opts.Sheet,
		ForwardFill: datascan.ForwardFillColumns(),
	})
	if err != nil {
		return err
	}

	perms, err := datascan.ParsePermissions(table)
	if err != nil {
		return err
	}
	logf("parsed %d permission rows from %d sheet rows", len(perms), len(table.Rows))

	dir, err := dialDirectory(rt, logf)
	if err != nil {
		return err
	}
	defer dir.Close()
	cache := directory.NewCache(dir)

	validations := datascan.ValidateUsers(ctx, cache, perms)
	found, disabled := 0, 0
	for _, v := range validations {
		if v.Found {
			found++
		}
		if v.Disabled {
			disabled++
		}
	}
	logf("validated %d distinct users: found=%d disabled=%d missing=%d",
		len(validations), found, disabled, len(validations)-found)

	wb, err := datascan.BuildWorkbook(perms, validations, opts.DeleteThreshold)
	if err != nil {
		return err
	}
	if err := wb.SaveAs(opts.OutputPath); err != nil {
		return fmt.Errorf("write report %s: %w", opts.OutputPath, err)
	}
	logf("wrote analysis workbook to %s", opts.OutputPath)

	if opts.Summarize {
		stats := review.NewStats()
		for _, v := range validations {
			stats.Count(v.Method)
		}
		narrate(ctx, rt, logf, summary.RunInfo{
			Application: "datascan",
			InputPath:   opts.InputPath,
			Stats:       stats,
		})
	}

	logf("datascan complete: duration=%s", time.Since(start).Round(time.Millisecond))
	return nil
}

// AnalyzeOptions configures one role-standardization analysis run.
type AnalyzeOptions struct {
	InputPath           string
	ReportPath          string
	RecommendationsPath string
	ActionsPath         string
	Threshold           int
}

// RunAnalyze classifies role assignments as standard or ad-hoc and writes the
// requested reports. It needs no directory connection.
func RunAnalyze(rt *Runtime, opts AnalyzeOptions) error {
	runID := newRunID()
	logf := rt.logf(runID)

	table, warnings, err := readCSVFile(opts.InputPath)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logf("input row %d: %s", w.Row, w.Message)
	}

	analysis, err := roleanalysis.Analyze(table, opts.Threshold)
	if err != nil {
		return err
	}
	s := roleanalysis.Summarize(analysis)
	logf("analyzed %d users in %d groups: compliant=%d review=%d (%.1f%% compliance, %d rows skipped)",
		s.TotalUsers, s.TotalGroups, s.GroupsStandardOnly, s.GroupsWithAdHoc,
		s.ComplianceRate, analysis.SkippedRows)

	if opts.ReportPath != "" {
		if err := writeWith(opts.ReportPath, func(f *os.File) error {
			return roleanalysis.WriteTextReport(f, analysis)
		}); err != nil {
			return err
		}
		logf("wrote text report to %s", opts.ReportPath)
	}
	if opts.RecommendationsPath != "" {
		if err := writeWith(opts.RecommendationsPath, func(f *os.File) error {
			return roleanalysis.WriteRecommendations(f, analysis)
		}); err != nil {
			return err
		}
		logf("wrote recommendations to %s", opts.RecommendationsPath)
	}
	if opts.ActionsPath != "" {
		if err := writeWith(opts.ActionsPath, func(f *os.File) error {
			return roleanalysis.WriteActions(f, analysis)
		}); err != nil {
			return err
		}
		logf("wrote action queue to %s", opts.ActionsPath)
	}
	return nil
}

func dialDirectory(rt *Runtime, logf func(string, ...any)) (*directory.Client, error) {
	dir, err := directory.Dial(directory.Options{
		ServerURL:  rt.Config.Directory.Server,
		Username:   rt.Config.Directory.Username,
		Password:   rt.Config.Directory.Password,
		BaseDN:     rt.Config.Directory.BaseDN,
		MaxRetries: rt.Config.Run.MaxRetries,
		Timeout:    rt.Config.Run.RequestTimeout,
		Logf:       logf,
	})
	if err != nil {
		return nil, fmt.Errorf("%s", util.RedactSecrets(err.Error()))
	}
	logf("connected to directory %s", rt.Config.Directory.Server)
	return dir, nil
}

// narrate attaches the run summary to the log, preferring the model-written
// narrative when Gemini is configured and falling back to the deterministic
// text on any failure.
func narrate(ctx context.Context, rt *Runtime, logf func(string, ...any), info summary.RunInfo) {
	text := summary.Text(info)
	if rt.Config.Gemini.APIKey != "" {
		narrator, err := summary.NewNarrator(ctx, summary.GeminiConfig{
			APIKey: rt.Config.Gemini.APIKey,
			Model:  rt.Config.Gemini.Model,
		})
		if err == nil {
			if prose, err := narrator.Narrate(ctx, info); err == nil {
				logf("run summary: %s", prose)
				return
			} else {
				logf("summary narration failed, using deterministic text: %v",
					util.RedactSecrets(err.Error()))
			}
		}
	}
	logf("run summary:\n%s", text)
}

func readCSVFile(path string) (review.Table, []csvio.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return review.Table{}, nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return csvio.Read(f)
}

func writeRecordsFile(path string, columns []string, records []review.OutputRecord) error {
	return writeWith(path, func(f *os.File) error {
		return csvio.WriteRecords(f, columns, records)
	})
}

func writeRolesFile(path string, roles []review.RoleAssignment) error {
	return writeWith(path, func(f *os.File) error {
		return csvio.WriteRoles(f, roles)
	})
}

func writeWith(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
