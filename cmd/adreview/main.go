package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/soxtools/adreview/internal/app"
	"github.com/soxtools/adreview/internal/config"
	"github.com/soxtools/adreview/internal/util"
	"github.com/soxtools/adreview/internal/version"
	"github.com/soxtools/adreview/pkg/review"
	"github.com/soxtools/adreview/pkg/review/datascan"
	"github.com/soxtools/adreview/pkg/review/roleanalysis"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		fmt.Println(version.Current)
		return
	case "great-plains", "defi-los", "defi-servicing", "defi-xlos":
		os.Exit(runCorrelate(ctx, os.Args[1], os.Args[2:]))
	case "datascan":
		os.Exit(runDatascan(ctx, os.Args[2:]))
	case "analyze":
		os.Exit(runAnalyze(os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runCorrelate(ctx context.Context, appName string, args []string) int {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Input export CSV file path")
	outputPath := fs.String("output", "", "Output CSV file path")
	roleOutput := fs.String("role-output", "", "Optional role-assignment CSV output path (defi-los)")
	noFilters := fs.Bool("no-filters", false, "Process every row, including ones the filter policy would exclude")
	summarize := fs.Bool("summary", false, "Log an end-of-run summary (Gemini-written when GEMINI_API_KEY is set)")
	configPath := fs.String("config", "", "Optional YAML config file (env vars win)")
	workers := fs.Int("workers", 0, "Resolution worker count override (env: WORKERS)")
	requestTimeout := fs.Duration("request-timeout", 0, "Per-row directory timeout override (env: REQUEST_TIMEOUT)")
	rateLimitRPS := fs.Float64("rate-limit-rps", 0, "Directory query rate limit override, 0 keeps config (env: RATE_LIMIT_RPS)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintf(os.Stderr, "%s requires --input and --output\n", appName)
		return 2
	}

	rt, code := newRuntime(*configPath, *workers, *requestTimeout, *rateLimitRPS)
	if code != 0 {
		return code
	}

	err := app.RunCSV(ctx, rt, app.CSVOptions{
		AppName:        appName,
		InputPath:      *inputPath,
		OutputPath:     *outputPath,
		RoleOutputPath: *roleOutput,
		DisableFilters: *noFilters,
		Summarize:      *summarize,
	})
	return exitCode(appName, err)
}

func runDatascan(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("datascan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Permission-matrix workbook (.xlsx) path")
	outputPath := fs.String("output", "", "Analysis workbook output path")
	sheet := fs.String("sheet", "", "Worksheet name (default: first sheet)")
	deleteThreshold := fs.Int("delete-threshold", datascan.DeleteThreshold, "Delete-permission count marking a user high risk")
	summarize := fs.Bool("summary", false, "Log an end-of-run summary (Gemini-written when GEMINI_API_KEY is set)")
	configPath := fs.String("config", "", "Optional YAML config file (env vars win)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" || *outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "datascan requires --input and --output")
		return 2
	}

	rt, code := newRuntime(*configPath, 0, 0, 0)
	if code != 0 {
		return code
	}

	err := app.RunDatascan(ctx, rt, app.DatascanOptions{
		InputPath:       *inputPath,
		OutputPath:      *outputPath,
		Sheet:           *sheet,
		DeleteThreshold: *deleteThreshold,
		Summarize:       *summarize,
	})
	return exitCode("datascan", err)
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Role-assignment CSV path (username, department, title, assigned_roles)")
	reportPath := fs.String("output", "", "Text report output path")
	recPath := fs.String("recommendations", "", "Recommendations CSV output path")
	actionsPath := fs.String("actions", "", "Actionable work-queue CSV output path")
	threshold := fs.Int("threshold", roleanalysis.DefaultThreshold, "Percentage of a group's users holding a role for it to be standard")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "analyze requires --input")
		return 2
	}
	if *threshold < 1 || *threshold > 100 {
		_, _ = fmt.Fprintln(os.Stderr, "analyze: --threshold must be between 1 and 100")
		return 2
	}
	if *reportPath == "" && *recPath == "" && *actionsPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "analyze requires at least one of --output, --recommendations, --actions")
		return 2
	}

	rt := &app.Runtime{
		Config: config.Defaults(),
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
	err := app.RunAnalyze(rt, app.AnalyzeOptions{
		InputPath:           *inputPath,
		ReportPath:          *reportPath,
		RecommendationsPath: *recPath,
		ActionsPath:         *actionsPath,
		Threshold:           *threshold,
	})
	return exitCode("analyze", err)
}

// newRuntime loads config and applies flag overrides. Zero-valued
// overrides keep the file/env values.
func newRuntime(configPath string, workers int, requestTimeout time.Duration, rateLimitRPS float64) (*app.Runtime, int) {
	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return nil, 2
	}
	if workers > 0 {
		cfg.Run.Workers = workers
	}
	if requestTimeout > 0 {
		cfg.Run.RequestTimeout = requestTimeout
	}
	if rateLimitRPS > 0 {
		cfg.Run.RateLimitRPS = rateLimitRPS
	}
	return &app.Runtime{
		Config: cfg,
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}, 0
}

func exitCode(command string, err error) int {
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(os.Stderr, "%s failed: %s\n", command, util.RedactSecrets(err.Error()))
	var confErr *review.ConfigurationError
	if errors.As(err, &confErr) {
		return 2
	}
	return 1
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `adreview: correlate application access exports with Active Directory

Usage:
  adreview <command> [flags]

Commands:
  great-plains    Correlate the Great Plains ERP security export (CSV)
  defi-los        Correlate the Defi LOS user export (CSV, optional --role-output)
  defi-servicing  Correlate the Defi Servicing user export (CSV)
  defi-xlos       Correlate the Defi XLOS user export (CSV)
  datascan        Analyze the Datascan permission-matrix workbook (xlsx)
  analyze         Classify role assignments as standard vs ad-hoc (no directory needed)
  version         Print the version

Examples:
  adreview defi-los --input export.csv --output resolved.csv --role-output roles.csv
  adreview datascan --input matrix.xlsx --output analysis.xlsx --sheet "User Permissions"
  adreview analyze --input roles.csv --output report.txt --recommendations recs.csv

Environment (directory):
  AD_SERVER    LDAP URL (e.g. ldaps://dc01.example.com:636)
  AD_USERNAME  Bind user
  AD_PASSWORD  Bind password
  AD_BASE_DN   Search base (e.g. DC=example,DC=com)

Environment (tuning):
  WORKERS          Resolution worker count (default 1)
  MAX_RETRIES      Directory re-dial attempts on network failure (default 2)
  REQUEST_TIMEOUT  Per-row directory timeout (default 30s)
  RATE_LIMIT_RPS   Directory query rate limit, 0 disables

Environment (summary):
  GEMINI_API_KEY  Enables the model-written run summary with --summary
  GEMINI_MODEL    Model name override
`)
}
