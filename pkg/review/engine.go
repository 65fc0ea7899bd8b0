package review

import (
	"context"
	"time"

	"github.com/soxtools/adreview/pkg/review/worker"
)

// RunOptions tunes a single engine pass.
type RunOptions struct {
	// DisableFilters processes every row, including ones the app's filter
	// policy would exclude.
	DisableFilters bool

	// ExtractRoles emits RoleAssignments for apps implementing RoleExtractor.
	ExtractRoles bool

	// Workers is the resolution pool size; the default (0 or 1) processes
	// rows strictly sequentially. Output order and statistics are identical
	// for any worker count.
	Workers int

	// RequestTimeout bounds each row's resolution, surfacing as MethodError
	// for that row only.
	RequestTimeout time.Duration

	// RateLimitRPS caps directory queries per second across all workers.
	// <=0 disables.
	RateLimitRPS float64

	// Logf receives progress and per-row lookup error lines. Nil silences.
	Logf func(format string, args ...any)
}

// RunResult is the output triple of one engine pass.
type RunResult struct {
	Records []OutputRecord
	Roles   []RoleAssignment
	Stats   *Stats
}

type rowOutcome struct {
	rec     OutputRecord
	roles   []RoleAssignment
	dropped bool
}

// Run correlates every row of the table against the directory using the app's
// policies. Rows are filtered, resolved, and emitted in input order; skipped
// rows contribute to neither output nor statistics. The engine holds no state
// across calls.
func Run(ctx context.Context, table Table, app App, dir Directory, opts RunOptions) (*RunResult, error) {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	if err := app.Bind(table.Headers); err != nil {
		return nil, err
	}

	start := time.Now()

	kept := table.Rows
	if !opts.DisableFilters {
		kept = make([]Row, 0, len(table.Rows))
		for _, row := range table.Rows {
			if app.ShouldSkip(row) {
				continue
			}
			kept = append(kept, row)
		}
		if skipped := len(table.Rows) - len(kept); skipped > 0 {
			logf("filtered %d of %d rows before resolution", skipped, len(table.Rows))
		}
	}

	resultFilter, _ := app.(ResultFilter)
	roleExtractor, _ := app.(RoleExtractor)

	process := func(rowCtx context.Context, row Row) (rowOutcome, error) {
		attempts, original := app.Attempts(row)
		res := Resolve(rowCtx, dir, attempts)
		if res.Err != nil {
			logf("lookup error for %q: %v", original, res.Err)
		}

		if resultFilter != nil && !opts.DisableFilters && resultFilter.DropAfterResolve(row, res.Method) {
			return rowOutcome{dropped: true}, nil
		}

		out := rowOutcome{
			rec: app.BuildRecord(row, res.Username(), res.Identity, res.Method, original),
		}
		if opts.ExtractRoles && roleExtractor != nil {
			out.roles = roleExtractor.Roles(row, out.rec)
		}
		return out, nil
	}

	outcomes, err := worker.ProcessAll(ctx, kept, process, worker.Options{
		Workers:      opts.Workers,
		ItemTimeout:  opts.RequestTimeout,
		RateLimitRPS: opts.RateLimitRPS,
	})
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Records: make([]OutputRecord, 0, len(outcomes)),
		Stats:   NewStats(),
	}
	for _, o := range outcomes {
		if o.Output.dropped {
			continue
		}
		result.Records = append(result.Records, o.Output.rec)
		result.Roles = append(result.Roles, o.Output.roles...)
		result.Stats.Count(o.Output.rec.Method)
	}
	result.Stats.Duration = time.Since(start)

	return result, nil
}
