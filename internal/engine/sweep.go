package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/sourcegraph/conc/pool"
)

// SweepFailure is one report the sweep could not retire.
type SweepFailure struct {
	ReportID string `json:"report_id"`
	Error    string `json:"error"`
	Err      error  `json:"-"`
}

type SweepResult struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Evaluated int            `json:"evaluated"`
	Retired   int            `json:"retired"`
	// OrphansRemoved counts reaction records no surviving report referenced.
	OrphansRemoved int            `json:"orphans_removed"`
	Failures       []SweepFailure `json:"failures"`
	// Skipped is set when another sweep was still running.
	Skipped bool `json:"skipped"`
}

// Errors returns the per-report failures as errors.
func (r *SweepResult) Errors() []error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Sweep retires every abandoned report and deletes reaction records the
// surviving reports no longer reference. Runs never overlap: a call made while
// another sweep is active returns immediately with Skipped set. Failures are
// collected per report and never stop the run; only failing to list the
// reports is returned as an error.
func (e *Engine) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{StartedAt: e.now().UTC(), Failures: []SweepFailure{}}
	if !e.sweeping.CompareAndSwap(false, true) {
		result.Skipped = true
		slog.Warn("sweep already running, skipping")
		return result, nil
	}
	defer e.sweeping.Store(false)

	reports, err := e.store.ListReports(ctx)
	if err != nil {
		return nil, classify("list reports", err, ErrReportNotFound)
	}
	now := e.now()
	result.Evaluated = len(reports)

	var (
		mu sync.Mutex
		p  = pool.New().WithMaxGoroutines(e.sweepConcurrency)
	)
	for i := range reports {
		reportID := reports[i].ID
		p.Go(func() {
			retired, orphans, err := e.sweepReport(ctx, reportID, now)
			mu.Lock()
			defer mu.Unlock()
			result.OrphansRemoved += orphans
			if err != nil {
				result.Failures = append(result.Failures, SweepFailure{
					ReportID: reportID, Error: err.Error(), Err: err,
				})
				return
			}
			if retired {
				result.Retired++
			}
		})
	}
	p.Wait()

	result.Duration = e.now().Sub(result.StartedAt)
	slog.Info("sweep finished",
		"evaluated", result.Evaluated,
		"retired", result.Retired,
		"orphans_removed", result.OrphansRemoved,
		"failed", len(result.Failures),
		"duration", result.Duration.String(),
	)
	return result, nil
}

// sweepReport re-evaluates the report under its lock, since reactions may
// have landed between listing and locking. A report that stays is reconciled
// against its reaction records instead.
func (e *Engine) sweepReport(ctx context.Context, reportID string, now time.Time) (bool, int, error) {
	release, err := e.lockReport(ctx, reportID)
	if err != nil {
		return false, 0, err
	}
	defer release()

	report, err := e.store.GetReport(ctx, reportID)
	if err != nil {
		err = classify("get report", err, ErrReportNotFound)
		if errors.Is(err, ErrReportNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	reason, retire := EvaluateSweep(report, now, e.loc)
	if !retire {
		orphans, err := e.reconcile(ctx, report)
		return false, orphans, err
	}
	if err := e.remove(ctx, reportID); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	slog.Info("report retired", "report_id", reportID, "reason", reason)
	return true, 0, nil
}

// reconcile deletes reaction records filed under report that its refs do not
// list, the leftovers of a rollback whose compensating delete failed.
// Caller holds the report lock.
func (e *Engine) reconcile(ctx context.Context, report *models.Report) (int, error) {
	reactions, err := e.store.ListReactionsByReport(ctx, report.ID)
	if err != nil {
		return 0, classify("list reactions", err, ErrReportNotFound)
	}
	referenced := make(map[string]struct{}, len(report.Reactions))
	for _, ref := range report.Reactions {
		referenced[ref.ID] = struct{}{}
	}
	removed := 0
	for _, reaction := range reactions {
		if _, ok := referenced[reaction.ID]; ok {
			continue
		}
		err := e.store.DeleteReaction(ctx, reaction.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return removed, classify("delete orphan reaction", err, ErrReportNotFound)
		}
		removed++
		slog.Warn("orphan reaction removed", "report_id", report.ID, "reaction_id", reaction.ID)
	}
	return removed, nil
}
