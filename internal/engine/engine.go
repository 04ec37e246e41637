// Package engine keeps reports, their reactions and their categories
// consistent. It admits votes once per user, updates the denormalized counters
// together with the reaction records, retires reports that cross the removal
// thresholds and sweeps abandoned ones.
//
// The store offers no multi-document transactions, so every write touching a
// report runs under that report's lock. Category list writes additionally take
// the category lock, always after the report lock.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/lock"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/google/uuid"
)

// Store is the part of the gateway the engine writes through.
type Store interface {
	store.CategoryStore
	store.ReportStore
	store.ReactionStore
}

type Options struct {
	// Location is the zone report ages are measured in.
	Location *time.Location
	// SweepConcurrency bounds how many reports a sweep retires at once.
	SweepConcurrency int
	// Now overrides the clock.
	Now func() time.Time
	// OnInconsistency receives every *PartialRemovalError and
	// *OrphanReactionError after it has been logged.
	OnInconsistency func(error)
}

type Engine struct {
	store  Store
	images imagehost.Host
	locks  lock.Locker

	loc              *time.Location
	sweepConcurrency int
	now              func() time.Time
	onInconsistency  func(error)

	sweeping atomic.Bool
}

func New(st Store, images imagehost.Host, locks lock.Locker, opts Options) *Engine {
	e := &Engine{
		store:            st,
		images:           images,
		locks:            locks,
		loc:              opts.Location,
		sweepConcurrency: opts.SweepConcurrency,
		now:              opts.Now,
		onInconsistency:  opts.OnInconsistency,
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.sweepConcurrency < 1 {
		e.sweepConcurrency = 1
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// ReactionInput is a vote as submitted by a client.
type ReactionInput struct {
	UserID        string
	Confirm       bool
	Justification string
}

// ReactionResult carries the report's counters after a submission.
type ReactionResult struct {
	ReportID  string       `json:"id"`
	Confirmed int          `json:"confirmed"`
	Denied    int          `json:"denied"`
	Message   string       `json:"message"`
	Counted   bool         `json:"counted"`
	Rejection RejectReason `json:"rejection,omitempty"`
	Retired   bool         `json:"retired"`
}

const (
	MessageNotCounted   = "vote not counted: reporter or already-voted user"
	MessageConfirmation = "valid confirmation"
	MessageDenunciation = "valid denunciation"
)

// SubmitReaction runs guard, synchronizer and lifecycle evaluation for one
// vote under the report lock. Guard rejections are results, not errors.
//
// If the vote triggers retirement but the removal fails, the vote stays
// counted and the failure is logged. The report then refuses further votes,
// retrying the removal on each attempt, and the next sweep retries it too.
func (e *Engine) SubmitReaction(ctx context.Context, reportID string, in ReactionInput) (*ReactionResult, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidReaction)
	}

	release, err := e.lockReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	defer release()

	report, err := e.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, classify("get report", err, ErrReportNotFound)
	}

	result := &ReactionResult{
		ReportID:  report.ID,
		Confirmed: report.ConfirmedCount,
		Denied:    report.DeniedCount,
		Message:   MessageNotCounted,
	}

	// A report still matching the denunciation rule is owed a retirement
	// that failed earlier; it takes no more votes.
	if Denounced(report) {
		if err := e.remove(ctx, report.ID); err != nil {
			slog.Error("pending retirement failed again",
				"report_id", report.ID, "action", "retire", "error", err)
			result.Rejection = PendingRetirement
			return result, nil
		}
		slog.Info("report retired", "report_id", report.ID, "reason", ReasonDenounced)
		return nil, ErrReportNotFound
	}

	verdict := Admit(report, in.UserID)
	if !verdict.Admitted {
		result.Rejection = verdict.Reason
		slog.Info("reaction rejected", "report_id", reportID, "user_id", in.UserID, "reason", verdict.Reason)
		return result, nil
	}

	reaction := &models.Reaction{
		ID:        uuid.NewString(),
		ReportID:  report.ID,
		UserID:    in.UserID,
		ReactedAt: e.now().UTC(),
		Confirm:   in.Confirm,
	}
	if !in.Confirm {
		reaction.Justification = strings.TrimSpace(in.Justification)
	}

	if err := e.apply(ctx, report, reaction); err != nil {
		return nil, err
	}

	result.Confirmed = report.ConfirmedCount
	result.Denied = report.DeniedCount
	result.Counted = true
	if reaction.Confirm {
		result.Message = MessageConfirmation
	} else {
		result.Message = MessageDenunciation
	}

	if !reaction.Confirm && Denounced(report) {
		if err := e.remove(ctx, report.ID); err != nil {
			slog.Error("retirement after denunciation failed",
				"report_id", report.ID, "action", "retire", "error", err)
		} else {
			result.Retired = true
			slog.Info("report retired", "report_id", report.ID, "reason", ReasonDenounced)
		}
	}
	return result, nil
}

// RemoveReport retires a report on request, e.g. by its owner.
func (e *Engine) RemoveReport(ctx context.Context, reportID string) error {
	release, err := e.lockReport(ctx, reportID)
	if err != nil {
		return err
	}
	defer release()
	return e.remove(ctx, reportID)
}

func (e *Engine) lockReport(ctx context.Context, reportID string) (func(), error) {
	release, err := e.locks.Lock(ctx, lock.ReportKey(reportID))
	if err != nil {
		return nil, fmt.Errorf("lock report %s: %w: %w", reportID, ErrStoreUnavailable, err)
	}
	return release, nil
}

func (e *Engine) lockCategory(ctx context.Context, categoryID string) (func(), error) {
	release, err := e.locks.Lock(ctx, lock.CategoryKey(categoryID))
	if err != nil {
		return nil, fmt.Errorf("lock category %s: %w: %w", categoryID, ErrStoreUnavailable, err)
	}
	return release, nil
}

func (e *Engine) inconsistency(err error) {
	if e.onInconsistency != nil {
		e.onInconsistency(err)
	}
}
