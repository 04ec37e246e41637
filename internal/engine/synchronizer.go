package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
)

// apply persists an admitted reaction and folds it into report's refs and
// counters. On failure report is left as loaded and no reaction survives,
// unless the compensating delete fails too, which yields an orphan.
// Caller holds the report lock.
func (e *Engine) apply(ctx context.Context, report *models.Report, reaction *models.Reaction) error {
	if err := e.store.SaveReaction(ctx, reaction); err != nil {
		return classify("save reaction", err, ErrReportNotFound)
	}

	next := report.Clone()
	next.Reactions = append(next.Reactions, reaction.Ref())
	if reaction.Confirm {
		next.ConfirmedCount++
	} else {
		next.DeniedCount++
	}

	if err := e.store.SaveReport(ctx, next); err != nil {
		e.compensate(ctx, reaction, err)
		return classify("save report", err, ErrReportNotFound)
	}

	*report = *next
	return nil
}

func (e *Engine) compensate(ctx context.Context, reaction *models.Reaction, cause error) {
	err := e.store.DeleteReaction(ctx, reaction.ID)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		slog.Warn("reaction rolled back",
			"report_id", reaction.ReportID, "reaction_id", reaction.ID, "cause", cause)
		return
	}
	orphan := &OrphanReactionError{ReportID: reaction.ReportID, ReactionID: reaction.ID, Err: err}
	slog.Error("orphan reaction left behind",
		"report_id", reaction.ReportID,
		"reaction_id", reaction.ID,
		"action", "compensate",
		"error", err,
		"cause", cause.Error(),
	)
	e.inconsistency(orphan)
}
