package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
)

// remove runs the cascading removal of one report: reactions, category link,
// report record, then the image asset. Caller holds the report lock.
//
// A report that is still stored but no longer linked from any category is the
// residue of an earlier partial removal; its remaining steps are resumed.
func (e *Engine) remove(ctx context.Context, reportID string) error {
	category, err := e.store.GetCategoryContainingReport(ctx, reportID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return classify("locate category", err, ErrReportNotFound)
	}

	report, rerr := e.store.GetReport(ctx, reportID)
	switch {
	case rerr == nil:
	case errors.Is(rerr, store.ErrNotFound):
		report = nil
	default:
		return classify("get report", rerr, ErrReportNotFound)
	}

	if category == nil {
		if report == nil {
			return ErrReportNotFound
		}
		slog.Warn("resuming removal of unlinked report", "report_id", reportID)
	}

	r := &removal{engine: e, reportID: reportID}

	if report != nil {
		if err := r.deleteReactions(ctx, report); err != nil {
			return err
		}
	}
	if category != nil {
		if err := r.unlink(ctx, category.ID); err != nil {
			return err
		}
	}
	if report != nil {
		if err := r.deleteReport(ctx); err != nil {
			return err
		}
		if err := r.deleteAsset(ctx, report.ImageURL); err != nil {
			return err
		}
	} else {
		slog.Warn("category referenced a missing report", "report_id", reportID, "category_id", category.ID)
	}

	slog.Info("report removed", "report_id", reportID, "reactions", r.reactions)
	return nil
}

// removal tracks whether any step has committed, which decides if a later
// failure is partial.
type removal struct {
	engine    *Engine
	reportID  string
	committed bool
	reactions int
}

func (r *removal) fail(step RemovalStep, op string, err error) error {
	wrapped := classify(op, err, ErrReportNotFound)
	if !r.committed {
		return wrapped
	}
	partial := &PartialRemovalError{ReportID: r.reportID, Step: step, Err: wrapped}
	slog.Error("partial report removal",
		"report_id", r.reportID,
		"step", step.String(),
		"action", "remove",
		"error", err,
	)
	r.engine.inconsistency(partial)
	return partial
}

func (r *removal) deleteReactions(ctx context.Context, report *models.Report) error {
	for _, ref := range report.Reactions {
		err := r.engine.store.DeleteReaction(ctx, ref.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return r.fail(StepDeleteReactions, "delete reaction", err)
		}
		r.committed = true
		r.reactions++
	}

	// Records an earlier rollback failed to delete are not in the refs.
	stray, err := r.engine.store.ListReactionsByReport(ctx, report.ID)
	if err != nil {
		return r.fail(StepDeleteReactions, "list reactions", err)
	}
	for _, reaction := range stray {
		err := r.engine.store.DeleteReaction(ctx, reaction.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return r.fail(StepDeleteReactions, "delete reaction", err)
		}
		r.committed = true
		r.reactions++
	}
	return nil
}

// unlink re-reads the category under its lock so concurrent publications into
// the same category are not overwritten.
func (r *removal) unlink(ctx context.Context, categoryID string) error {
	release, err := r.engine.lockCategory(ctx, categoryID)
	if err != nil {
		return r.fail(StepUnlinkCategory, "lock category", err)
	}
	defer release()

	category, err := r.engine.store.GetCategory(ctx, categoryID)
	if err != nil {
		return r.fail(StepUnlinkCategory, "get category", err)
	}
	if !category.RemoveReport(r.reportID) {
		return nil
	}
	if err := r.engine.store.SaveCategory(ctx, category); err != nil {
		return r.fail(StepUnlinkCategory, "save category", err)
	}
	r.committed = true
	return nil
}

func (r *removal) deleteReport(ctx context.Context) error {
	err := r.engine.store.DeleteReport(ctx, r.reportID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return r.fail(StepDeleteReport, "delete report", err)
	}
	r.committed = true
	return nil
}

func (r *removal) deleteAsset(ctx context.Context, imageURL string) error {
	if imageURL == "" {
		return nil
	}
	assetID, err := imagehost.AssetID(imageURL)
	if err != nil {
		slog.Warn("report image url has no asset id", "report_id", r.reportID, "url", imageURL)
		return nil
	}
	if err := r.engine.images.DeleteAsset(ctx, assetID); err != nil {
		return r.fail(StepDeleteAsset, "delete asset", err)
	}
	return nil
}
