package engine

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
)

var (
	ErrReportNotFound   = errors.New("report not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("report changed concurrently")
	ErrInvalidReaction  = errors.New("invalid reaction")
	ErrInvalidReport    = errors.New("invalid report")
)

// classify maps gateway errors onto the engine's error kinds. notFound is the
// kind reported for store.ErrNotFound.
func classify(op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}

// RemovalStep names the stage of a cascading removal.
type RemovalStep int

const (
	StepLocateCategory RemovalStep = iota + 1
	StepDeleteReactions
	StepUnlinkCategory
	StepDeleteReport
	StepDeleteAsset
)

func (s RemovalStep) String() string {
	switch s {
	case StepLocateCategory:
		return "locate_category"
	case StepDeleteReactions:
		return "delete_reactions"
	case StepUnlinkCategory:
		return "unlink_category"
	case StepDeleteReport:
		return "delete_report"
	case StepDeleteAsset:
		return "delete_asset"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// PartialRemovalError means a removal step failed after earlier steps had
// already committed. The store is left in a known intermediate state.
type PartialRemovalError struct {
	ReportID string
	Step     RemovalStep
	Err      error
}

func (e *PartialRemovalError) Error() string {
	return fmt.Sprintf("partial removal of report %s at %s: %v", e.ReportID, e.Step, e.Err)
}

func (e *PartialRemovalError) Unwrap() error { return e.Err }

// OrphanReactionError means a reaction record was written but could not be
// linked to its report nor deleted again.
type OrphanReactionError struct {
	ReportID   string
	ReactionID string
	Err        error
}

func (e *OrphanReactionError) Error() string {
	return fmt.Sprintf("orphan reaction %s on report %s: %v", e.ReactionID, e.ReportID, e.Err)
}

func (e *OrphanReactionError) Unwrap() error { return e.Err }
