package engine

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
)

const (
	// A report with fewer confirmations than this can be retired.
	ConfirmationCeiling = 30
	// Retirement fires when denunciations reach exactly this count.
	DenunciationTrigger = 5
	// Unconfirmed reports older than this many days are abandoned.
	UnconfirmedMaxAgeDays = 1
	// Weakly confirmed reports older than this many days are abandoned.
	StaleMaxAgeDays = 6
)

// RetireReason records which rule retired a report.
type RetireReason string

const (
	ReasonDenounced   RetireReason = "denounced"
	ReasonUnconfirmed RetireReason = "unconfirmed"
	ReasonStale       RetireReason = "stale"
)

// Denounced is the rule checked after every counted reaction.
func Denounced(r *models.Report) bool {
	return r.ConfirmedCount < ConfirmationCeiling && r.DeniedCount == DenunciationTrigger
}

// EvaluateSweep applies the sweep rules to r as of now. Reports whose
// denunciation retirement previously failed are picked up here as well.
func EvaluateSweep(r *models.Report, now time.Time, loc *time.Location) (RetireReason, bool) {
	age := AgeInDays(r.PublishedAt, now, loc)
	switch {
	case r.ConfirmedCount == 0 && age > UnconfirmedMaxAgeDays:
		return ReasonUnconfirmed, true
	case r.ConfirmedCount < ConfirmationCeiling && age > StaleMaxAgeDays:
		return ReasonStale, true
	case Denounced(r):
		return ReasonDenounced, true
	}
	return "", false
}

// AgeInDays is the number of calendar days between the publication date and
// now, both read in loc. Time of day is ignored.
func AgeInDays(published, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	py, pm, pd := published.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	from := time.Date(py, pm, pd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
