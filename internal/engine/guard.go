package engine

import "github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"

// RejectReason explains why the guard refused a vote.
type RejectReason string

const (
	SelfVote      RejectReason = "self_vote"
	DuplicateVote RejectReason = "duplicate_vote"

	// PendingRetirement marks a report whose retirement has not completed.
	PendingRetirement RejectReason = "pending_retirement"
)

// Verdict is the guard's decision for one (report, voter) pair.
type Verdict struct {
	Admitted bool
	Reason   RejectReason
}

// Admit enforces at most one vote per user per report, and none from the
// reporter. It must run under the report lock to hold against concurrent
// submissions.
func Admit(report *models.Report, voterID string) Verdict {
	if voterID == report.Reporter() {
		return Verdict{Reason: SelfVote}
	}
	if report.HasVoted(voterID) {
		return Verdict{Reason: DuplicateVote}
	}
	return Verdict{Admitted: true}
}
