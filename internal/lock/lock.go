// Package lock provides the keyed mutual exclusion that serializes every
// write touching one report (or one category list).
package lock

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker hands out exclusive sections keyed by an arbitrary string. The
// returned release func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

func ReportKey(reportID string) string {
	return "report:" + reportID
}

func CategoryKey(categoryID string) string {
	return "category:" + categoryID
}
