// Package store defines the gateway over the category, report, reaction and
// user collections. Implementations carry no business logic; keeping the
// cross-collection references consistent is the engine's job.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record changed concurrently")
	ErrUnavailable = errors.New("store unavailable")
)

// Unavailable wraps a driver failure so callers can match ErrUnavailable
// while keeping the cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	// ListCategories returns every category ordered by name.
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryContainingReport(ctx context.Context, reportID string) (*models.Category, error)
	SaveCategory(ctx context.Context, category *models.Category) error
}

type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	// SaveReport writes report only if the stored version still equals
	// report.Version, then bumps report.Version. A lost race is ErrConflict.
	SaveReport(ctx context.Context, report *models.Report) error
	DeleteReport(ctx context.Context, id string) error
	ListReports(ctx context.Context) ([]models.Report, error)
	ListReportsByUser(ctx context.Context, userID string) ([]models.Report, error)
}

type ReactionStore interface {
	// SaveReaction upserts by reaction id, so replaying it is harmless.
	SaveReaction(ctx context.Context, reaction *models.Reaction) error
	DeleteReaction(ctx context.Context, id string) error
	ListReactionsByReport(ctx context.Context, reportID string) ([]models.Reaction, error)
}

type UserStore interface {
	// CreateUser fails with ErrConflict when the contact key is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByContactKey(ctx context.Context, key string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Gateway is the full set of collections plus lifecycle hooks.
type Gateway interface {
	CategoryStore
	ReportStore
	ReactionStore
	UserStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
