// Package gormstore implements store.Gateway on a relational database through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// postgres can answer list membership with jsonb containment; other dialects
// fall back to scanning.
func (s *Store) hasJSONContainment() bool {
	return s.db.Dialector.Name() == "postgres"
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConflict
	default:
		return store.Unavailable(op, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return store.Unavailable("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return store.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ReportIDs == nil {
		category.ReportIDs = datatypes.JSONSlice[string]{}
	}
	return translate("create category", s.db.WithContext(ctx).Create(category).Error)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translate("get category", err)
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, translate("list categories", err)
	}
	return categories, nil
}

func (s *Store) GetCategoryContainingReport(ctx context.Context, reportID string) (*models.Category, error) {
	if s.hasJSONContainment() {
		var category models.Category
		err := s.db.WithContext(ctx).
			Where("report_ids @> ?", datatypes.JSONSlice[string]{reportID}).
			First(&category).Error
		if err != nil {
			return nil, translate("find category by report", err)
		}
		return &category, nil
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].HasReport(reportID) {
			return &categories[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveCategory(ctx context.Context, category *models.Category) error {
	result := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]interface{}{
			"name":        category.Name,
			"description": category.Description,
			"report_ids":  category.ReportIDs,
		})
	if result.Error != nil {
		return translate("save category", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateReport(ctx context.Context, report *models.Report) error {
	if report.Reactions == nil {
		report.Reactions = datatypes.JSONSlice[models.ReactionRef]{}
	}
	return translate("create report", s.db.WithContext(ctx).Create(report).Error)
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, translate("get report", err)
	}
	return &report, nil
}

// SaveReport performs a compare-and-swap on the version column.
func (s *Store) SaveReport(ctx context.Context, report *models.Report) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND version = ?", report.ID, report.Version).
		Updates(map[string]interface{}{
			"user_ids":        report.UserIDs,
			"description":     report.Description,
			"latitude":        report.Latitude,
			"longitude":       report.Longitude,
			"image_url":       report.ImageURL,
			"confirmed_count": report.ConfirmedCount,
			"denied_count":    report.DeniedCount,
			"reactions":       report.Reactions,
			"version":         report.Version + 1,
			"updated_at":      now,
		})
	if result.Error != nil {
		return translate("save report", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", report.ID).Count(&count).Error; err != nil {
			return translate("save report", err)
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	report.Version++
	report.UpdatedAt = now
	return nil
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	if result.Error != nil {
		return translate("delete report", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListReports(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.WithContext(ctx).Order("published_at ASC").Find(&reports).Error; err != nil {
		return nil, translate("list reports", err)
	}
	return reports, nil
}

func (s *Store) ListReportsByUser(ctx context.Context, userID string) ([]models.Report, error) {
	if s.hasJSONContainment() {
		var reports []models.Report
		err := s.db.WithContext(ctx).
			Where("user_ids @> ?", datatypes.JSONSlice[string]{userID}).
			Order("published_at ASC").
			Find(&reports).Error
		if err != nil {
			return nil, translate("list reports by user", err)
		}
		return reports, nil
	}

	all, err := s.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]models.Report, 0, len(all))
	for _, r := range all {
		if r.HasUser(userID) {
			reports = append(reports, r)
		}
	}
	return reports, nil
}

func (s *Store) SaveReaction(ctx context.Context, reaction *models.Reaction) error {
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now().UTC()
	}
	// Save issues an upsert on the primary key.
	return translate("save reaction", s.db.WithContext(ctx).Save(reaction).Error)
}

func (s *Store) DeleteReaction(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reaction{})
	if result.Error != nil {
		return translate("delete reaction", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListReactionsByReport(ctx context.Context, reportID string) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("reacted_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, translate("list reactions", err)
	}
	return reactions, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		// Drivers without error translation still surface the unique index hit.
		var count int64
		if cerr := s.db.WithContext(ctx).Model(&models.User{}).
			Where("contact_key = ?", user.ContactKey).Count(&count).Error; cerr == nil && count > 0 {
			return store.ErrConflict
		}
	}
	return translate("create user", err)
}

func (s *Store) GetUserByContactKey(ctx context.Context, key string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "contact_key = ?", key).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("registered_at ASC").Find(&users).Error; err != nil {
		return nil, translate("list users", err)
	}
	return users, nil
}

// Migrate creates or updates the tables backing the gateway.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Report{},
		&models.Reaction{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	return nil
}

var _ store.Gateway = (*Store)(nil)
