package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/google/uuid"
)

// ReportInput is a new report as submitted by its reporter.
type ReportInput struct {
	UserID      string
	Description string
	Latitude    float64
	Longitude   float64
	// Image is a data URI; it is uploaded before the report is stored.
	Image string
}

func (in *ReportInput) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidReport)
	case strings.TrimSpace(in.Description) == "":
		return fmt.Errorf("%w: description is required", ErrInvalidReport)
	case in.Latitude < -90 || in.Latitude > 90:
		return fmt.Errorf("%w: latitude out of range", ErrInvalidReport)
	case in.Longitude < -180 || in.Longitude > 180:
		return fmt.Errorf("%w: longitude out of range", ErrInvalidReport)
	}
	if _, err := imagehost.Extension(in.Image); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	return nil
}

// PublishReport uploads the photo, stores the report and links it into its
// category. A failed link undoes the report and the upload.
func (e *Engine) PublishReport(ctx context.Context, categoryID string, in ReportInput) (*models.Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := e.store.GetCategory(ctx, categoryID); err != nil {
		return nil, classify("get category", err, ErrCategoryNotFound)
	}

	imageURL, err := e.images.Upload(ctx, in.Image)
	if err != nil {
		if errors.Is(err, imagehost.ErrInvalidPayload) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
		}
		return nil, fmt.Errorf("upload image: %w: %w", ErrStoreUnavailable, err)
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		UserIDs:     []string{strings.TrimSpace(in.UserID)},
		PublishedAt: e.now().UTC(),
		Description: strings.TrimSpace(in.Description),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		ImageURL:    imageURL,
		Reactions:   []models.ReactionRef{},
	}

	release, err := e.lockCategory(ctx, categoryID)
	if err != nil {
		e.discardAsset(ctx, imageURL)
		return nil, err
	}
	defer release()

	category, err := e.store.GetCategory(ctx, categoryID)
	if err != nil {
		e.discardAsset(ctx, imageURL)
		return nil, classify("get category", err, ErrCategoryNotFound)
	}
	if err := e.store.CreateReport(ctx, report); err != nil {
		e.discardAsset(ctx, imageURL)
		return nil, classify("create report", err, ErrReportNotFound)
	}

	category.AddReport(report.ID)
	if err := e.store.SaveCategory(ctx, category); err != nil {
		if derr := e.store.DeleteReport(ctx, report.ID); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			slog.Error("unlinked report left behind",
				"report_id", report.ID, "action", "publish", "error", derr)
		} else {
			e.discardAsset(ctx, imageURL)
		}
		return nil, classify("save category", err, ErrCategoryNotFound)
	}

	slog.Info("report published", "report_id", report.ID, "category_id", categoryID)
	return report, nil
}

func (e *Engine) discardAsset(ctx context.Context, imageURL string) {
	assetID, err := imagehost.AssetID(imageURL)
	if err != nil {
		return
	}
	if err := e.images.DeleteAsset(ctx, assetID); err != nil {
		slog.Error("failed to discard uploaded image", "asset_id", assetID, "error", err)
	}
}
