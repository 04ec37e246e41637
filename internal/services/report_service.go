package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
)

// ReportService fronts the engine for the HTTP layer: reads go straight to
// the store, writes through the engine after moderation.
type ReportService struct {
	store      store.ReportStore
	engine     *engine.Engine
	moderation *ModerationService
}

func NewReportService(st store.ReportStore, eng *engine.Engine, moderation *ModerationService) *ReportService {
	return &ReportService{store: st, engine: eng, moderation: moderation}
}

func (s *ReportService) Publish(ctx context.Context, categoryID string, req *dto.PublishReportRequest) (*models.Report, error) {
	if err := s.moderation.Check("description", req.Description); err != nil {
		return nil, err
	}
	return s.engine.PublishReport(ctx, categoryID, engine.ReportInput{
		UserID:      req.UserID,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Image:       req.Image,
	})
}

func (s *ReportService) React(ctx context.Context, reportID string, req *dto.ReactionRequest) (*engine.ReactionResult, error) {
	if req.Confirm == nil {
		return nil, fmt.Errorf("%w: confirm is required", engine.ErrInvalidReaction)
	}
	if !*req.Confirm {
		if err := s.moderation.Check("justification", req.Justification); err != nil {
			return nil, err
		}
	}
	return s.engine.SubmitReaction(ctx, reportID, engine.ReactionInput{
		UserID:        req.UserID,
		Confirm:       *req.Confirm,
		Justification: req.Justification,
	})
}

func (s *ReportService) Remove(ctx context.Context, reportID string) error {
	return s.engine.RemoveReport(ctx, reportID)
}

func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.store.GetReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, engine.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (s *ReportService) List(ctx context.Context) ([]models.Report, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *ReportService) ListByUser(ctx context.Context, userID string) ([]models.Report, error) {
	reports, err := s.store.ListReportsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports by user: %w", err)
	}
	return reports, nil
}
