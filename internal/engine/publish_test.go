package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pngPayload = "data:image/png;base64,iVBORw0KGgo="

func validReport() engine.ReportInput {
	return engine.ReportInput{
		UserID:      "alice",
		Description: "broken street light",
		Latitude:    -23.55,
		Longitude:   -46.63,
		Image:       pngPayload,
	}
}

func TestPublishReportLinksIntoCategory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.category(t, "lights")

	report, err := f.eng.PublishReport(ctx, "lights", validReport())
	require.NoError(t, err)
	assert.Equal(t, "alice", report.Reporter())
	assert.Equal(t, fixedNow, report.PublishedAt)
	assert.Zero(t, report.ConfirmedCount)
	assert.Zero(t, report.DeniedCount)
	assert.Contains(t, report.ImageURL, ".png")

	category, err := f.st.GetCategory(ctx, "lights")
	require.NoError(t, err)
	assert.True(t, category.HasReport(report.ID))
	assert.True(t, f.images.Exists(assetOf(t, report)))

	// The reporter cannot vote on it.
	res, err := f.eng.SubmitReaction(ctx, report.ID, engine.ReactionInput{UserID: "alice", Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, engine.SelfVote, res.Rejection)
}

func TestPublishReportUnknownCategory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.eng.PublishReport(context.Background(), "missing", validReport())
	require.ErrorIs(t, err, engine.ErrCategoryNotFound)
}

func TestPublishReportValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.category(t, "lights")

	cases := map[string]func(*engine.ReportInput){
		"no user":        func(in *engine.ReportInput) { in.UserID = "" },
		"no description": func(in *engine.ReportInput) { in.Description = " " },
		"latitude":       func(in *engine.ReportInput) { in.Latitude = 91 },
		"longitude":      func(in *engine.ReportInput) { in.Longitude = -181 },
		"not a data uri": func(in *engine.ReportInput) { in.Image = "https://example.com/a.png" },
		"not an image":   func(in *engine.ReportInput) { in.Image = "data:text/plain;base64,aGk=" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validReport()
			mutate(&in)
			_, err := f.eng.PublishReport(context.Background(), "lights", in)
			require.ErrorIs(t, err, engine.ErrInvalidReport)
		})
	}
	assert.Zero(t, f.st.Calls(memstore.OpCreateReport))
}

func TestPublishReportLinkFailureUndoesReport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.category(t, "lights")

	f.st.FailNext(memstore.OpSaveCategory, errors.New("write concern timeout"))
	_, err := f.eng.PublishReport(ctx, "lights", validReport())
	require.ErrorIs(t, err, engine.ErrStoreUnavailable)

	reports, err := f.st.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)

	uploads := f.images.Uploads()
	require.Len(t, uploads, 1)
	assert.False(t, f.images.Exists(uploads[0]))
}

func TestPublishReportCreateFailureDiscardsUpload(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.category(t, "lights")

	f.st.FailNext(memstore.OpCreateReport, errors.New("not primary"))
	_, err := f.eng.PublishReport(ctx, "lights", validReport())
	require.ErrorIs(t, err, engine.ErrStoreUnavailable)

	uploads := f.images.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, 1, f.images.Deletes(uploads[0]))

	category, err := f.st.GetCategory(ctx, "lights")
	require.NoError(t, err)
	assert.Empty(t, category.ReportIDs)
}
