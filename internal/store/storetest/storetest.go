// Package storetest holds behavior every store.Gateway implementation must
// share. Implementations run it from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty gateway for one test.
type Factory func(t *testing.T) store.Gateway

func Run(t *testing.T, newGateway Factory) {
	t.Run("categories", func(t *testing.T) { testCategories(t, newGateway(t)) })
	t.Run("report versioning", func(t *testing.T) { testReportVersioning(t, newGateway(t)) })
	t.Run("reports by user", func(t *testing.T) { testReportsByUser(t, newGateway(t)) })
	t.Run("reactions", func(t *testing.T) { testReactions(t, newGateway(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newGateway(t)) })
}

func newReport(reporter string, published time.Time) *models.Report {
	return &models.Report{
		ID:          uuid.NewString(),
		UserIDs:     []string{reporter},
		PublishedAt: published.UTC(),
		Description: "pothole",
		Latitude:    -23.5,
		Longitude:   -46.6,
		ImageURL:    "https://img.test/assets/abc.jpg",
	}
}

func testCategories(t *testing.T, gw store.Gateway) {
	ctx := context.Background()

	lights := &models.Category{ID: uuid.NewString(), Name: "lights"}
	roads := &models.Category{ID: uuid.NewString(), Name: "roads"}
	require.NoError(t, gw.CreateCategory(ctx, roads))
	require.NoError(t, gw.CreateCategory(ctx, lights))

	list, err := gw.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "lights", list[0].Name)
	assert.Equal(t, "roads", list[1].Name)

	_, err = gw.GetCategoryContainingReport(ctx, "r1")
	require.ErrorIs(t, err, store.ErrNotFound)

	roads.AddReport("r1")
	roads.AddReport("r2")
	require.NoError(t, gw.SaveCategory(ctx, roads))

	found, err := gw.GetCategoryContainingReport(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, roads.ID, found.ID)
	assert.Equal(t, []string{"r1", "r2"}, []string(found.ReportIDs))

	_, err = gw.GetCategory(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	err = gw.SaveCategory(ctx, &models.Category{ID: "missing", Name: "x"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testReportVersioning(t *testing.T, gw store.Gateway) {
	ctx := context.Background()
	report := newReport("alice", time.Now())
	require.NoError(t, gw.CreateReport(ctx, report))

	first, err := gw.GetReport(ctx, report.ID)
	require.NoError(t, err)
	stale, err := gw.GetReport(ctx, report.ID)
	require.NoError(t, err)

	first.ConfirmedCount = 1
	first.Reactions = append(first.Reactions, models.ReactionRef{ID: "x1", UserID: "bob", Confirm: true})
	require.NoError(t, gw.SaveReport(ctx, first))
	assert.Equal(t, stale.Version+1, first.Version)

	stale.DeniedCount = 1
	require.ErrorIs(t, gw.SaveReport(ctx, stale), store.ErrConflict)

	got, err := gw.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConfirmedCount)
	assert.Equal(t, 0, got.DeniedCount)
	assert.True(t, got.Consistent())
	assert.Equal(t, first.Version, got.Version)

	require.NoError(t, gw.DeleteReport(ctx, report.ID))
	require.ErrorIs(t, gw.DeleteReport(ctx, report.ID), store.ErrNotFound)
	require.ErrorIs(t, gw.SaveReport(ctx, got), store.ErrNotFound)
	_, err = gw.GetReport(ctx, report.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testReportsByUser(t *testing.T, gw store.Gateway) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	older := newReport("alice", base)
	newer := newReport("alice", base.Add(time.Minute))
	other := newReport("bob", base.Add(2*time.Minute))
	for _, r := range []*models.Report{newer, other, older} {
		require.NoError(t, gw.CreateReport(ctx, r))
	}

	all, err := gw.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, older.ID, all[0].ID)
	assert.Equal(t, other.ID, all[2].ID)

	mine, err := gw.ListReportsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, older.ID, mine[0].ID)
	assert.Equal(t, newer.ID, mine[1].ID)

	none, err := gw.ListReportsByUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testReactions(t *testing.T, gw store.Gateway) {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	second := &models.Reaction{ID: uuid.NewString(), ReportID: "r1", UserID: "bob", ReactedAt: base.Add(time.Second), Confirm: true}
	first := &models.Reaction{ID: uuid.NewString(), ReportID: "r1", UserID: "carol", ReactedAt: base, Justification: "nothing there"}
	elsewhere := &models.Reaction{ID: uuid.NewString(), ReportID: "r2", UserID: "bob", ReactedAt: base, Confirm: true}
	for _, r := range []*models.Reaction{second, first, elsewhere} {
		require.NoError(t, gw.SaveReaction(ctx, r))
	}

	list, err := gw.ListReactionsByReport(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	// Saving again replaces the record.
	first.Justification = "changed"
	require.NoError(t, gw.SaveReaction(ctx, first))
	list, err = gw.ListReactionsByReport(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "changed", list[0].Justification)
	assert.Equal(t, first.Ref(), list[0].Ref())

	require.NoError(t, gw.DeleteReaction(ctx, first.ID))
	require.ErrorIs(t, gw.DeleteReaction(ctx, first.ID), store.ErrNotFound)
	list, err = gw.ListReactionsByReport(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func testUsers(t *testing.T, gw store.Gateway) {
	ctx := context.Background()
	now := time.Now().UTC()

	alice := &models.User{ID: uuid.NewString(), ContactKey: "key-a", RegisteredAt: now}
	require.NoError(t, gw.CreateUser(ctx, alice))

	dup := &models.User{ID: uuid.NewString(), ContactKey: "key-a", RegisteredAt: now}
	require.ErrorIs(t, gw.CreateUser(ctx, dup), store.ErrConflict)

	got, err := gw.GetUserByContactKey(ctx, "key-a")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = gw.GetUserByContactKey(ctx, "key-b")
	require.ErrorIs(t, err, store.ErrNotFound)

	bob := &models.User{ID: uuid.NewString(), ContactKey: "key-b", RegisteredAt: now.Add(time.Second)}
	require.NoError(t, gw.CreateUser(ctx, bob))
	users, err := gw.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice.ID, users[0].ID)
	assert.Equal(t, bob.ID, users[1].ID)
}
