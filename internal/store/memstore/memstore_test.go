package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/memstore"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Gateway { return memstore.New() })
}

func TestFailNextInjectsOnce(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateCategory(ctx, &models.Category{ID: "c1", Name: "roads"}))

	s.FailNext(memstore.OpGetCategory, errors.New("boom"))
	_, err := s.GetCategory(ctx, "c1")
	require.ErrorIs(t, err, store.ErrUnavailable)
	assert.Contains(t, err.Error(), "boom")

	_, err = s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Calls(memstore.OpGetCategory))
}

func TestFailNextKeepsSentinels(t *testing.T) {
	s := memstore.New()
	s.FailNext(memstore.OpSaveReport, store.ErrConflict)
	err := s.SaveReport(context.Background(), &models.Report{ID: "r1"})
	require.ErrorIs(t, err, store.ErrConflict)
	assert.NotErrorIs(t, err, store.ErrUnavailable)
}

func TestFailNextForMatchesID(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		require.NoError(t, s.CreateReport(ctx, &models.Report{ID: id, UserIDs: []string{"u"}}))
	}

	s.FailNextFor(memstore.OpDeleteReport, func(id string) bool { return id == "b" }, errors.New("boom"))
	require.NoError(t, s.DeleteReport(ctx, "a"))
	require.ErrorIs(t, s.DeleteReport(ctx, "b"), store.ErrUnavailable)
	require.NoError(t, s.DeleteReport(ctx, "b"))
}

func TestReadsAreCopies(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateCategory(ctx, &models.Category{ID: "c1", Name: "roads"}))

	c, err := s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	c.AddReport("r1")

	again, err := s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, again.HasReport("r1"))
}
