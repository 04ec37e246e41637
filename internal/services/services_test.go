package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/lock"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreatesOnceAndHidesPhone(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st, "secret")
	ctx := context.Background()

	first, created, err := svc.Resolve(ctx, "+55 (11) 98765-4321")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotContains(t, first.ContactKey, "98765")
	assert.Len(t, first.ContactKey, 64)

	again, created, err := svc.Resolve(ctx, "5511987654321")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestResolveRejectsMalformedPhones(t *testing.T) {
	t.Parallel()
	svc := NewUserService(memstore.New(), "")
	for _, phone := range []string{"", "1234", "call me", "+55 11 9876 54321 000 0"} {
		_, _, err := svc.Resolve(context.Background(), phone)
		assert.ErrorIs(t, err, ErrInvalidPhone, phone)
	}
}

func TestContactKeyDependsOnKey(t *testing.T) {
	t.Parallel()
	a, err := NewUserService(nil, "one").ContactKey("11987654321")
	require.NoError(t, err)
	b, err := NewUserService(nil, "two").ContactKey("11987654321")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolveLosesRaceToConcurrentRegistration(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st, "k")
	ctx := context.Background()

	// Someone else registers the number between our lookup and insert.
	winner, _, err := NewUserService(st, "k").Resolve(ctx, "11987654321")
	require.NoError(t, err)
	st.FailNext(memstore.OpGetUserByContactKey, store.ErrNotFound)

	user, created, err := svc.Resolve(ctx, "11987654321")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, user.ID)
}

func TestCategoryService(t *testing.T) {
	t.Parallel()
	svc := NewCategoryService(memstore.New())
	ctx := context.Background()

	_, err := svc.Create(ctx, &dto.CreateCategoryRequest{Name: "  "})
	require.ErrorIs(t, err, ErrInvalidCategory)

	roads, err := svc.Create(ctx, &dto.CreateCategoryRequest{Name: "Roads", Description: "potholes"})
	require.NoError(t, err)
	lights, err := svc.Create(ctx, &dto.CreateCategoryRequest{Name: "Lights"})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Lights", list[0].Name)

	many, err := svc.GetMany(ctx, []string{roads.ID, " " + lights.ID})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, roads.ID, many[0].ID)

	_, err = svc.GetMany(ctx, []string{roads.ID, "missing"})
	require.ErrorIs(t, err, engine.ErrCategoryNotFound)
	_, err = svc.GetMany(ctx, []string{""})
	require.ErrorIs(t, err, ErrInvalidCategory)
}

func newReportService(t *testing.T) (*ReportService, *CategoryService) {
	t.Helper()
	st := memstore.New()
	eng := engine.New(st, imagehost.NewMemory("https://img.test"), lock.NewLocal(), engine.Options{})
	return NewReportService(st, eng, NewModerationService()), NewCategoryService(st)
}

func TestReportServicePublishAndReact(t *testing.T) {
	t.Parallel()
	reports, categories := newReportService(t)
	ctx := context.Background()
	category, err := categories.Create(ctx, &dto.CreateCategoryRequest{Name: "Roads"})
	require.NoError(t, err)

	report, err := reports.Publish(ctx, category.ID, &dto.PublishReportRequest{
		UserID: "alice", Description: "open manhole", Latitude: 1, Longitude: 2,
		Image: "data:image/jpeg;base64,/9j/4AAQ",
	})
	require.NoError(t, err)

	_, err = reports.React(ctx, report.ID, &dto.ReactionRequest{UserID: "bob"})
	require.ErrorIs(t, err, engine.ErrInvalidReaction)

	no := false
	_, err = reports.React(ctx, report.ID, &dto.ReactionRequest{UserID: "bob", Confirm: &no, Justification: "see www.fake.example.com"})
	var rejected *ContentRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, ReasonURL, rejected.Reason)

	yes := true
	res, err := reports.React(ctx, report.ID, &dto.ReactionRequest{UserID: "bob", Confirm: &yes})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Confirmed)

	mine, err := reports.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, reports.Remove(ctx, report.ID))
	_, err = reports.Get(ctx, report.ID)
	require.ErrorIs(t, err, engine.ErrReportNotFound)
}

func TestReportServicePublishModeratesDescription(t *testing.T) {
	t.Parallel()
	reports, categories := newReportService(t)
	ctx := context.Background()
	category, err := categories.Create(ctx, &dto.CreateCategoryRequest{Name: "Roads"})
	require.NoError(t, err)

	_, err = reports.Publish(ctx, category.ID, &dto.PublishReportRequest{
		UserID: "alice", Description: "call 11 98765-4321", Image: "data:image/png;base64,AAAA",
	})
	var rejected *ContentRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, ReasonContactInfo, rejected.Reason)
	assert.Equal(t, "description", rejected.Field)
}

func TestFilterContent(t *testing.T) {
	t.Parallel()
	ms := NewModerationService()
	tests := []struct {
		text   string
		ok     bool
		reason string
	}{
		{"", true, ""},
		{"Buraco enorme na calçada da Rua Augusta", true, ""},
		{"que merda de rua", false, ReasonInappropriate},
		{"details at https://example.com/x", false, ReasonURL},
		{"mail me at someone@example.com", false, ReasonContactInfo},
		{"heeeeelp", false, ReasonSpam},
	}
	for _, tt := range tests {
		ok, reason := ms.FilterContent(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.reason, reason, tt.text)
	}
	assert.NotEmpty(t, ms.RejectionMessage(ReasonSpam))
	assert.NotEmpty(t, ms.RejectionMessage("unknown"))
}
