package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/lock"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/memstore"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "test-admin-token"

type testServer struct {
	app    *fiber.App
	st     *memstore.Store
	images *imagehost.Memory
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	st := memstore.New()
	images := imagehost.NewMemory("https://img.test/assets")
	eng := engine.New(st, images, lock.NewLocal(), engine.Options{})
	cfg := &config.Config{AdminToken: adminToken}

	categoryService := services.NewCategoryService(st)
	reportService := services.NewReportService(st, eng, services.NewModerationService())
	userService := services.NewUserService(st, "hash-key")

	app := fiber.New()
	routes.Setup(app, cfg,
		handlers.NewHealthHandler(st, config.StoreMemory),
		handlers.NewCategoryHandler(categoryService, reportService),
		handlers.NewReportHandler(reportService),
		handlers.NewUserHandler(userService),
		handlers.NewAdminHandler(eng),
	)
	return &testServer{app: app, st: st, images: images}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func (s *testServer) createCategory(t *testing.T, name string) models.Category {
	t.Helper()
	resp, data := s.do(t, "POST", "/api/categories", map[string]string{"name": name})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	return decode[models.Category](t, data)
}

func (s *testServer) publish(t *testing.T, categoryID, userID string) models.Report {
	t.Helper()
	resp, data := s.do(t, "POST", "/api/categories/"+categoryID+"/reports", map[string]any{
		"user_id":     userID,
		"description": "fallen tree blocking the lane",
		"latitude":    -23.56,
		"longitude":   -46.65,
		"image":       "data:image/jpeg;base64,/9j/4AAQSkZJRg==",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	return decode[models.Report](t, data)
}

func TestCategoryEndpoints(t *testing.T) {
	t.Parallel()
	s := setupServer(t)
	roads := s.createCategory(t, "Roads")
	lights := s.createCategory(t, "Lights")

	resp, data := s.do(t, "GET", "/api/categories", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=5", resp.Header.Get("Cache-Control"))
	list := decode[[]models.Category](t, data)
	require.Len(t, list, 2)
	assert.Equal(t, "Lights", list[0].Name)

	resp, data = s.do(t, "GET", "/api/categories/"+roads.ID+","+lights.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Category](t, data), 2)

	resp, _ = s.do(t, "GET", "/api/categories/"+roads.ID+",missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/api/categories", map[string]string{"description": "no name"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	s := setupServer(t)
	category := s.createCategory(t, "Trees")
	report := s.publish(t, category.ID, "alice")

	resp, data := s.do(t, "GET", "/api/reports/"+report.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ID, decode[models.Report](t, data).ID)

	resp, data = s.do(t, "GET", "/api/reports/users/alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Report](t, data), 1)

	resp, data = s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "bob", "confirm": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decode[engine.ReactionResult](t, data)
	assert.True(t, result.Counted)
	assert.Equal(t, 1, result.Confirmed)
	assert.Equal(t, engine.MessageConfirmation, result.Message)

	resp, data = s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "alice", "confirm": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result = decode[engine.ReactionResult](t, data)
	assert.False(t, result.Counted)
	assert.Equal(t, engine.MessageNotCounted, result.Message)
	assert.Equal(t, 1, result.Confirmed)

	resp, _ = s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "carol"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, "DELETE", "/api/reports/"+report.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, "DELETE", "/api/reports/"+report.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, "GET", "/api/reports/"+report.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "dave", "confirm": false})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()
	s := setupServer(t)
	category := s.createCategory(t, "Trees")

	resp, _ := s.do(t, "POST", "/api/categories/missing/reports", map[string]any{
		"user_id": "alice", "description": "x", "image": "data:image/png;base64,AAAA",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/api/categories/"+category.ID+"/reports", map[string]any{
		"user_id": "alice", "description": "x", "image": "not a data uri",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, data := s.do(t, "POST", "/api/categories/"+category.ID+"/reports", map[string]any{
		"user_id": "alice", "description": "visit https://spam.example", "image": "data:image/png;base64,AAAA",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, services.ReasonURL, decode[map[string]any](t, data)["reason"])
}

func TestStoreOutageIsServiceUnavailable(t *testing.T) {
	t.Parallel()
	s := setupServer(t)
	category := s.createCategory(t, "Trees")
	report := s.publish(t, category.ID, "alice")

	s.st.FailNext(memstore.OpGetReport, errors.New("connection refused"))
	resp, data := s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "bob", "confirm": true})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.NotContains(t, string(data), "connection refused")

	// The reaction write is rolled back when the report write fails.
	s.st.FailNext(memstore.OpSaveReport, errors.New("primary stepped down"))
	resp, _ = s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "bob", "confirm": true})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	reactions, err := s.st.ListReactionsByReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Empty(t, reactions)
}

func TestPartialRemovalIsServerError(t *testing.T) {
	t.Parallel()
	s := setupServer(t)
	category := s.createCategory(t, "Trees")
	report := s.publish(t, category.ID, "alice")

	s.st.FailNext(memstore.OpDeleteReport, errors.New("disk full"))
	resp, data := s.do(t, "DELETE", "/api/reports/"+report.ID, nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(data), "disk full")

	resp, _ = s.do(t, "DELETE", "/api/reports/"+report.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUserEndpoints(t *testing.T) {
	t.Parallel()
	s := setupServer(t)

	resp, data := s.do(t, "GET", "/api/users/5511987654321", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](t, data)
	assert.Equal(t, true, created["created"])
	assert.NotContains(t, string(data), "contact_key")

	resp, _ = s.do(t, "GET", "/api/users/5511987654321", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, "GET", "/api/users/12", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, data = s.do(t, "GET", "/api/users", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, data), 1)
}

func TestAdminSweep(t *testing.T) {
	t.Parallel()
	s := setupServer(t)

	resp, _ := s.do(t, "POST", "/api/admin/sweep", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, data := s.do(t, "POST", "/api/admin/sweep", nil, "X-Admin-Token", adminToken)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decode[engine.SweepResult](t, data)
	assert.Zero(t, result.Retired)
	assert.False(t, result.Skipped)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := setupServer(t)

	resp, data := s.do(t, "GET", "/api/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, data)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, config.StoreMemory, health["driver"])
}

func TestLostVersionRaceIsConflict(t *testing.T) {
	t.Parallel()
	s := setupServer(t)
	category := s.createCategory(t, "Trees")
	report := s.publish(t, category.ID, "alice")

	s.st.FailNext(memstore.OpSaveReport, store.ErrConflict)
	resp, _ := s.do(t, "POST", "/api/reports/"+report.ID+"/reactions", map[string]any{"user_id": "bob", "confirm": true})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
