// Package memstore is an in-process store.Gateway used for local runs and tests.
// It supports one-shot fault injection per operation.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
)

// Operation names accepted by FailNext and Calls.
const (
	OpCreateCategory              = "CreateCategory"
	OpGetCategory                 = "GetCategory"
	OpListCategories              = "ListCategories"
	OpGetCategoryContainingReport = "GetCategoryContainingReport"
	OpSaveCategory                = "SaveCategory"
	OpCreateReport                = "CreateReport"
	OpGetReport                   = "GetReport"
	OpSaveReport                  = "SaveReport"
	OpDeleteReport                = "DeleteReport"
	OpListReports                 = "ListReports"
	OpListReportsByUser           = "ListReportsByUser"
	OpSaveReaction                = "SaveReaction"
	OpDeleteReaction              = "DeleteReaction"
	OpListReactionsByReport       = "ListReactionsByReport"
	OpCreateUser                  = "CreateUser"
	OpGetUserByContactKey         = "GetUserByContactKey"
	OpListUsers                   = "ListUsers"
)

type Store struct {
	mu         sync.RWMutex
	categories map[string]*models.Category
	reports    map[string]*models.Report
	reactions  map[string]*models.Reaction
	users      map[string]*models.User

	faultMu sync.Mutex
	faults  map[string][]faultEntry
	calls   map[string]int
}

type faultEntry struct {
	err   error
	match func(id string) bool
}

func New() *Store {
	return &Store{
		categories: make(map[string]*models.Category),
		reports:    make(map[string]*models.Report),
		reactions:  make(map[string]*models.Reaction),
		users:      make(map[string]*models.User),
		faults:     make(map[string][]faultEntry),
		calls:      make(map[string]int),
	}
}

// FailNext makes the next call of op return err wrapped as store.ErrUnavailable
// (unless err already is a store sentinel).
func (s *Store) FailNext(op string, err error) {
	s.FailNextFor(op, nil, err)
}

// FailNextFor is FailNext limited to calls whose id argument satisfies match.
func (s *Store) FailNextFor(op string, match func(id string) bool, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = append(s.faults[op], faultEntry{err: err, match: match})
}

// Calls returns how many times op has been invoked.
func (s *Store) Calls(op string) int {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op, id string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.calls[op]++
	entries := s.faults[op]
	for i, f := range entries {
		if f.match != nil && !f.match(id) {
			continue
		}
		s.faults[op] = slices.Delete(entries, i, i+1)
		if errors.Is(f.err, store.ErrNotFound) || errors.Is(f.err, store.ErrConflict) {
			return f.err
		}
		return store.Unavailable(op, f.err)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

func now() time.Time { return time.Now().UTC() }

func byName(a, b models.Category) int { return cmp.Compare(a.Name, b.Name) }

func byPublished(a, b models.Report) int { return a.PublishedAt.Compare(b.PublishedAt) }

func byReacted(a, b models.Reaction) int { return a.ReactedAt.Compare(b.ReactedAt) }

func byRegistered(a, b models.User) int { return a.RegisteredAt.Compare(b.RegisteredAt) }

func (s *Store) CreateCategory(_ context.Context, category *models.Category) error {
	if err := s.enter(OpCreateCategory, category.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; ok {
		return store.ErrConflict
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now()
	}
	s.categories[category.ID] = category.Clone()
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*models.Category, error) {
	if err := s.enter(OpGetCategory, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) ListCategories(context.Context) ([]models.Category, error) {
	if err := s.enter(OpListCategories, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c.Clone())
	}
	slices.SortFunc(out, byName)
	return out, nil
}

func (s *Store) GetCategoryContainingReport(_ context.Context, reportID string) (*models.Category, error) {
	if err := s.enter(OpGetCategoryContainingReport, reportID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.HasReport(reportID) {
			return c.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveCategory(_ context.Context, category *models.Category) error {
	if err := s.enter(OpSaveCategory, category.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; !ok {
		return store.ErrNotFound
	}
	s.categories[category.ID] = category.Clone()
	return nil
}

func (s *Store) CreateReport(_ context.Context, report *models.Report) error {
	if err := s.enter(OpCreateReport, report.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; ok {
		return store.ErrConflict
	}
	ts := now()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = ts
	}
	report.UpdatedAt = ts
	s.reports[report.ID] = report.Clone()
	return nil
}

func (s *Store) GetReport(_ context.Context, id string) (*models.Report, error) {
	if err := s.enter(OpGetReport, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) SaveReport(_ context.Context, report *models.Report) error {
	if err := s.enter(OpSaveReport, report.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.reports[report.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != report.Version {
		return store.ErrConflict
	}
	report.Version++
	report.UpdatedAt = now()
	s.reports[report.ID] = report.Clone()
	return nil
}

func (s *Store) DeleteReport(_ context.Context, id string) error {
	if err := s.enter(OpDeleteReport, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *Store) ListReports(context.Context) ([]models.Report, error) {
	if err := s.enter(OpListReports, ""); err != nil {
		return nil, err
	}
	return s.filterReports(func(*models.Report) bool { return true }), nil
}

func (s *Store) ListReportsByUser(_ context.Context, userID string) ([]models.Report, error) {
	if err := s.enter(OpListReportsByUser, userID); err != nil {
		return nil, err
	}
	return s.filterReports(func(r *models.Report) bool { return r.HasUser(userID) }), nil
}

func (s *Store) filterReports(keep func(*models.Report) bool) []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if keep(r) {
			out = append(out, *r.Clone())
		}
	}
	slices.SortFunc(out, byPublished)
	return out
}

func (s *Store) SaveReaction(_ context.Context, reaction *models.Reaction) error {
	if err := s.enter(OpSaveReaction, reaction.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = now()
	}
	cp := *reaction
	s.reactions[reaction.ID] = &cp
	return nil
}

func (s *Store) DeleteReaction(_ context.Context, id string) error {
	if err := s.enter(OpDeleteReaction, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reactions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.reactions, id)
	return nil
}

func (s *Store) ListReactionsByReport(_ context.Context, reportID string) ([]models.Reaction, error) {
	if err := s.enter(OpListReactionsByReport, reportID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reaction
	for _, r := range s.reactions {
		if r.ReportID == reportID {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, byReacted)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	if err := s.enter(OpCreateUser, user.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == user.ID || u.ContactKey == user.ContactKey {
			return store.ErrConflict
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUserByContactKey(_ context.Context, key string) (*models.User, error) {
	if err := s.enter(OpGetUserByContactKey, key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ContactKey == key {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	if err := s.enter(OpListUsers, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	slices.SortFunc(out, byRegistered)
	return out, nil
}

var _ store.Gateway = (*Store)(nil)
