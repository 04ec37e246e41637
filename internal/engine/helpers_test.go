package engine_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/imagehost"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/lock"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const reporterID = "reporter"

var fixedNow = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	st     *memstore.Store
	images *imagehost.Memory
	locks  lock.Locker
	eng    *engine.Engine

	mu              sync.Mutex
	inconsistencies []error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, lock.NewLocal())
}

func newFixtureWithLocker(t *testing.T, locks lock.Locker) *fixture {
	t.Helper()
	f := &fixture{
		st:     memstore.New(),
		images: imagehost.NewMemory("https://img.test/assets"),
		locks:  locks,
	}
	f.eng = engine.New(f.st, f.images, locks, engine.Options{
		Location:         time.UTC,
		SweepConcurrency: 4,
		Now:              func() time.Time { return fixedNow },
		OnInconsistency: func(err error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.inconsistencies = append(f.inconsistencies, err)
		},
	})
	return f
}

func (f *fixture) reported() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.inconsistencies...)
}

func (f *fixture) category(t *testing.T, id string) *models.Category {
	t.Helper()
	ctx := context.Background()
	if c, err := f.st.GetCategory(ctx, id); err == nil {
		return c
	}
	c := &models.Category{ID: id, Name: "category " + id, Description: "test"}
	require.NoError(t, f.st.CreateCategory(ctx, c))
	return c
}

// seed stores a report in categoryID with the given number of confirmations
// and denunciations already applied, each backed by a reaction record.
func (f *fixture) seed(t *testing.T, categoryID string, confirms, denials int, published time.Time) *models.Report {
	t.Helper()
	ctx := context.Background()
	f.category(t, categoryID)

	assetID := strings.ReplaceAll(uuid.NewString(), "-", "")
	f.images.Put(assetID)
	report := &models.Report{
		ID:          uuid.NewString(),
		UserIDs:     []string{reporterID},
		PublishedAt: published,
		Description: "hole in the road",
		Latitude:    -23.5,
		Longitude:   -46.6,
		ImageURL:    fmt.Sprintf("https://img.test/assets/%s.jpg", assetID),
	}
	add := func(prefix string, n int, confirm bool) {
		for i := range n {
			reaction := &models.Reaction{
				ID:        uuid.NewString(),
				ReportID:  report.ID,
				UserID:    fmt.Sprintf("%s-%d", prefix, i),
				ReactedAt: published,
				Confirm:   confirm,
			}
			require.NoError(t, f.st.SaveReaction(ctx, reaction))
			report.Reactions = append(report.Reactions, reaction.Ref())
		}
	}
	add("confirmer", confirms, true)
	add("denouncer", denials, false)
	report.ConfirmedCount = confirms
	report.DeniedCount = denials
	require.NoError(t, f.st.CreateReport(ctx, report))

	c, err := f.st.GetCategory(ctx, categoryID)
	require.NoError(t, err)
	c.AddReport(report.ID)
	require.NoError(t, f.st.SaveCategory(ctx, c))
	return report
}

func assetOf(t *testing.T, r *models.Report) string {
	t.Helper()
	id, err := imagehost.AssetID(r.ImageURL)
	require.NoError(t, err)
	return id
}

func daysAgo(n int) time.Time {
	return fixedNow.AddDate(0, 0, -n)
}

// gateLocker blocks the first Lock call until the gate opens.
type gateLocker struct {
	lock.Locker
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func newGateLocker() *gateLocker {
	return &gateLocker{
		Locker:  lock.NewLocal(),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (g *gateLocker) Lock(ctx context.Context, key string) (func(), error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.gate
	}
	return g.Locker.Lock(ctx, key)
}
