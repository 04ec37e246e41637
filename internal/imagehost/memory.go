package imagehost

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is a Host that keeps nothing but asset ids. It backs local runs
// without cloudinary credentials and the tests.
type Memory struct {
	BaseURL string

	mu      sync.Mutex
	assets  map[string]bool
	deletes map[string]int
	failOn  map[string]error
	uploads []string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		assets:  make(map[string]bool),
		deletes: make(map[string]int),
		failOn:  make(map[string]error),
	}
}

func (m *Memory) Upload(_ context.Context, payload string) (string, error) {
	ext, err := Extension(payload)
	if err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	m.mu.Lock()
	m.assets[id] = true
	m.uploads = append(m.uploads, id)
	m.mu.Unlock()
	return fmt.Sprintf("%s/%s.%s", m.BaseURL, id, ext), nil
}

// Put registers an existing asset id, as if uploaded earlier.
func (m *Memory) Put(assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[assetID] = true
}

// FailDelete makes the next deletion of assetID return err.
func (m *Memory) FailDelete(assetID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[assetID] = err
}

func (m *Memory) DeleteAsset(_ context.Context, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[assetID]; ok {
		delete(m.failOn, assetID)
		return err
	}
	m.deletes[assetID]++
	delete(m.assets, assetID)
	return nil
}

func (m *Memory) Exists(assetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets[assetID]
}

// Deletes returns how many times assetID was deleted.
func (m *Memory) Deletes(assetID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes[assetID]
}

// Uploads returns the ids of assets created through Upload, oldest first.
func (m *Memory) Uploads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uploads...)
}
