package postgres

import (
	"context"
	"sync"

	"github.com/growthlab/backend/internal/domain"
)

var _ domain.PredictionLogRepository = (*MockRepository)(nil)

// MockRepository keeps prediction logs in memory when no database is
// configured, and backs handler tests.
type MockRepository struct {
	mu      sync.Mutex
	entries []domain.PredictionLog
	limit   int
}

// NewMockRepository creates a mock repository retaining the latest limit entries.
func NewMockRepository(limit int) *MockRepository {
	return &MockRepository{limit: limit}
}

// SavePredictionLog appends to the in-memory ring.
func (r *MockRepository) SavePredictionLog(ctx context.Context, entry domain.PredictionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if r.limit > 0 && len(r.entries) > r.limit {
		r.entries = r.entries[len(r.entries)-r.limit:]
	}
	return nil
}

// Entries returns a snapshot of the stored logs.
func (r *MockRepository) Entries() []domain.PredictionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.PredictionLog(nil), r.entries...)
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
