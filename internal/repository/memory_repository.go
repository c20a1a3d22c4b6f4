// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunnins-service/internal/model"
)

// memoryCommandRepository keeps the newest records in memory when no database is configured
type memoryCommandRepository struct {
	mu         sync.RWMutex
	records    []*model.CommandRecord // oldest first
	maxEntries int
}

// NewMemoryCommandRepository creates a bounded in-memory command repository
func NewMemoryCommandRepository(maxEntries int) CommandRepository {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &memoryCommandRepository{
		records:    make([]*model.CommandRecord, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Create appends a record, evicting the oldest once full
func (r *memoryCommandRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.maxEntries {
		overflow := len(r.records) - r.maxEntries + 1
		r.records = append(r.records[:0], r.records[overflow:]...)
	}

	stored := *record
	r.records = append(r.records, &stored)
	return nil
}

// GetByID retrieves a record by ID
func (r *memoryCommandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.records {
		if record.ID == id {
			found := *record
			return &found, nil
		}
	}

	return nil, fmt.Errorf("%w: command %s", ErrRecordNotFound, id)
}

// List returns a page of records, newest first, and the total count
func (r *memoryCommandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error) {
	if filter == nil {
		filter = &CommandFilter{}
	}
	filter.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.CommandRecord{}
	for i := len(r.records) - 1; i >= 0; i-- {
		if filter.matches(r.records[i]) {
			matched = append(matched, r.records[i])
		}
	}

	total := len(matched)
	start := (filter.Page - 1) * filter.PerPage
	if start >= total {
		return []*model.CommandRecord{}, total, nil
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}

	page := make([]*model.CommandRecord, 0, end-start)
	for _, record := range matched[start:end] {
		copied := *record
		page = append(page, &copied)
	}

	return page, total, nil
}

// DeleteOlderThan removes records created before the cutoff
func (r *memoryCommandRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var deleted int64
	for _, record := range r.records {
		if record.CreatedAt.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	for i := len(kept); i < len(r.records); i++ {
		r.records[i] = nil
	}
	r.records = kept

	return deleted, nil
}
