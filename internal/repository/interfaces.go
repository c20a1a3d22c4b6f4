// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tunnins-service/internal/model"
)

// ErrRecordNotFound is returned when a lookup matches nothing
var ErrRecordNotFound = errors.New("record not found")

// CommandRepository defines command log data access operations
type CommandRepository interface {
	Create(ctx context.Context, record *model.CommandRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error)
	List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error)

	// Cleanup
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// CommandFilter represents command log listing filters
type CommandFilter struct {
	ActionID  *string              `json:"action_id,omitempty"`
	Status    *model.CommandStatus `json:"status,omitempty"`
	Source    *model.CommandSource `json:"source,omitempty"`
	StartDate *time.Time           `json:"start_date,omitempty"`
	EndDate   *time.Time           `json:"end_date,omitempty"`
	Page      int                  `json:"page"`
	PerPage   int                  `json:"per_page"`
}

// Normalize applies paging defaults
func (f *CommandFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	if f.PerPage > 500 {
		f.PerPage = 500
	}
}

// matches reports whether a record passes the filter
func (f *CommandFilter) matches(r *model.CommandRecord) bool {
	if f.ActionID != nil && r.ActionID != *f.ActionID {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Source != nil && r.Source != *f.Source {
		return false
	}
	if f.StartDate != nil && r.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}
