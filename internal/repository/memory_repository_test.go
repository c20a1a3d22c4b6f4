package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"tunnins-service/internal/model"
)

func newRecord(actionID string, status model.CommandStatus, source model.CommandSource, createdAt time.Time) *model.CommandRecord {
	return &model.CommandRecord{
		ID:        uuid.New(),
		ActionID:  actionID,
		Command:   "GLOBSTART",
		Payload:   "474c4f4253544152540d0a",
		Status:    status,
		Source:    source,
		CreatedAt: createdAt,
	}
}

func TestMemoryRepositoryCreateAndGet(t *testing.T) {
	repo := NewMemoryCommandRepository(10)
	ctx := context.Background()

	record := newRecord("globalStart", model.CommandStatusSent, model.SourceAPI, time.Now())
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ActionID != "globalStart" || got.Status != model.CommandStatusSent {
		t.Errorf("GetByID() = %+v", got)
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("GetByID(unknown) error = %v, want ErrRecordNotFound", err)
	}
}

func TestMemoryRepositoryEvictsOldest(t *testing.T) {
	repo := NewMemoryCommandRepository(3)
	ctx := context.Background()
	base := time.Now()

	ids := []uuid.UUID{}
	for i := 0; i < 5; i++ {
		r := newRecord("globalCut", model.CommandStatusSent, model.SourceAPI, base.Add(time.Duration(i)*time.Second))
		ids = append(ids, r.ID)
		repo.Create(ctx, r)
	}

	_, total, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if _, err := repo.GetByID(ctx, ids[0]); !errors.Is(err, ErrRecordNotFound) {
		t.Error("oldest record should have been evicted")
	}
	if _, err := repo.GetByID(ctx, ids[4]); err != nil {
		t.Errorf("newest record missing: %v", err)
	}
}

func TestMemoryRepositoryList(t *testing.T) {
	repo := NewMemoryCommandRepository(100)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	repo.Create(ctx, newRecord("start", model.CommandStatusSent, model.SourceAPI, base))
	repo.Create(ctx, newRecord("stop", model.CommandStatusNotConnected, model.SourceOSC, base.Add(time.Minute)))
	repo.Create(ctx, newRecord("start", model.CommandStatusSent, model.SourceWebSocket, base.Add(2*time.Minute)))
	repo.Create(ctx, newRecord("send", model.CommandStatusSkipped, model.SourceCLI, base.Add(3*time.Minute)))

	start := "start"
	sent := model.CommandStatusSent
	osc := model.SourceOSC
	after := base.Add(90 * time.Second)

	tests := []struct {
		name      string
		filter    *CommandFilter
		wantTotal int
		wantFirst string
	}{
		{"all newest first", &CommandFilter{}, 4, "send"},
		{"by action", &CommandFilter{ActionID: &start}, 2, "start"},
		{"by status", &CommandFilter{Status: &sent}, 2, "start"},
		{"by source", &CommandFilter{Source: &osc}, 1, "stop"},
		{"by start date", &CommandFilter{StartDate: &after}, 2, "send"},
		{"paged", &CommandFilter{Page: 2, PerPage: 3}, 4, "start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, total, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(records) == 0 || records[0].ActionID != tt.wantFirst {
				t.Errorf("first record = %v, want %s", records, tt.wantFirst)
			}
		})
	}

	records, total, _ := repo.List(ctx, &CommandFilter{Page: 5, PerPage: 10})
	if len(records) != 0 || total != 4 {
		t.Errorf("out of range page returned %d records, total %d", len(records), total)
	}
}

func TestMemoryRepositoryDeleteOlderThan(t *testing.T) {
	repo := NewMemoryCommandRepository(100)
	ctx := context.Background()
	now := time.Now()

	repo.Create(ctx, newRecord("start", model.CommandStatusSent, model.SourceAPI, now.Add(-48*time.Hour)))
	repo.Create(ctx, newRecord("stop", model.CommandStatusSent, model.SourceAPI, now.Add(-25*time.Hour)))
	repo.Create(ctx, newRecord("cut", model.CommandStatusSent, model.SourceAPI, now))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	records, total, _ := repo.List(ctx, nil)
	if total != 1 || records[0].ActionID != "cut" {
		t.Errorf("remaining = %v (total %d)", records, total)
	}
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryCommandRepository(10)
	ctx := context.Background()

	record := newRecord("start", model.CommandStatusSent, model.SourceAPI, time.Now())
	repo.Create(ctx, record)
	record.ActionID = "mutated"

	got, _ := repo.GetByID(ctx, record.ID)
	if got.ActionID != "start" {
		t.Errorf("stored record was mutated through caller pointer: %s", got.ActionID)
	}
}
