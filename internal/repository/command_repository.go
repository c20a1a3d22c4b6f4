// internal/repository/command_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunnins-service/internal/database"
	"tunnins-service/internal/model"
)

// commandRepository implements CommandRepository on PostgreSQL
type commandRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCommandRepository creates a new PostgreSQL command repository
func NewCommandRepository(db *database.DB, logger *zap.Logger) CommandRepository {
	return &commandRepository{
		db:     db,
		logger: logger,
	}
}

const commandColumns = `id, action_id, options, command, payload, status, source,
		error_message, duration_ms, created_at`

// Create inserts a command record
func (r *commandRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	opts := record.Options
	if opts == nil {
		opts = map[string]string{}
	}
	options, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	query := `
		INSERT INTO command_log (` + commandColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.ActionID, options, record.Command, record.Payload,
		record.Status, record.Source, record.ErrorMessage, record.DurationMs,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create command record", zap.Error(err))
		return fmt.Errorf("failed to create command record: %w", err)
	}

	return nil
}

// GetByID retrieves a command record by ID
func (r *commandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	query := `SELECT ` + commandColumns + ` FROM command_log WHERE id = $1`

	record, err := scanCommand(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: command %s", ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to get command record: %w", err)
	}

	return record, nil
}

// List returns a page of command records, newest first, and the total count
func (r *commandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error) {
	if filter == nil {
		filter = &CommandFilter{}
	}
	filter.Normalize()

	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.ActionID != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("action_id = $%d", argIndex))
		args = append(args, *filter.ActionID)
		argIndex++
	}

	if filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Source != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("source = $%d", argIndex))
		args = append(args, *filter.Source)
		argIndex++
	}

	if filter.StartDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_log %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count command records: %w", err)
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT %s
		FROM command_log %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, commandColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list command records: %w", err)
	}
	defer rows.Close()

	records := []*model.CommandRecord{}
	for rows.Next() {
		record, err := scanCommand(rows)
		if err != nil {
			r.logger.Error("Failed to scan command row", zap.Error(err))
			continue
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate command records: %w", err)
	}

	return records, total, nil
}

// DeleteOlderThan removes records created before the cutoff
func (r *commandRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM command_log WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old command records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCommand(row rowScanner) (*model.CommandRecord, error) {
	record := &model.CommandRecord{}
	var options []byte

	err := row.Scan(
		&record.ID, &record.ActionID, &options, &record.Command, &record.Payload,
		&record.Status, &record.Source, &record.ErrorMessage, &record.DurationMs,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(options) > 0 {
		if err := json.Unmarshal(options, &record.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options: %w", err)
		}
	}

	return record, nil
}
