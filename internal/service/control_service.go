// internal/service/control_service.go
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunnins-service/internal/config"
	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/model"
	"tunnins-service/internal/protocol"
	"tunnins-service/internal/repository"
	"tunnins-service/internal/utils"
	"tunnins-service/pkg/driver"
)

// ErrInvalidConfig wraps configuration validation failures
var ErrInvalidConfig = errors.New("invalid device configuration")

// CommandListener is notified after every recorded action
type CommandListener interface {
	OnCommandExecuted(record *model.CommandRecord)
}

// ControlService handles TunninS control business logic
type ControlService struct {
	driver      driver.ControlDriver
	commandRepo repository.CommandRepository
	config      *config.Config
	logger      *utils.ServiceLogger

	mu       sync.RWMutex
	listener CommandListener
}

// NewControlService creates a new control service instance
func NewControlService(
	controlDriver driver.ControlDriver,
	commandRepo repository.CommandRepository,
	config *config.Config,
	logger *zap.Logger,
) *ControlService {
	return &ControlService{
		driver:      controlDriver,
		commandRepo: commandRepo,
		config:      config,
		logger:      utils.NewServiceLogger(logger, "control-service"),
	}
}

// SetCommandListener registers the listener for executed commands
func (cs *ControlService) SetCommandListener(listener CommandListener) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listener = listener
}

// ExecuteAction runs an action on the device and records the outcome.
// The record is returned alongside transport errors so callers can report it.
func (cs *ControlService) ExecuteAction(ctx context.Context, req *ActionRequest) (*model.CommandRecord, error) {
	startTime := time.Now()

	result, err := cs.driver.ExecuteAction(ctx, &driver.Action{
		ID:      req.ActionID,
		Options: req.Options,
	})
	if errors.Is(err, tunnins.ErrUnknownAction) {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("action execution failed: %w", err)
	}

	source := req.Source
	if source == "" {
		source = model.SourceAPI
	}

	record := &model.CommandRecord{
		ID:         uuid.New(),
		ActionID:   req.ActionID,
		Options:    req.Options,
		Command:    result.Command,
		Payload:    hex.EncodeToString(result.Payload),
		Status:     commandStatus(result, err),
		Source:     source,
		DurationMs: time.Since(startTime).Milliseconds(),
		CreatedAt:  startTime,
	}
	if err != nil {
		msg := err.Error()
		record.ErrorMessage = &msg
	}

	if repoErr := cs.commandRepo.Create(ctx, record); repoErr != nil {
		cs.logger.Error("Failed to record command", zap.Error(repoErr))
	}

	cs.logger.Info("Action executed",
		zap.String("command_id", record.ID.String()),
		zap.String("action", record.ActionID),
		zap.String("status", string(record.Status)),
		zap.String("source", string(record.Source)),
	)

	cs.mu.RLock()
	listener := cs.listener
	cs.mu.RUnlock()
	if listener != nil {
		listener.OnCommandExecuted(record)
	}

	return record, err
}

func commandStatus(result *driver.ActionResult, err error) model.CommandStatus {
	switch {
	case errors.Is(err, tunnins.ErrNotConnected):
		return model.CommandStatusNotConnected
	case err != nil:
		return model.CommandStatusFailed
	case result.Skipped:
		return model.CommandStatusSkipped
	default:
		return model.CommandStatusSent
	}
}

// GetStatus returns the connection status and transport statistics
func (cs *ControlService) GetStatus() *StatusResponse {
	cfg := cs.driver.Config()

	address := cfg.Address()
	if cfg.Transport == config.TransportSerial {
		address = cfg.Serial.Port
	}

	return &StatusResponse{
		Instance:   cs.config.App.Name,
		Status:     cs.driver.Status(),
		Transport:  cfg.Transport,
		Address:    address,
		LineEnding: cfg.LineEnding,
		Stats:      cs.driver.Stats(),
	}
}

// WaitForConnection blocks until the device connects, fails or ctx ends
func (cs *ControlService) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		status := cs.driver.Status()
		switch status.Level {
		case model.StatusOK:
			return nil
		case model.StatusError:
			return fmt.Errorf("device unavailable: %s", status.Message)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for connection: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetConfig returns the current device configuration
func (cs *ControlService) GetConfig() config.DeviceConfig {
	return cs.driver.Config()
}

// UpdateConfig validates and applies a new device configuration, then reconnects
func (cs *ControlService) UpdateConfig(ctx context.Context, cfg config.DeviceConfig) (config.DeviceConfig, error) {
	if cfg.Transport == "" {
		cfg.Transport = config.TransportTCP
	}
	if cfg.LineEnding == "" {
		cfg.LineEnding = tunnins.DefaultLineEnding
	}

	if err := config.ValidateDevice(&cfg); err != nil {
		return config.DeviceConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cs.driver.UpdateConfig(ctx, cfg); err != nil {
		return config.DeviceConfig{}, fmt.Errorf("failed to apply configuration: %w", err)
	}

	cs.logger.Info("Device configuration updated",
		zap.String("transport", cfg.Transport),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("line_ending", cfg.LineEnding),
	)

	return cs.driver.Config(), nil
}

// Reconnect re-runs the connection sequence
func (cs *ControlService) Reconnect(ctx context.Context) (*StatusResponse, error) {
	if err := cs.driver.Reconnect(ctx); err != nil {
		return nil, fmt.Errorf("reconnect failed: %w", err)
	}
	return cs.GetStatus(), nil
}

// ListActions returns the action definitions
func (cs *ControlService) ListActions() []driver.ActionDefinition {
	return cs.driver.Actions()
}

// ListConfigFields returns the configuration field definitions
func (cs *ControlService) ListConfigFields() []driver.ConfigField {
	return cs.driver.ConfigFields()
}

// ListPresets returns the preset definitions
func (cs *ControlService) ListPresets() []driver.Preset {
	return cs.driver.Presets()
}

// Manifest returns every definition the host needs to render the instance
func (cs *ControlService) Manifest() *Manifest {
	return &Manifest{
		Name:         cs.config.App.Name,
		Version:      cs.config.App.Version,
		ConfigFields: cs.ListConfigFields(),
		Actions:      cs.ListActions(),
		Presets:      cs.ListPresets(),
	}
}

// ListSerialPorts returns the serial ports available for the serial transport
func (cs *ControlService) ListSerialPorts() ([]string, error) {
	return protocol.ListSerialPorts()
}

// GetCommand retrieves a command record
func (cs *ControlService) GetCommand(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	record, err := cs.commandRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("command not found: %w", err)
	}
	return record, nil
}

// ListCommands lists command records with filtering
func (cs *ControlService) ListCommands(ctx context.Context, filter *repository.CommandFilter) ([]*model.CommandRecord, *PaginationResult, error) {
	if filter == nil {
		filter = &repository.CommandFilter{}
	}
	filter.Normalize()

	records, total, err := cs.commandRepo.List(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list commands: %w", err)
	}

	pagination := &PaginationResult{
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: (total + filter.PerPage - 1) / filter.PerPage,
	}

	return records, pagination, nil
}

// CleanupCommands removes command records older than the retention window
func (cs *ControlService) CleanupCommands(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	deleted, err := cs.commandRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up commands: %w", err)
	}

	if deleted > 0 {
		cs.logger.Info("Old commands cleaned up",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}

	return deleted, nil
}

// DTOs for Control Service

// ActionRequest represents an action execution request
type ActionRequest struct {
	ActionID string              `json:"action_id"`
	Options  map[string]string   `json:"options,omitempty"`
	Source   model.CommandSource `json:"-"`
}

// StatusResponse represents the instance status
type StatusResponse struct {
	Instance   string                 `json:"instance"`
	Status     model.ConnectionStatus `json:"status"`
	Transport  string                 `json:"transport"`
	Address    string                 `json:"address"`
	LineEnding string                 `json:"line_ending"`
	Stats      protocol.ProtocolStats `json:"stats"`
}

// Manifest bundles the host-facing definitions
type Manifest struct {
	Name         string                    `json:"name" yaml:"name"`
	Version      string                    `json:"version" yaml:"version"`
	ConfigFields []driver.ConfigField      `json:"config_fields" yaml:"config_fields"`
	Actions      []driver.ActionDefinition `json:"actions" yaml:"actions"`
	Presets      []driver.Preset           `json:"presets" yaml:"presets"`
}

// PaginationResult represents pagination information
type PaginationResult struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}
