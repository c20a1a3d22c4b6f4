// pkg/driver/interfaces.go
package driver

import (
	"context"

	"tunnins-service/internal/config"
	"tunnins-service/internal/model"
	"tunnins-service/internal/protocol"
)

// ControlDriver is the contract between the service layer and a device instance
type ControlDriver interface {
	// Lifecycle
	Init(ctx context.Context) error
	UpdateConfig(ctx context.Context, cfg config.DeviceConfig) error
	Reconnect(ctx context.Context) error
	Destroy() error

	// Actions
	ExecuteAction(ctx context.Context, action *Action) (*ActionResult, error)

	// Introspection
	Status() model.ConnectionStatus
	Config() config.DeviceConfig
	Stats() protocol.ProtocolStats

	// Definitions presented to the host
	ConfigFields() []ConfigField
	Actions() []ActionDefinition
	Presets() []Preset

	// Event handling
	SetEventHandler(handler EventHandler)
}

// EventHandler receives asynchronous driver events
type EventHandler interface {
	OnStatusChanged(deviceID string, oldStatus, newStatus model.ConnectionStatus)
	OnDataReceived(deviceID string, data []byte)
}
