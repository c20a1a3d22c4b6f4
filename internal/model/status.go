// internal/model/status.go
package model

import "time"

// StatusLevel mirrors the host's instance status levels
type StatusLevel string

const (
	StatusOK      StatusLevel = "ok"
	StatusWarning StatusLevel = "warning"
	StatusError   StatusLevel = "error"
	StatusUnknown StatusLevel = "unknown"
)

// ConnectionType represents how the device is connected
type ConnectionType string

const (
	ConnectionTypeTCP    ConnectionType = "TCP"
	ConnectionTypeSerial ConnectionType = "SERIAL"
)

// ConnectionStatus is the status an instance reports to the host
type ConnectionStatus struct {
	Level     StatusLevel `json:"level"`
	Message   string      `json:"message,omitempty"`
	Connected bool        `json:"connected"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Equal compares everything but the timestamp
func (s ConnectionStatus) Equal(other ConnectionStatus) bool {
	return s.Level == other.Level && s.Message == other.Message && s.Connected == other.Connected
}
