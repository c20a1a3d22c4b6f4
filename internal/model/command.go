// internal/model/command.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// CommandStatus represents the outcome of an action
type CommandStatus string

const (
	CommandStatusSent         CommandStatus = "SENT"
	CommandStatusSkipped      CommandStatus = "SKIPPED"
	CommandStatusNotConnected CommandStatus = "NOT_CONNECTED"
	CommandStatusFailed       CommandStatus = "FAILED"
)

// CommandSource identifies which surface triggered an action
type CommandSource string

const (
	SourceAPI       CommandSource = "API"
	SourceWebSocket CommandSource = "WEBSOCKET"
	SourceOSC       CommandSource = "OSC"
	SourceCLI       CommandSource = "CLI"
)

// CommandRecord is one entry in the command log
type CommandRecord struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	ActionID     string            `json:"action_id" db:"action_id"`
	Options      map[string]string `json:"options,omitempty" db:"options"`
	Command      string            `json:"command" db:"command"`
	Payload      string            `json:"payload" db:"payload"` // hex encoded
	Status       CommandStatus     `json:"status" db:"status"`
	Source       CommandSource     `json:"source" db:"source"`
	ErrorMessage *string           `json:"error_message,omitempty" db:"error_message"`
	DurationMs   int64             `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// IsDelivered reports whether the payload reached the transport
func (r *CommandRecord) IsDelivered() bool {
	return r.Status == CommandStatusSent
}
