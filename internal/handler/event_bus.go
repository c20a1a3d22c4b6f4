// internal/handler/event_bus.go
package handler

import (
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"tunnins-service/internal/model"
)

// Event types published on the bus
const (
	EventStatusChanged   = "status_changed"
	EventDataReceived    = "data_received"
	EventCommandExecuted = "command_executed"

	// allEvents subscribes to every event type
	allEvents = "*"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[string][]chan Event
	events      chan Event
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// Event represents a system event
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			return
		}
	}
}

// Stop stops the distribution loop
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.done) })
}

// Publish publishes an event
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.events <- event:
	default:
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", event.Type),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// SubscribeAll subscribes to every event type
func (eb *EventBus) SubscribeAll() <-chan Event {
	return eb.Subscribe(allEvents)
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event Event) {
	eb.mutex.RLock()
	subscribers := append([]chan Event{}, eb.subscribers[event.Type]...)
	subscribers = append(subscribers, eb.subscribers[allEvents]...)
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// slow subscriber
		}
	}
}

// DeviceEventHandler turns driver and service callbacks into bus events
type DeviceEventHandler struct {
	eventBus *EventBus
	logger   *zap.Logger
}

// NewDeviceEventHandler creates a new device event handler
func NewDeviceEventHandler(eventBus *EventBus, logger *zap.Logger) *DeviceEventHandler {
	return &DeviceEventHandler{
		eventBus: eventBus,
		logger:   logger,
	}
}

// OnStatusChanged handles device status change events
func (deh *DeviceEventHandler) OnStatusChanged(deviceID string, oldStatus, newStatus model.ConnectionStatus) {
	deh.eventBus.Publish(Event{
		Type:   EventStatusChanged,
		Source: deviceID,
		Data: map[string]interface{}{
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	})

	deh.logger.Debug("Device status change event published",
		zap.String("device_id", deviceID),
		zap.String("old_level", string(oldStatus.Level)),
		zap.String("new_level", string(newStatus.Level)),
	)
}

// OnDataReceived handles bytes read from the device
func (deh *DeviceEventHandler) OnDataReceived(deviceID string, data []byte) {
	deh.eventBus.Publish(Event{
		Type:   EventDataReceived,
		Source: deviceID,
		Data: map[string]interface{}{
			"data": hex.EncodeToString(data),
			"text": string(data),
		},
	})
}

// OnCommandExecuted handles recorded actions
func (deh *DeviceEventHandler) OnCommandExecuted(record *model.CommandRecord) {
	deh.eventBus.Publish(Event{
		Type:   EventCommandExecuted,
		Source: string(record.Source),
		Data: map[string]interface{}{
			"command": record,
		},
	})
}
