// internal/driver/tunnins/driver.go
package tunnins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"tunnins-service/internal/config"
	"tunnins-service/internal/model"
	"tunnins-service/internal/protocol"
	"tunnins-service/internal/utils"
	"tunnins-service/pkg/driver"
)

const readChunkSize = 4096

// ErrNotConnected is returned when an action is triggered without a live socket
var ErrNotConnected = errors.New("socket not connected")

// Driver implements driver.ControlDriver for a TunninS device.
// It owns at most one transport at a time.
type Driver struct {
	deviceID     string
	config       config.DeviceConfig
	logger       *utils.DeviceLogger
	baseLogger   *zap.Logger
	newProtocol  protocol.Factory
	eventHandler driver.EventHandler

	protocol   protocol.DeviceProtocol
	cancel     context.CancelFunc
	connected  bool
	generation uint64
	status     model.ConnectionStatus
	lastStats  protocol.ProtocolStats

	mutex sync.RWMutex
	wg    sync.WaitGroup
}

// Option customizes a Driver
type Option func(*Driver)

// WithProtocolFactory replaces the transport factory
func WithProtocolFactory(factory protocol.Factory) Option {
	return func(d *Driver) {
		d.newProtocol = factory
	}
}

var _ driver.ControlDriver = (*Driver)(nil)

// NewDriver creates an unconnected driver. Call Init to start the connection.
func NewDriver(deviceID string, cfg config.DeviceConfig, logger *zap.Logger, opts ...Option) *Driver {
	if cfg.Transport == "" {
		cfg.Transport = config.TransportTCP
	}

	d := &Driver{
		deviceID:    deviceID,
		config:      cfg,
		baseLogger:  logger,
		logger:      utils.NewDeviceLogger(logger, deviceID, cfg.Transport),
		newProtocol: protocol.CreateProtocol,
		status: model.ConnectionStatus{
			Level:     model.StatusUnknown,
			UpdatedAt: time.Now(),
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Init publishes the presets and starts the connection
func (d *Driver) Init(ctx context.Context) error {
	d.log().Info("Initializing TunninS instance",
		zap.String("address", d.Config().Address()),
		zap.Int("presets", len(d.Presets())),
	)

	d.initConnection()
	return nil
}

// UpdateConfig replaces the configuration and reconnects
func (d *Driver) UpdateConfig(ctx context.Context, cfg config.DeviceConfig) error {
	if cfg.Transport == "" {
		cfg.Transport = config.TransportTCP
	}
	if _, err := LookupLineEnding(cfg.LineEnding); err != nil {
		return err
	}

	d.mutex.Lock()
	d.teardownLocked()
	d.config = cfg
	d.logger = utils.NewDeviceLogger(d.baseLogger, d.deviceID, cfg.Transport)
	logger := d.logger
	d.mutex.Unlock()

	logger.Info("Configuration updated",
		zap.String("transport", cfg.Transport),
		zap.String("address", cfg.Address()),
		zap.String("line_ending", cfg.LineEnding),
	)

	d.initConnection()
	return nil
}

// Reconnect re-runs the connection sequence with the current configuration
func (d *Driver) Reconnect(ctx context.Context) error {
	d.log().Info("Manual reconnect requested")
	d.initConnection()
	return nil
}

// Destroy closes the socket. Nothing from the old socket reaches the status afterwards.
func (d *Driver) Destroy() error {
	d.mutex.Lock()
	d.teardownLocked()
	d.mutex.Unlock()

	d.wg.Wait()

	d.log().Debug("destroy", zap.String("device_id", d.deviceID))
	return nil
}

// initConnection destroys any existing socket and starts a new one
func (d *Driver) initConnection() {
	d.mutex.Lock()
	d.teardownLocked()
	gen := d.generation
	cfg := d.config
	logger := d.logger
	d.mutex.Unlock()

	d.setStatus(gen, model.StatusWarning, "Connecting", false)

	if cfg.Transport == config.TransportTCP && cfg.Host == "" {
		logger.Debug("No host configured, not connecting")
		return
	}

	proto, err := d.newProtocol(&cfg, logger.Logger)
	if err != nil {
		logger.Error("Network error: " + err.Error())
		d.setStatus(gen, model.StatusError, err.Error(), false)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	d.mutex.Lock()
	if gen != d.generation {
		d.mutex.Unlock()
		cancel()
		return
	}
	d.protocol = proto
	d.cancel = cancel
	d.wg.Add(1)
	d.mutex.Unlock()

	go d.run(ctx, gen, proto, cfg, logger)
}

// log returns the current device logger
func (d *Driver) log() *utils.DeviceLogger {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.logger
}

// teardownLocked invalidates the current socket. Caller holds the mutex.
func (d *Driver) teardownLocked() {
	d.generation++

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	if d.protocol != nil {
		d.lastStats = d.protocol.Stats()
		if err := d.protocol.Close(); err != nil {
			d.logger.Warn("Failed to close transport", zap.Error(err))
		}
		d.protocol = nil
	}

	d.connected = false
}

// run connects the transport and then forwards incoming data until the
// socket fails or is replaced
func (d *Driver) run(ctx context.Context, gen uint64, proto protocol.DeviceProtocol, cfg config.DeviceConfig, logger *utils.DeviceLogger) {
	defer d.wg.Done()

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := proto.Open(connectCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		d.fail(gen, err)
		return
	}

	if !d.markConnected(gen, proto) {
		return
	}

	logger.LogConnection("connect", true, nil)
	logger.Debug("Connected")
	d.setStatus(gen, model.StatusOK, "", true)

	for {
		data, err := proto.Read(ctx, readChunkSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				d.closed(gen)
				return
			}
			d.fail(gen, err)
			return
		}

		logger.Info("Data received",
			zap.ByteString("data", data),
			zap.Int("bytes", len(data)),
		)

		d.mutex.RLock()
		handler := d.eventHandler
		current := gen == d.generation
		d.mutex.RUnlock()

		if current && handler != nil {
			handler.OnDataReceived(d.deviceID, data)
		}
	}
}

// markConnected records a successful connect unless the socket was replaced meanwhile
func (d *Driver) markConnected(gen uint64, proto protocol.DeviceProtocol) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if gen != d.generation {
		proto.Close()
		return false
	}

	d.connected = true
	return true
}

// fail handles a transport error on the socket of generation gen
func (d *Driver) fail(gen uint64, err error) {
	logger, ok := d.disconnect(gen)
	if !ok {
		return
	}

	logger.LogConnection("error", false, err)
	logger.Error("Network error: " + err.Error())
	d.setStatus(gen, model.StatusError, err.Error(), false)
}

// closed handles the remote end closing the socket
func (d *Driver) closed(gen uint64) {
	logger, ok := d.disconnect(gen)
	if !ok {
		return
	}

	logger.LogConnection("closed", false, nil)
	d.setStatus(gen, model.StatusError, "Connection closed", false)
}

// disconnect marks the socket of generation gen as dead and closes it.
// The generation is kept so the resulting status still applies.
func (d *Driver) disconnect(gen uint64) (*utils.DeviceLogger, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if gen != d.generation {
		return nil, false
	}

	d.connected = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.protocol != nil {
		d.lastStats = d.protocol.Stats()
		d.protocol.Close()
		d.protocol = nil
	}
	return d.logger, true
}

// setStatus applies a status coming from the socket of generation gen.
// Updates from replaced sockets are dropped.
func (d *Driver) setStatus(gen uint64, level model.StatusLevel, message string, connected bool) {
	d.mutex.Lock()
	if gen != d.generation {
		d.mutex.Unlock()
		return
	}

	oldStatus := d.status
	newStatus := model.ConnectionStatus{
		Level:     level,
		Message:   message,
		Connected: connected,
		UpdatedAt: time.Now(),
	}
	d.status = newStatus
	handler := d.eventHandler
	logger := d.logger
	d.mutex.Unlock()

	if oldStatus.Equal(newStatus) {
		return
	}

	logger.Debug("Status changed",
		zap.String("level", string(level)),
		zap.String("message", message),
	)

	if handler != nil {
		handler.OnStatusChanged(d.deviceID, oldStatus, newStatus)
	}
}

// ExecuteAction builds the command for an action and writes it to the socket
func (d *Driver) ExecuteAction(ctx context.Context, action *driver.Action) (*driver.ActionResult, error) {
	cmd, err := BuildCommand(action)
	if err != nil {
		return nil, err
	}

	d.mutex.RLock()
	cfg := d.config
	proto := d.protocol
	connected := d.connected
	gen := d.generation
	logger := d.logger
	d.mutex.RUnlock()

	ending, err := LookupLineEnding(cfg.LineEnding)
	if err != nil {
		return nil, err
	}

	payload := cmd.Encode(ending)
	result := &driver.ActionResult{
		ActionID: action.ID,
		Command:  cmd.String(),
		Payload:  payload,
	}

	if len(payload) == 0 {
		result.Skipped = true
		logger.Debug("Empty command, nothing to send", zap.String("action", action.ID))
		return result, nil
	}

	logger.Debug("sending",
		zap.Binary("payload", payload),
		zap.String("to", cfg.Address()),
	)

	if !connected || proto == nil {
		logger.Debug("Socket not connected")
		logger.LogCommand(action.ID, result.Command, payload, ErrNotConnected)
		return result, ErrNotConnected
	}

	if err := proto.Write(ctx, payload); err != nil {
		logger.LogCommand(action.ID, result.Command, payload, err)
		if errors.Is(err, protocol.ErrNotOpen) {
			return result, ErrNotConnected
		}
		if ctx.Err() == nil {
			d.fail(gen, err)
		}
		return result, fmt.Errorf("failed to send command: %w", err)
	}

	result.Sent = true
	logger.LogCommand(action.ID, result.Command, payload, nil)
	return result, nil
}

// Status returns the current connection status
func (d *Driver) Status() model.ConnectionStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.status
}

// Config returns a copy of the current configuration
func (d *Driver) Config() config.DeviceConfig {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.config
}

// Stats returns transport statistics of the current or last socket
func (d *Driver) Stats() protocol.ProtocolStats {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if d.protocol != nil {
		return d.protocol.Stats()
	}
	return d.lastStats
}

// ConfigFields returns the configuration inputs
func (d *Driver) ConfigFields() []driver.ConfigField {
	return ConfigFields()
}

// Actions returns the action definitions
func (d *Driver) Actions() []driver.ActionDefinition {
	return ActionDefinitions()
}

// Presets returns the preset definitions
func (d *Driver) Presets() []driver.Preset {
	return PresetDefinitions()
}

// SetEventHandler sets the event handler
func (d *Driver) SetEventHandler(handler driver.EventHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.eventHandler = handler
}
