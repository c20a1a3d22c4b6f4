// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"tunnins-service/internal/model"
)

// SerialConnection implements DeviceProtocol for RS-232 bridged devices
type SerialConnection struct {
	config *SerialConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  ProtocolStats
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) *SerialConnection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}
}

// Open opens the serial port
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	sc.logger.Debug("Opening serial port", zap.Int("baud_rate", sc.config.BaudRate))

	port, err := serial.Open(sc.config.Port, serialMode(sc.config))
	if err != nil {
		sc.stats.ErrorCount++
		return fmt.Errorf("failed to open serial port %s: %w", sc.config.Port, err)
	}

	// A finite read timeout lets the reader notice Close and cancellation
	timeout := sc.config.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	sc.port = port
	sc.isOpen = true
	sc.stats.IsConnected = true
	sc.stats.LastActivity = time.Now()

	sc.logger.Debug("Serial port opened")
	return nil
}

// serialMode translates the configuration into a go.bug.st/serial mode
func serialMode(config *SerialConfig) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
	}

	switch config.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode
}

// Close closes the serial port
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	err := sc.port.Close()
	sc.port = nil
	sc.isOpen = false
	sc.stats.IsConnected = false

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sc.logger.Debug("Serial port closed")
	return nil
}

// IsOpen returns whether the port is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen && sc.port != nil
}

// Write writes data to the serial port
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return ErrNotOpen
	}

	startTime := time.Now()
	written := 0
	for written < len(data) {
		n, err := sc.port.Write(data[written:])
		if err != nil {
			sc.stats.ErrorCount++
			return fmt.Errorf("write failed after %d bytes: %w", written, err)
		}
		written += n
	}

	sc.stats.recordWrite(written, time.Since(startTime))
	sc.logger.Debug("Serial write completed", zap.Int("bytes", written))
	return nil
}

// Read returns the next chunk of received bytes. A read timeout with no data
// is not an error; the call keeps waiting until data, Close or ctx.
func (sc *SerialConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	buffer := make([]byte, maxBytes)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sc.mutex.RLock()
		port := sc.port
		open := sc.isOpen
		sc.mutex.RUnlock()

		if !open || port == nil {
			return nil, ErrNotOpen
		}

		n, err := port.Read(buffer)
		if err != nil {
			sc.mutex.Lock()
			sc.stats.ErrorCount++
			sc.mutex.Unlock()
			return nil, fmt.Errorf("failed to read from serial port: %w", err)
		}
		if n == 0 {
			continue
		}

		sc.mutex.Lock()
		sc.stats.recordRead(n)
		sc.mutex.Unlock()

		return buffer[:n], nil
	}
}

// GetProtocolType returns the protocol type
func (sc *SerialConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// Stats returns a snapshot of the port statistics
func (sc *SerialConnection) Stats() ProtocolStats {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.stats
}

// ListSerialPorts returns the serial ports present on this machine
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}
