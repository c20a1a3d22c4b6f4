// internal/protocol/factory.go
package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"tunnins-service/internal/config"
)

// Factory creates a transport for a device configuration
type Factory func(device *config.DeviceConfig, logger *zap.Logger) (DeviceProtocol, error)

// CreateProtocol creates a protocol based on the configured transport
func CreateProtocol(device *config.DeviceConfig, logger *zap.Logger) (DeviceProtocol, error) {
	switch device.Transport {
	case config.TransportTCP, "":
		return createTCPProtocol(device, logger)
	case config.TransportSerial:
		return createSerialProtocol(device, logger)
	default:
		return nil, fmt.Errorf("unsupported transport: %s", device.Transport)
	}
}

// createTCPProtocol creates a TCP protocol
func createTCPProtocol(device *config.DeviceConfig, logger *zap.Logger) (DeviceProtocol, error) {
	tcpConfig, err := TCPConfigFrom(device)
	if err != nil {
		return nil, err
	}
	return NewTCPConnection(tcpConfig, logger), nil
}

// createSerialProtocol creates a serial protocol
func createSerialProtocol(device *config.DeviceConfig, logger *zap.Logger) (DeviceProtocol, error) {
	serialConfig, err := SerialConfigFrom(device)
	if err != nil {
		return nil, err
	}
	return NewSerialConnection(serialConfig, logger), nil
}
