// internal/protocol/connection.go
package protocol

import (
	"fmt"
	"time"

	"tunnins-service/internal/config"
)

// Serial line defaults for TunninS RS-232 bridges
const (
	DefaultBaudRate = 9600
	DefaultDataBits = 8
)

// SerialConfig is the serial transport view of a device configuration
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

// TCPConfig is the TCP transport view of a device configuration
type TCPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	KeepAlive    bool          `json:"keep_alive"`
	Timeout      time.Duration `json:"timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// TCPConfigFrom extracts the TCP settings of a device
func TCPConfigFrom(device *config.DeviceConfig) (*TCPConfig, error) {
	if device.Host == "" {
		return nil, fmt.Errorf("TCP host is required")
	}
	if device.Port <= 0 {
		return nil, fmt.Errorf("TCP port is required")
	}

	return &TCPConfig{
		Host:         device.Host,
		Port:         device.Port,
		KeepAlive:    device.KeepAlive,
		Timeout:      device.ConnectTimeout,
		WriteTimeout: device.WriteTimeout,
	}, nil
}

// SerialConfigFrom extracts the serial settings of a device, filling line defaults
func SerialConfigFrom(device *config.DeviceConfig) (*SerialConfig, error) {
	if device.Serial.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}

	cfg := &SerialConfig{
		Port:     device.Serial.Port,
		BaudRate: device.Serial.BaudRate,
		DataBits: device.Serial.DataBits,
		StopBits: device.Serial.StopBits,
		Parity:   device.Serial.Parity,
		Timeout:  device.Serial.Timeout,
	}

	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = DefaultDataBits
	}

	return cfg, nil
}
