// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport types supported by the device connection
const (
	TransportTCP    = "tcp"
	TransportSerial = "serial"
)

// DefaultDevicePort is the TunninS control port
const DefaultDevicePort = 22222

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Device   DeviceConfig   `mapstructure:"device"`
	OSC      OSCConfig      `mapstructure:"osc"`
	History  HistoryConfig  `mapstructure:"history"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig represents the command log database configuration
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DeviceConfig is the per-instance configuration of the TunninS connection.
// It is the only section the host may change at runtime.
type DeviceConfig struct {
	Transport      string             `mapstructure:"transport" json:"transport"`
	Host           string             `mapstructure:"host" json:"host"`
	Port           int                `mapstructure:"port" json:"port"`
	LineEnding     string             `mapstructure:"line_ending" json:"id_end"`
	ConnectTimeout time.Duration      `mapstructure:"connect_timeout" json:"connect_timeout"`
	WriteTimeout   time.Duration      `mapstructure:"write_timeout" json:"write_timeout"`
	KeepAlive      bool               `mapstructure:"keep_alive" json:"keep_alive"`
	Serial         SerialDeviceConfig `mapstructure:"serial" json:"serial"`
}

// SerialDeviceConfig represents the RS-232 side of a serial-bridged device
type SerialDeviceConfig struct {
	Port     string        `mapstructure:"port" json:"port"`
	BaudRate int           `mapstructure:"baud_rate" json:"baud_rate"`
	DataBits int           `mapstructure:"data_bits" json:"data_bits"`
	StopBits int           `mapstructure:"stop_bits" json:"stop_bits"`
	Parity   string        `mapstructure:"parity" json:"parity"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// OSCConfig represents the OSC bridge configuration
type OSCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Prefix  string `mapstructure:"prefix"`
}

// HistoryConfig controls the command log
type HistoryConfig struct {
	MaxEntries      int           `mapstructure:"max_entries"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
// An empty path searches ./config.yaml and ./internal/config/config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./internal/config")
		v.AddConfigPath("../../internal/config")
	}

	// Environment variable support
	v.SetEnvPrefix("TUNNINS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Defaults and environment are enough to run
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "tunnins")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Device defaults
	v.SetDefault("device.transport", TransportTCP)
	v.SetDefault("device.host", "")
	v.SetDefault("device.port", DefaultDevicePort)
	v.SetDefault("device.line_ending", "crlf")
	v.SetDefault("device.connect_timeout", "5s")
	v.SetDefault("device.write_timeout", "5s")
	v.SetDefault("device.keep_alive", true)
	v.SetDefault("device.serial.baud_rate", 9600)
	v.SetDefault("device.serial.data_bits", 8)
	v.SetDefault("device.serial.stop_bits", 1)
	v.SetDefault("device.serial.parity", "none")
	v.SetDefault("device.serial.timeout", "500ms")

	// OSC defaults
	v.SetDefault("osc.enabled", false)
	v.SetDefault("osc.address", "127.0.0.1:8765")
	v.SetDefault("osc.prefix", "/tunnins")

	// History defaults
	v.SetDefault("history.max_entries", 1000)
	v.SetDefault("history.retention", "720h")
	v.SetDefault("history.cleanup_interval", "1h")

	// App defaults
	v.SetDefault("app.name", "tunnins-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when database is enabled")
	}

	if err := ValidateDevice(&config.Device); err != nil {
		return err
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// ValidateDevice checks a device configuration. An empty host is valid and
// leaves the instance unconnected.
func ValidateDevice(device *DeviceConfig) error {
	switch device.Transport {
	case TransportTCP:
		if device.Host != "" && !IsIPv4(device.Host) {
			return fmt.Errorf("device.host must be an IPv4 address: %q", device.Host)
		}
		if device.Port < 1 || device.Port > 65535 {
			return fmt.Errorf("device.port must be between 1 and 65535: %d", device.Port)
		}
	case TransportSerial:
		if device.Serial.Port == "" {
			return fmt.Errorf("device.serial.port is required for serial transport")
		}
		if device.Serial.BaudRate <= 0 {
			return fmt.Errorf("device.serial.baud_rate must be positive")
		}
	default:
		return fmt.Errorf("device.transport must be one of: [%s %s]", TransportTCP, TransportSerial)
	}

	validEndings := []string{"none", "lf", "crlf", "cr", "null", "lfcr"}
	if !contains(validEndings, device.LineEnding) {
		return fmt.Errorf("device.line_ending must be one of: %v", validEndings)
	}

	return nil
}

// IsIPv4 reports whether host is a dotted-quad IPv4 address
func IsIPv4(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil && !strings.Contains(host, ":")
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Address returns host:port of the TCP device
func (d DeviceConfig) Address() string {
	return net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
