// cmd/tunninsctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tunnins-service/internal/config"
	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/model"
	"tunnins-service/internal/repository"
	"tunnins-service/internal/service"
	"tunnins-service/internal/ui"
	"tunnins-service/internal/utils"
)

const (
	version    = "1.0.0"
	instanceID = "tunninsctl"
)

var (
	configPath  string
	hostFlag    string
	portFlag    int
	lineEnding  string
	transport   string
	serialPort  string
	waitTimeout time.Duration
	debugMode   bool
	panelPoll   time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tunninsctl",
	Short:         "Send control commands to a TunninS show controller",
	Long:          "tunninsctl connects to a TunninS controller, sends one command and disconnects. The panel subcommand keeps the connection open for interactive control.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a custom command",
	Long: `Sends an ASCII command followed by the configured line ending.
Escape sequences such as %0D or %u00E9 are decoded before sending.

Examples:
  tunninsctl send --host 10.0.0.5 "GLOBSTART"
  tunninsctl send --host 10.0.0.5 --line-ending none "PLAY%0D"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), tunnins.ActionSend, map[string]string{tunnins.OptionCommand: args[0]})
	},
}

var globalCmd = &cobra.Command{
	Use:       "global <start|stop|cut|status>",
	Short:     "Send a global transport command",
	ValidArgs: []string{"start", "stop", "cut", "status"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		actionID, err := globalAction(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd.Context(), actionID, nil)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect and print the connection status",
	RunE:  runStatus,
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print config fields, actions and presets as YAML",
	RunE:  runManifest,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports usable by the serial transport",
	RunE:  runPorts,
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive control panel",
	RunE:  runPanelCmd,
}

// cellCommand builds start, stop and cut which all address a cell
func cellCommand(actionID, short string) *cobra.Command {
	return &cobra.Command{
		Use:   actionID + " [row] [column]",
		Short: short,
		Long: fmt.Sprintf(`%s

Row is a letter A-Z and column a number, defaulting to A and 1.

Example:
  tunninsctl %s --host 10.0.0.5 B 3`, short, actionID),
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := cellOptions(args)
			if err != nil {
				return err
			}
			return runAction(cmd.Context(), actionID, options)
		},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", "", "Device IPv4 address")
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 0, "Device TCP port")
	rootCmd.PersistentFlags().StringVarP(&lineEnding, "line-ending", "e", "", "Line ending: none, lf, crlf, cr, null, lfcr")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "", "Transport: tcp or serial")
	rootCmd.PersistentFlags().StringVar(&serialPort, "serial-port", "", "Serial port for the serial transport")
	rootCmd.PersistentFlags().DurationVarP(&waitTimeout, "wait", "w", 5*time.Second, "How long to wait for the connection")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log at debug level to stderr")

	panelCmd.Flags().DurationVar(&panelPoll, "poll", ui.DefaultPollInterval, "Status refresh interval")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(cellCommand(tunnins.ActionStart, "Start a cell"))
	rootCmd.AddCommand(cellCommand(tunnins.ActionStop, "Stop a cell"))
	rootCmd.AddCommand(cellCommand(tunnins.ActionCut, "Cut to a cell"))
	rootCmd.AddCommand(globalCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(panelCmd)
}

// globalAction maps a global subcommand to its action id
func globalAction(name string) (string, error) {
	switch name {
	case "start":
		return tunnins.ActionGlobalStart, nil
	case "stop":
		return tunnins.ActionGlobalStop, nil
	case "cut":
		return tunnins.ActionGlobalCut, nil
	case "status":
		return tunnins.ActionGlobalStatusReply, nil
	default:
		return "", fmt.Errorf("unknown global command %q", name)
	}
}

// cellOptions turns optional [row] [column] arguments into action options
func cellOptions(args []string) (map[string]string, error) {
	options := map[string]string{}

	if len(args) > 0 {
		row := strings.ToUpper(args[0])
		if len(row) != 1 || row[0] < 'A' || row[0] > 'Z' {
			return nil, fmt.Errorf("row must be a letter A-Z, got %q", args[0])
		}
		options[tunnins.OptionRow] = row
	}

	if len(args) > 1 {
		column, err := strconv.Atoi(args[1])
		if err != nil || column < 1 {
			return nil, fmt.Errorf("column must be a positive number, got %q", args[1])
		}
		options[tunnins.OptionColumn] = strconv.Itoa(column)
	}

	return options, nil
}

// applyOverrides copies command line flags over the loaded device config
func applyOverrides(device *config.DeviceConfig) error {
	if transport != "" {
		device.Transport = transport
	}
	if hostFlag != "" {
		device.Host = hostFlag
	}
	if portFlag != 0 {
		device.Port = portFlag
	}
	if lineEnding != "" {
		device.LineEnding = lineEnding
	}
	if serialPort != "" {
		device.Serial.Port = serialPort
	}

	if err := config.ValidateDevice(device); err != nil {
		return fmt.Errorf("invalid device settings: %w", err)
	}
	return nil
}

type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	driver  *tunnins.Driver
	service *service.ControlService
}

// openSession builds the driver and service without connecting
func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyOverrides(&cfg.Device); err != nil {
		return nil, err
	}

	cfg.Logging.Output = "stderr"
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "warn"
	if debugMode {
		cfg.Logging.Level = "debug"
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	drv := tunnins.NewDriver(instanceID, cfg.Device, logger)
	svc := service.NewControlService(drv, repository.NewMemoryCommandRepository(cfg.History.MaxEntries), cfg, logger)

	return &session{cfg: cfg, logger: logger, driver: drv, service: svc}, nil
}

// connect opens the device connection and waits for it to come up
func (s *session) connect(ctx context.Context) error {
	if err := s.driver.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	if err := s.service.WaitForConnection(waitCtx); err != nil {
		return fmt.Errorf("%s: %w", s.service.GetStatus().Address, err)
	}
	return nil
}

func (s *session) close() {
	if err := s.driver.Destroy(); err != nil {
		s.logger.Warn("Device shutdown error", zap.Error(err))
	}
	_ = utils.CloseLogger(s.logger)
}

// signalContext cancels on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runAction(parent context.Context, actionID string, options map[string]string) error {
	ctx, stop := signalContext(parent)
	defer stop()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.connect(ctx); err != nil {
		return err
	}

	record, err := s.service.ExecuteAction(ctx, &service.ActionRequest{
		ActionID: actionID,
		Options:  options,
		Source:   model.SourceCLI,
	})
	if err != nil {
		return err
	}

	fmt.Println(describeRecord(record))
	return nil
}

// describeRecord renders the one-line result of an action
func describeRecord(record *model.CommandRecord) string {
	if record.Status == model.CommandStatusSkipped {
		return fmt.Sprintf("%s: empty payload, nothing sent", record.ActionID)
	}
	return fmt.Sprintf("Sent %q (%d bytes: %s)", record.Command, len(record.Payload)/2, record.Payload)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	connectErr := s.connect(ctx)
	status := s.service.GetStatus()

	fmt.Printf("Transport:   %s\n", status.Transport)
	fmt.Printf("Address:     %s\n", status.Address)
	fmt.Printf("Line ending: %s\n", status.LineEnding)
	fmt.Printf("Status:      %s", status.Status.Level)
	if status.Status.Message != "" {
		fmt.Printf(" (%s)", status.Status.Message)
	}
	fmt.Println()

	return connectErr
}

func runManifest(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(s.service.Manifest())
}

func runPorts(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ports, err := s.service.ListSerialPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}

func runPanelCmd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.driver.Init(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	action := func(actionID string, options map[string]string) (*model.CommandRecord, error) {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()

		return s.service.ExecuteAction(ctx, &service.ActionRequest{
			ActionID: actionID,
			Options:  options,
			Source:   model.SourceCLI,
		})
	}

	return ui.RunPanel(s.service.GetStatus, action, panelPoll)
}
