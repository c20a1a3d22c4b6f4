// internal/osc/bridge.go
package osc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"tunnins-service/internal/config"
	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/model"
	"tunnins-service/internal/service"
	"tunnins-service/internal/utils"
)

const (
	DefaultPrefix = "/tunnins"
	actionTimeout = 10 * time.Second
)

// ActionExecutor runs actions on the device
type ActionExecutor interface {
	ExecuteAction(ctx context.Context, req *service.ActionRequest) (*model.CommandRecord, error)
}

// route binds an OSC address to an action and the option names of its arguments
type route struct {
	suffix  string
	action  string
	options []string
}

var routes = []route{
	{"/send", tunnins.ActionSend, []string{tunnins.OptionCommand}},
	{"/start", tunnins.ActionStart, []string{tunnins.OptionRow, tunnins.OptionColumn}},
	{"/stop", tunnins.ActionStop, []string{tunnins.OptionRow, tunnins.OptionColumn}},
	{"/cut", tunnins.ActionCut, []string{tunnins.OptionRow, tunnins.OptionColumn}},
	{"/global/start", tunnins.ActionGlobalStart, nil},
	{"/global/stop", tunnins.ActionGlobalStop, nil},
	{"/global/cut", tunnins.ActionGlobalCut, nil},
	{"/global/status", tunnins.ActionGlobalStatusReply, nil},
}

// Bridge is a UDP OSC server that turns messages into device actions
type Bridge struct {
	address  string
	prefix   string
	executor ActionExecutor
	logger   *utils.ServiceLogger

	mu   sync.Mutex
	conn net.PacketConn
	wg   sync.WaitGroup
}

// NewBridge creates a new OSC bridge
func NewBridge(cfg *config.OSCConfig, executor ActionExecutor, logger *zap.Logger) *Bridge {
	prefix := strings.TrimSuffix(cfg.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Bridge{
		address:  cfg.Address,
		prefix:   prefix,
		executor: executor,
		logger:   utils.NewServiceLogger(logger, "osc-bridge"),
	}
}

// Dispatcher returns a dispatcher with one handler per supported address
func (b *Bridge) Dispatcher() (*osc.StandardDispatcher, error) {
	d := osc.NewStandardDispatcher()

	for _, r := range routes {
		address := b.prefix + r.suffix
		if err := d.AddMsgHandler(address, b.handler(address, r)); err != nil {
			return nil, fmt.Errorf("failed to register OSC address %s: %w", address, err)
		}
	}

	return d, nil
}

func (b *Bridge) handler(address string, r route) osc.HandlerFunc {
	return func(msg *osc.Message) {
		// the dispatcher matches unanchored patterns
		if msg.Address != address {
			return
		}

		options := make(map[string]string, len(r.options))
		for i, name := range r.options {
			if i < len(msg.Arguments) {
				options[name] = argString(msg.Arguments[i])
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		record, err := b.executor.ExecuteAction(ctx, &service.ActionRequest{
			ActionID: r.action,
			Options:  options,
			Source:   model.SourceOSC,
		})
		if err != nil {
			b.logger.Warn("OSC action failed",
				zap.String("address", msg.Address),
				zap.String("action", r.action),
				zap.Error(err),
			)
			return
		}

		b.logger.Debug("OSC action executed",
			zap.String("address", msg.Address),
			zap.String("command", record.Command),
		)
	}
}

// argString renders an OSC argument as an option value
func argString(arg interface{}) string {
	switch v := arg.(type) {
	case string:
		return v
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Start listens on the configured UDP address and serves in the background
func (b *Bridge) Start() error {
	dispatcher, err := b.Dispatcher()
	if err != nil {
		return err
	}

	conn, err := net.ListenPacket("udp", b.address)
	if err != nil {
		return fmt.Errorf("failed to listen for OSC on %s: %w", b.address, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	server := &osc.Server{Addr: b.address, Dispatcher: dispatcher}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			// Serve returns on the first undecodable packet
			err := server.Serve(conn)
			if errors.Is(err, net.ErrClosed) || b.Addr() == nil {
				return
			}
			b.logger.Warn("Dropped OSC packet", zap.Error(err))
		}
	}()

	b.logger.Info("OSC bridge listening",
		zap.String("address", conn.LocalAddr().String()),
		zap.String("prefix", b.prefix),
	)
	return nil
}

// Addr returns the bound address, or nil before Start
func (b *Bridge) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	return b.conn.LocalAddr()
}

// Stop closes the listener and waits for the server loop to exit
func (b *Bridge) Stop() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	b.wg.Wait()
	b.logger.Info("OSC bridge stopped")
	return err
}
