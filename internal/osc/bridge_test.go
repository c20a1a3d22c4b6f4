package osc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"tunnins-service/internal/config"
	"tunnins-service/internal/model"
	"tunnins-service/internal/service"
)

type recordingExecutor struct {
	requests chan *service.ActionRequest
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{requests: make(chan *service.ActionRequest, 10)}
}

func (e *recordingExecutor) ExecuteAction(ctx context.Context, req *service.ActionRequest) (*model.CommandRecord, error) {
	e.requests <- req
	return &model.CommandRecord{ActionID: req.ActionID, Source: req.Source}, nil
}

func TestDispatcherRoutes(t *testing.T) {
	tests := []struct {
		name        string
		msg         *osc.Message
		wantAction  string
		wantOptions map[string]string
	}{
		{"send", osc.NewMessage("/tunnins/send", "PLAY%0D"), "send", map[string]string{"id_send": "PLAY%0D"}},
		{"start string args", osc.NewMessage("/tunnins/start", "B", "3"), "start", map[string]string{"row": "B", "column": "3"}},
		{"stop int column", osc.NewMessage("/tunnins/stop", "C", int32(12)), "stop", map[string]string{"row": "C", "column": "12"}},
		{"cut float column", osc.NewMessage("/tunnins/cut", "D", float32(2)), "cut", map[string]string{"row": "D", "column": "2"}},
		{"cut missing args", osc.NewMessage("/tunnins/cut"), "cut", map[string]string{}},
		{"global start", osc.NewMessage("/tunnins/global/start"), "globalStart", map[string]string{}},
		{"global stop", osc.NewMessage("/tunnins/global/stop"), "globalStop", map[string]string{}},
		{"global cut", osc.NewMessage("/tunnins/global/cut"), "globalCut", map[string]string{}},
		{"global status", osc.NewMessage("/tunnins/global/status"), "globalStatusReply", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newRecordingExecutor()
			bridge := NewBridge(&config.OSCConfig{}, exec, zap.NewNop())
			d, err := bridge.Dispatcher()
			if err != nil {
				t.Fatalf("Dispatcher failed: %v", err)
			}

			d.Dispatch(tt.msg)

			select {
			case req := <-exec.requests:
				if req.ActionID != tt.wantAction || req.Source != model.SourceOSC {
					t.Errorf("request = %+v", req)
				}
				if len(req.Options) != len(tt.wantOptions) {
					t.Errorf("options = %v, want %v", req.Options, tt.wantOptions)
				}
				for k, v := range tt.wantOptions {
					if req.Options[k] != v {
						t.Errorf("option %s = %q, want %q", k, req.Options[k], v)
					}
				}
			default:
				t.Fatal("no action executed")
			}

			select {
			case extra := <-exec.requests:
				t.Errorf("unexpected extra action %s", extra.ActionID)
			default:
			}
		})
	}
}

func TestDispatcherIgnoresOtherAddresses(t *testing.T) {
	exec := newRecordingExecutor()
	bridge := NewBridge(&config.OSCConfig{Prefix: "/show/"}, exec, zap.NewNop())
	d, err := bridge.Dispatcher()
	if err != nil {
		t.Fatalf("Dispatcher failed: %v", err)
	}

	d.Dispatch(osc.NewMessage("/tunnins/global/start"))
	d.Dispatch(osc.NewMessage("/show/rewind"))

	select {
	case req := <-exec.requests:
		t.Errorf("unexpected action %s", req.ActionID)
	default:
	}

	d.Dispatch(osc.NewMessage("/show/global/cut"))
	select {
	case req := <-exec.requests:
		if req.ActionID != "globalCut" {
			t.Errorf("action = %s", req.ActionID)
		}
	default:
		t.Error("custom prefix not routed")
	}
}

func TestBridgeOverUDP(t *testing.T) {
	exec := newRecordingExecutor()
	bridge := NewBridge(&config.OSCConfig{Address: "127.0.0.1:0"}, exec, zap.NewNop())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer bridge.Stop()

	addr := bridge.Addr().(*net.UDPAddr)
	client := osc.NewClient("127.0.0.1", addr.Port)
	if err := client.Send(osc.NewMessage("/tunnins/start", "A", int32(5))); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case req := <-exec.requests:
		if req.ActionID != "start" || req.Options["row"] != "A" || req.Options["column"] != "5" {
			t.Errorf("request = %+v", req)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no action received over UDP")
	}

	if err := bridge.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if bridge.Addr() != nil {
		t.Error("Addr should be nil after Stop")
	}
}
