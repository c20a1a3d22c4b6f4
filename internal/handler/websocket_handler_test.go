package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tunnins-service/internal/model"
)

const wsTestTimeout = 3 * time.Second

func TestEventBusDistributes(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	status := bus.Subscribe(EventStatusChanged)
	all := bus.SubscribeAll()

	bus.Publish(Event{Type: EventDataReceived, Source: "test"})
	bus.Publish(Event{Type: EventStatusChanged, Source: "test"})

	select {
	case event := <-status:
		if event.Type != EventStatusChanged || event.Timestamp.IsZero() {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(wsTestTimeout):
		t.Fatal("typed subscriber got nothing")
	}

	got := []string{}
	for len(got) < 2 {
		select {
		case event := <-all:
			got = append(got, event.Type)
		case <-time.After(wsTestTimeout):
			t.Fatalf("all-events subscriber got %v", got)
		}
	}
	if got[0] != EventDataReceived || got[1] != EventStatusChanged {
		t.Errorf("order = %v", got)
	}

	select {
	case event := <-status:
		t.Errorf("typed subscriber received %s", event.Type)
	default:
	}
}

func TestDeviceEventHandlerPublishes(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()
	events := bus.SubscribeAll()

	deh := NewDeviceEventHandler(bus, zap.NewNop())
	deh.OnStatusChanged("tunnins", model.ConnectionStatus{Level: model.StatusWarning}, model.ConnectionStatus{Level: model.StatusOK})
	deh.OnDataReceived("tunnins", []byte("OK\r\n"))
	deh.OnCommandExecuted(&model.CommandRecord{ActionID: "globalStart", Source: model.SourceOSC})

	want := []string{EventStatusChanged, EventDataReceived, EventCommandExecuted}
	for _, wantType := range want {
		select {
		case event := <-events:
			if event.Type != wantType {
				t.Fatalf("event type = %s, want %s", event.Type, wantType)
			}
			if wantType == EventDataReceived && event.Data["data"] != "4f4b0d0a" {
				t.Errorf("data = %v", event.Data["data"])
			}
			if wantType == EventCommandExecuted && event.Source != "OSC" {
				t.Errorf("source = %s", event.Source)
			}
		case <-time.After(wsTestTimeout):
			t.Fatalf("missing %s event", wantType)
		}
	}
}

func TestConnectionManagerUnregisteredClient(t *testing.T) {
	cm := NewConnectionManager()
	client := &Client{ID: "c1", Send: make(chan []byte, 1)}

	cm.Register(client)
	if !cm.Send(client, []byte("a")) {
		t.Fatal("send to registered client failed")
	}
	if cm.Send(client, []byte("b")) {
		t.Error("send to a full buffer should report false")
	}

	cm.Unregister(client)
	cm.Unregister(client)
	if cm.Send(client, []byte("c")) {
		t.Error("send to unregistered client should report false")
	}
	if n := cm.Broadcast([]byte("d")); n != 0 {
		t.Errorf("broadcast delivered to %d clients", n)
	}
	if stats := cm.GetStats(); stats.TotalConnections != 0 {
		t.Errorf("connections = %d", stats.TotalConnections)
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{nil, "http://panel.local", true},
		{[]string{"http://panel.local"}, "http://panel.local", true},
		{[]string{"http://panel.local"}, "http://other.local", false},
		{[]string{"*"}, "http://other.local", true},
		{[]string{"http://panel.local"}, "", true},
	}

	for _, tt := range tests {
		if got := originAllowed(tt.allowed, tt.origin); got != tt.want {
			t.Errorf("originAllowed(%v, %q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
		}
	}
}

// readUntil reads messages until one of the given type arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) WebSocketMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(wsTestTimeout))
	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestWebSocketEvents(t *testing.T) {
	svc, d := newTestControlService(true)

	bus := NewEventBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()
	svc.SetCommandListener(NewDeviceEventHandler(bus, zap.NewNop()))

	wsHandler := NewWebSocketHandler(svc, bus, nil, zap.NewNop())
	wsHandler.Start()
	defer wsHandler.Stop()

	router := gin.New()
	wsHandler.RegisterRoutes(router.Group("/ws"))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readUntil(t, conn, "initial_status")
	if initial.Data == nil {
		t.Error("initial status has no data")
	}

	conn.WriteJSON(WebSocketMessage{Type: "ping", RequestID: "p1"})
	if pong := readUntil(t, conn, "pong"); pong.RequestID != "p1" {
		t.Errorf("pong request id = %q", pong.RequestID)
	}

	conn.WriteJSON(WebSocketMessage{
		Type:      "execute_action",
		RequestID: "a1",
		Data: map[string]interface{}{
			"action_id": "stop",
			"options":   map[string]string{"row": "D", "column": "7"},
		},
	})

	// the command_executed event and the action_result reply may arrive in either order
	var result WebSocketMessage
	seenEvent := false
	conn.SetReadDeadline(time.Now().Add(wsTestTimeout))
	for result.Type == "" || !seenEvent {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for action result: %v", err)
		}
		switch msg.Type {
		case "action_result":
			result = msg
		case EventCommandExecuted:
			seenEvent = true
		}
	}
	data, _ := result.Data.(map[string]interface{})
	if result.RequestID != "a1" || data["success"] != true {
		t.Fatalf("action result = %+v", result)
	}
	raw, _ := json.Marshal(data["command"])
	var record model.CommandRecord
	json.Unmarshal(raw, &record)
	if record.Command != "STOP [D7]" || record.Source != model.SourceWebSocket {
		t.Errorf("record = %+v", record)
	}
	if n := d.sentCount(); n != 1 {
		t.Errorf("driver sent %d payloads", n)
	}

	conn.WriteJSON(WebSocketMessage{Type: "execute_action", RequestID: "a2", Data: map[string]interface{}{}})
	if errMsg := readUntil(t, conn, "error"); errMsg.RequestID != "a2" {
		t.Errorf("error request id = %q", errMsg.RequestID)
	}

	bus.Publish(Event{Type: EventStatusChanged, Source: "tunnins", Data: map[string]interface{}{"level": "error"}})
	readUntil(t, conn, EventStatusChanged)
}
