package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunnins-service/internal/config"
	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/model"
	"tunnins-service/internal/protocol"
	"tunnins-service/internal/repository"
	"tunnins-service/internal/service"
	"tunnins-service/pkg/driver"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubDriver builds real commands but never touches the network
type stubDriver struct {
	mu        sync.Mutex
	cfg       config.DeviceConfig
	connected bool
	sent      [][]byte
}

func newStubDriver(connected bool) *stubDriver {
	return &stubDriver{
		cfg: config.DeviceConfig{
			Transport:  config.TransportTCP,
			Host:       "10.0.0.5",
			Port:       config.DefaultDevicePort,
			LineEnding: tunnins.DefaultLineEnding,
		},
		connected: connected,
	}
}

func (s *stubDriver) Init(ctx context.Context) error      { return nil }
func (s *stubDriver) Reconnect(ctx context.Context) error { return nil }
func (s *stubDriver) Destroy() error                      { return nil }

func (s *stubDriver) UpdateConfig(ctx context.Context, cfg config.DeviceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func (s *stubDriver) ExecuteAction(ctx context.Context, action *driver.Action) (*driver.ActionResult, error) {
	cmd, err := tunnins.BuildCommand(action)
	if err != nil {
		return nil, err
	}
	ending, _ := tunnins.LookupLineEnding(s.Config().LineEnding)
	result := &driver.ActionResult{ActionID: action.ID, Command: cmd.String(), Payload: cmd.Encode(ending)}

	if len(result.Payload) == 0 {
		result.Skipped = true
		return result, nil
	}
	if !s.connected {
		return result, tunnins.ErrNotConnected
	}

	s.mu.Lock()
	s.sent = append(s.sent, result.Payload)
	s.mu.Unlock()
	result.Sent = true
	return result, nil
}

func (s *stubDriver) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *stubDriver) Status() model.ConnectionStatus {
	if s.connected {
		return model.ConnectionStatus{Level: model.StatusOK, Connected: true}
	}
	return model.ConnectionStatus{Level: model.StatusWarning, Message: "Connecting"}
}

func (s *stubDriver) Config() config.DeviceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *stubDriver) Stats() protocol.ProtocolStats               { return protocol.ProtocolStats{} }
func (s *stubDriver) ConfigFields() []driver.ConfigField          { return tunnins.ConfigFields() }
func (s *stubDriver) Actions() []driver.ActionDefinition          { return tunnins.ActionDefinitions() }
func (s *stubDriver) Presets() []driver.Preset                    { return tunnins.PresetDefinitions() }
func (s *stubDriver) SetEventHandler(handler driver.EventHandler) {}

func newTestControlService(connected bool) (*service.ControlService, *stubDriver) {
	d := newStubDriver(connected)
	cfg := &config.Config{App: config.AppConfig{Name: "tunnins-service", Version: "1.0.0"}}
	svc := service.NewControlService(d, repository.NewMemoryCommandRepository(100), cfg, zap.NewNop())
	return svc, d
}

func newTestRouter(svc *service.ControlService) *gin.Engine {
	router := gin.New()
	api := router.Group("/api/v1")
	NewControlHandler(svc, zap.NewNop()).RegisterRoutes(api)
	NewCommandHandler(svc, zap.NewNop()).RegisterRoutes(api)
	cfg := &config.Config{App: config.AppConfig{Name: "tunnins-service", Version: "1.0.0"}}
	NewHealthHandler(nil, svc, cfg, zap.NewNop()).RegisterRoutes(router)
	return router
}

// apiResponse mirrors utils.APIResponse with a raw payload
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestExecuteActionEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		path       string
		body       interface{}
		wantCode   int
		wantStatus model.CommandStatus
		wantCmd    string
	}{
		{"global start", true, "/api/v1/actions/globalStart", nil, http.StatusOK, model.CommandStatusSent, "GLOBSTART"},
		{"cell with options", true, "/api/v1/actions/start", map[string]interface{}{"options": map[string]string{"row": "B", "column": "4"}}, http.StatusOK, model.CommandStatusSent, "START [B4]"},
		{"cell defaults", true, "/api/v1/actions/cut", nil, http.StatusOK, model.CommandStatusSent, "CUT [A1]"},
		{"not connected", false, "/api/v1/actions/globalStop", nil, http.StatusServiceUnavailable, model.CommandStatusNotConnected, "GLOBSTOP"},
		{"unknown action", true, "/api/v1/actions/rewind", nil, http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestControlService(tt.connected)
			router := newTestRouter(svc)

			w, resp := doRequest(t, router, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantStatus == "" {
				return
			}

			var record model.CommandRecord
			if err := json.Unmarshal(resp.Data, &record); err != nil {
				t.Fatalf("decode record: %v", err)
			}
			if record.Status != tt.wantStatus || record.Command != tt.wantCmd {
				t.Errorf("record = %+v", record)
			}
			if record.Source != model.SourceAPI {
				t.Errorf("source = %s, want API", record.Source)
			}
		})
	}
}

func TestExecuteActionInvalidBody(t *testing.T) {
	svc, _ := newTestControlService(true)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/send", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestSendUnescapesCommand(t *testing.T) {
	svc, d := newTestControlService(true)
	router := newTestRouter(svc)

	body := map[string]interface{}{"options": map[string]string{"id_send": "PING%20A%0D"}}
	w, _ := doRequest(t, router, http.MethodPost, "/api/v1/actions/send", body)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}

	if len(d.sent) != 1 || string(d.sent[0]) != "PING A\r\r\n" {
		t.Errorf("sent = %q", d.sent)
	}
}

func TestConfigEndpoints(t *testing.T) {
	svc, d := newTestControlService(true)
	router := newTestRouter(svc)

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET config code = %d", w.Code)
	}
	var cfg config.DeviceConfig
	json.Unmarshal(resp.Data, &cfg)
	if cfg.Host != "10.0.0.5" || cfg.LineEnding != "crlf" {
		t.Errorf("config = %+v", cfg)
	}

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{"change line ending", map[string]interface{}{"id_end": "lf"}, http.StatusOK},
		{"change host", map[string]interface{}{"host": "192.168.0.44"}, http.StatusOK},
		{"invalid host", map[string]interface{}{"host": "tunnins.local"}, http.StatusUnprocessableEntity},
		{"invalid port", map[string]interface{}{"port": 0}, http.StatusUnprocessableEntity},
		{"invalid line ending", map[string]interface{}{"id_end": "tab"}, http.StatusUnprocessableEntity},
		{"wrong type", map[string]interface{}{"port": "abc"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(t, router, http.MethodPut, "/api/v1/config", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}

	got := d.Config()
	if got.Host != "192.168.0.44" || got.LineEnding != "lf" || got.Port != config.DefaultDevicePort {
		t.Errorf("merged config = %+v", got)
	}
}

func TestDefinitionEndpoints(t *testing.T) {
	svc, _ := newTestControlService(true)
	router := newTestRouter(svc)

	tests := []struct {
		path      string
		wantCount int
	}{
		{"/api/v1/actions", 8},
		{"/api/v1/presets", 0},
		{"/api/v1/config/fields", len(tunnins.ConfigFields())},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, resp := doRequest(t, router, http.MethodGet, tt.path, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("code = %d", w.Code)
			}
			var items []json.RawMessage
			if err := json.Unmarshal(resp.Data, &items); err != nil {
				t.Fatalf("data is not a list: %s", resp.Data)
			}
			if len(items) != tt.wantCount {
				t.Errorf("got %d items, want %d", len(items), tt.wantCount)
			}
		})
	}

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	var status service.StatusResponse
	json.Unmarshal(resp.Data, &status)
	if status.Address != "10.0.0.5:22222" || status.Status.Level != model.StatusOK {
		t.Errorf("status = %+v", status)
	}
}

func TestCommandEndpoints(t *testing.T) {
	svc, _ := newTestControlService(true)
	router := newTestRouter(svc)

	_, resp := doRequest(t, router, http.MethodPost, "/api/v1/actions/globalCut", nil)
	var record model.CommandRecord
	json.Unmarshal(resp.Data, &record)
	doRequest(t, router, http.MethodPost, "/api/v1/actions/globalStart", nil)

	w, resp := doRequest(t, router, http.MethodGet, "/api/v1/commands?action_id=globalCut", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code = %d", w.Code)
	}
	var list struct {
		Commands   []model.CommandRecord    `json:"commands"`
		Pagination service.PaginationResult `json:"pagination"`
	}
	json.Unmarshal(resp.Data, &list)
	if len(list.Commands) != 1 || list.Pagination.Total != 1 || list.Commands[0].ID != record.ID {
		t.Errorf("list = %+v", list)
	}

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"existing", "/api/v1/commands/" + record.ID.String(), http.StatusOK},
		{"unknown", "/api/v1/commands/" + uuid.New().String(), http.StatusNotFound},
		{"invalid id", "/api/v1/commands/not-a-uuid", http.StatusBadRequest},
		{"invalid date", "/api/v1/commands?start_date=yesterday", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(t, router, http.MethodGet, tt.path, nil)
			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		wantStatus string
	}{
		{"connected", true, "healthy"},
		{"connecting", false, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestControlService(tt.connected)
			router := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("code = %d", w.Code)
			}
			var health HealthResponse
			json.Unmarshal(w.Body.Bytes(), &health)
			if health.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", health.Status, tt.wantStatus)
			}
			if _, ok := health.Checks["database"]; ok {
				t.Error("database check reported without a database")
			}
		})
	}

	svc, _ := newTestControlService(true)
	router := newTestRouter(svc)
	for _, path := range []string{"/live", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s code = %d", path, w.Code)
		}
	}
}
