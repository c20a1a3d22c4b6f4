package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tunnins-service/internal/config"
	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/handler"
	"tunnins-service/internal/middleware"
	"tunnins-service/internal/repository"
	"tunnins-service/internal/service"
)

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:    config.AppConfig{Name: "tunnins-service", Version: "1.0.0", Environment: "development"},
		Device: config.DeviceConfig{Transport: config.TransportTCP, Port: config.DefaultDevicePort, LineEnding: "crlf"},
	}

	// no host: the driver stays in "Connecting" without dialing
	d := tunnins.NewDriver("tunnins", cfg.Device, zap.NewNop())
	if err := d.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Destroy()

	svc := service.NewControlService(d, repository.NewMemoryCommandRepository(10), cfg, zap.NewNop())
	bus := handler.NewEventBus(zap.NewNop())
	ws := handler.NewWebSocketHandler(svc, bus, nil, zap.NewNop())

	router := NewRouter(cfg, zap.NewNop(), nil, svc, ws).SetupRouter()

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/status", http.StatusOK},
		{http.MethodGet, "/api/v1/actions", http.StatusOK},
		{http.MethodGet, "/api/v1/manifest", http.StatusOK},
		{http.MethodPost, "/api/v1/actions/globalStart", http.StatusServiceUnavailable},
		{http.MethodGet, "/docs", http.StatusMovedPermanently},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}
}
