// internal/handler/control_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/model"
	"tunnins-service/internal/service"
	"tunnins-service/internal/utils"
)

// ControlHandler handles instance control HTTP requests
type ControlHandler struct {
	controlService *service.ControlService
	logger         *utils.ServiceLogger
}

// NewControlHandler creates a new control handler
func NewControlHandler(controlService *service.ControlService, logger *zap.Logger) *ControlHandler {
	return &ControlHandler{
		controlService: controlService,
		logger:         utils.NewServiceLogger(logger, "control-handler"),
	}
}

// RegisterRoutes registers control routes
func (h *ControlHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.POST("/connection/reconnect", h.Reconnect)

	cfg := router.Group("/config")
	{
		cfg.GET("", h.GetConfig)
		cfg.PUT("", h.UpdateConfig)
		cfg.GET("/fields", h.ListConfigFields)
	}
	router.GET("/serial-ports", h.ListSerialPorts)

	actions := router.Group("/actions")
	{
		actions.GET("", h.ListActions)
		actions.POST("/:action_id", h.ExecuteAction)
	}
	router.GET("/presets", h.ListPresets)
	router.GET("/manifest", h.GetManifest)
}

// GetStatus returns the instance status
// @Summary Get instance status
// @Description Get the connection status, transport address, line ending and transport statistics
// @Tags Control
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.StatusResponse} "Status retrieved successfully"
// @Router /api/v1/status [get]
func (h *ControlHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved successfully", h.controlService.GetStatus())
}

// Reconnect tears down the connection and runs the connection sequence again
// @Summary Reconnect
// @Description Close the current connection and connect again with the current configuration
// @Tags Control
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.StatusResponse} "Reconnect started"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /api/v1/connection/reconnect [post]
func (h *ControlHandler) Reconnect(c *gin.Context) {
	status, err := h.controlService.Reconnect(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to reconnect", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to reconnect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reconnect started", status)
}

// GetConfig returns the device configuration
// @Summary Get device configuration
// @Tags Config
// @Produce json
// @Success 200 {object} utils.APIResponse{data=config.DeviceConfig} "Configuration retrieved successfully"
// @Router /api/v1/config [get]
func (h *ControlHandler) GetConfig(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Configuration retrieved successfully", h.controlService.GetConfig())
}

// UpdateConfig applies a new device configuration and reconnects
// @Summary Update device configuration
// @Description Merge the given fields into the device configuration, validate it and reconnect
// @Tags Config
// @Accept json
// @Produce json
// @Param request body config.DeviceConfig true "Device configuration"
// @Success 200 {object} utils.APIResponse{data=config.DeviceConfig} "Configuration updated successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 422 {object} utils.APIResponse "Invalid configuration"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /api/v1/config [put]
func (h *ControlHandler) UpdateConfig(c *gin.Context) {
	cfg := h.controlService.GetConfig()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.controlService.UpdateConfig(c.Request.Context(), cfg)
	if err != nil {
		if errors.Is(err, service.ErrInvalidConfig) {
			utils.ErrorResponse(c, http.StatusUnprocessableEntity, "Invalid configuration", err)
			return
		}
		h.logger.Error("Failed to update configuration", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update configuration", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Configuration updated successfully", updated)
}

// ListConfigFields returns the configuration field definitions
// @Summary List configuration fields
// @Tags Config
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]driver.ConfigField} "Configuration fields retrieved successfully"
// @Router /api/v1/config/fields [get]
func (h *ControlHandler) ListConfigFields(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Configuration fields retrieved successfully", h.controlService.ListConfigFields())
}

// ListSerialPorts returns the serial ports present on the host
// @Summary List serial ports
// @Tags Config
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]string} "Serial ports retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /api/v1/serial-ports [get]
func (h *ControlHandler) ListSerialPorts(c *gin.Context) {
	ports, err := h.controlService.ListSerialPorts()
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}
	if ports == nil {
		ports = []string{}
	}

	utils.SuccessResponse(c, http.StatusOK, "Serial ports retrieved successfully", ports)
}

// ListActions returns the action definitions
// @Summary List actions
// @Tags Actions
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]driver.ActionDefinition} "Actions retrieved successfully"
// @Router /api/v1/actions [get]
func (h *ControlHandler) ListActions(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Actions retrieved successfully", h.controlService.ListActions())
}

// ExecuteAction builds the command for an action and sends it to the device
// @Summary Execute action
// @Description Build the ASCII command for the action, append the configured line ending and send it
// @Tags Actions
// @Accept json
// @Produce json
// @Param action_id path string true "Action ID" Enums(send, start, stop, cut, globalStart, globalStop, globalCut, globalStatusReply)
// @Param request body object{options=map[string]string} false "Action options"
// @Success 200 {object} utils.APIResponse{data=model.CommandRecord} "Action executed"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 404 {object} utils.APIResponse "Unknown action"
// @Failure 503 {object} utils.APIResponse{data=model.CommandRecord} "Device not connected"
// @Router /api/v1/actions/{action_id} [post]
func (h *ControlHandler) ExecuteAction(c *gin.Context) {
	var body struct {
		Options map[string]string `json:"options"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	record, err := h.controlService.ExecuteAction(c.Request.Context(), &service.ActionRequest{
		ActionID: c.Param("action_id"),
		Options:  body.Options,
		Source:   model.SourceAPI,
	})
	if err != nil {
		switch {
		case errors.Is(err, tunnins.ErrUnknownAction):
			utils.ErrorResponse(c, http.StatusNotFound, "Unknown action", err)
		case errors.Is(err, tunnins.ErrNotConnected):
			utils.ErrorResponseWithData(c, http.StatusServiceUnavailable, "Device not connected", err, record)
		default:
			h.logger.Error("Failed to execute action", zap.Error(err))
			utils.ErrorResponseWithData(c, http.StatusInternalServerError, "Failed to execute action", err, record)
		}
		return
	}

	message := "Action executed"
	if record.Status == model.CommandStatusSkipped {
		message = "Empty payload, nothing sent"
	}
	utils.SuccessResponse(c, http.StatusOK, message, record)
}

// ListPresets returns the preset definitions
// @Summary List presets
// @Tags Actions
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]driver.Preset} "Presets retrieved successfully"
// @Router /api/v1/presets [get]
func (h *ControlHandler) ListPresets(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Presets retrieved successfully", h.controlService.ListPresets())
}

// GetManifest returns config fields, actions and presets in one document
// @Summary Get manifest
// @Tags Control
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.Manifest} "Manifest retrieved successfully"
// @Router /api/v1/manifest [get]
func (h *ControlHandler) GetManifest(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Manifest retrieved successfully", h.controlService.Manifest())
}
