// internal/handler/command_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunnins-service/internal/model"
	"tunnins-service/internal/repository"
	"tunnins-service/internal/service"
	"tunnins-service/internal/utils"
)

// CommandHandler serves the command log
type CommandHandler struct {
	controlService *service.ControlService
	logger         *utils.ServiceLogger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(controlService *service.ControlService, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		controlService: controlService,
		logger:         utils.NewServiceLogger(logger, "command-handler"),
	}
}

// RegisterRoutes registers command log routes
func (h *CommandHandler) RegisterRoutes(router *gin.RouterGroup) {
	commands := router.Group("/commands")
	{
		commands.GET("", h.ListCommands)
		commands.GET("/:id", h.GetCommand)
	}
}

// ListCommands lists recorded commands with filtering and pagination
// @Summary List commands
// @Description Get the command log, newest first
// @Tags Commands
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param action_id query string false "Filter by action ID"
// @Param status query string false "Filter by status" Enums(SENT, SKIPPED, NOT_CONNECTED, FAILED)
// @Param source query string false "Filter by source" Enums(API, WEBSOCKET, OSC, CLI)
// @Param start_date query string false "Start date (RFC3339)"
// @Param end_date query string false "End date (RFC3339)"
// @Success 200 {object} utils.APIResponse{data=object{commands=[]model.CommandRecord,pagination=service.PaginationResult}} "Commands retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid query"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /api/v1/commands [get]
func (h *CommandHandler) ListCommands(c *gin.Context) {
	filter := &repository.CommandFilter{}

	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if perPage := c.Query("per_page"); perPage != "" {
		if pp, err := strconv.Atoi(perPage); err == nil && pp > 0 {
			filter.PerPage = pp
		}
	}

	if actionID := c.Query("action_id"); actionID != "" {
		filter.ActionID = &actionID
	}
	if status := c.Query("status"); status != "" {
		s := model.CommandStatus(status)
		filter.Status = &s
	}
	if source := c.Query("source"); source != "" {
		s := model.CommandSource(source)
		filter.Source = &s
	}

	if startDate := c.Query("start_date"); startDate != "" {
		t, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid start_date", err)
			return
		}
		filter.StartDate = &t
	}
	if endDate := c.Query("end_date"); endDate != "" {
		t, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid end_date", err)
			return
		}
		filter.EndDate = &t
	}

	records, pagination, err := h.controlService.ListCommands(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list commands", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list commands", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Commands retrieved successfully", gin.H{
		"commands":   records,
		"pagination": pagination,
	})
}

// GetCommand returns one command record
// @Summary Get command
// @Tags Commands
// @Produce json
// @Param id path string true "Command ID"
// @Success 200 {object} utils.APIResponse{data=model.CommandRecord} "Command retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid command ID"
// @Failure 404 {object} utils.APIResponse "Command not found"
// @Router /api/v1/commands/{id} [get]
func (h *CommandHandler) GetCommand(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid command ID", err)
		return
	}

	record, err := h.controlService.GetCommand(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Command not found", err)
			return
		}
		h.logger.Error("Failed to get command", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get command", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command retrieved successfully", record)
}
