package handler

import (
	"net/http"
	"strconv"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/service"
	"builders.to/backend/pkg/response"
	pkgvalidator "builders.to/backend/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	service service.ModerationService
}

func NewModerationHandler(service service.ModerationService) *ModerationHandler {
	return &ModerationHandler{service: service}
}

func (h *ModerationHandler) PerformAction(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	var req dto.ModActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	action, err := h.service.PerformModAction(c.Request.Context(), channelID, userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": action})
}

func (h *ModerationHandler) GetAuditLog(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	actions, err := h.service.GetChannelAuditLog(c.Request.Context(), channelID, userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": actions})
}
