package handler

import (
	"net/http"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/service"
	"builders.to/backend/pkg/response"
	pkgvalidator "builders.to/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChannelHandler struct {
	service service.ChannelService
}

func NewChannelHandler(service service.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: service}
}

func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	channel, err := h.service.CreateChannel(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": channel})
}

func (h *ChannelHandler) CreateDM(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateDMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	channel, err := h.service.CreateDM(c.Request.Context(), userID, req.TargetUserID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": channel})
}

func (h *ChannelHandler) Discover(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var categoryID *uuid.UUID
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}
		categoryID = &id
	}

	channels, err := h.service.DiscoverChannels(c.Request.Context(), userID, c.Query("q"), categoryID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": channels})
}

func (h *ChannelHandler) Invite(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	var req dto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	if err := h.service.InviteToChannel(c.Request.Context(), channelID, userID, req.InviteeID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invite sent"})
}

func (h *ChannelHandler) AcceptInvite(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	if err := h.service.AcceptInvite(c.Request.Context(), channelID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invite accepted"})
}

func (h *ChannelHandler) DeclineInvite(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	if err := h.service.DeclineInvite(c.Request.Context(), channelID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invite declined"})
}

func (h *ChannelHandler) Join(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	if err := h.service.JoinChannel(c.Request.Context(), channelID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined channel"})
}

func (h *ChannelHandler) Leave(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	if err := h.service.LeaveChannel(c.Request.Context(), channelID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left channel"})
}

func (h *ChannelHandler) Archive(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	if err := h.service.ArchiveChannel(c.Request.Context(), channelID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "channel archived"})
}

func (h *ChannelHandler) SetRole(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	if err := h.service.SetRole(c.Request.Context(), channelID, userID, req.UserID, req.Role); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

func (h *ChannelHandler) MarkRead(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), channelID, userID, req.MessageID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

func (h *ChannelHandler) UnreadCount(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), channelID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func channelAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return uuid.Nil, uuid.Nil, false
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}

	return channelID, userID, true
}
