package handler

import (
	"net/http"
	"strconv"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/service"
	"builders.to/backend/pkg/response"
	pkgvalidator "builders.to/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	service service.MessageService
}

func NewMessageHandler(service service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) PostMessage(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	message, err := h.service.PostMessage(c.Request.Context(), channelID, userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": message})
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	channelID, userID, ok := channelAndUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, err := h.service.ListMessages(c.Request.Context(), channelID, userID, limit, c.Query("cursor"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *MessageHandler) GetThread(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, err := h.service.GetThread(c.Request.Context(), messageID, userID, limit, c.Query("cursor"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	var req dto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	message, err := h.service.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": message})
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), messageID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

func (h *MessageHandler) PinMessage(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	if err := h.service.PinMessage(c.Request.Context(), messageID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message pinned"})
}

func (h *MessageHandler) UnpinMessage(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	if err := h.service.UnpinMessage(c.Request.Context(), messageID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message unpinned"})
}

func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	var req dto.ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	present, err := h.service.ToggleReaction(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"present": present})
}

func (h *MessageHandler) ToggleBookmark(c *gin.Context) {
	messageID, userID, ok := messageAndUser(c)
	if !ok {
		return
	}

	present, err := h.service.ToggleBookmark(c.Request.Context(), messageID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"present": present})
}

func (h *MessageHandler) ListBookmarks(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	bookmarks, err := h.service.ListBookmarks(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bookmarks})
}

func (h *MessageHandler) Search(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var channelID *uuid.UUID
	if raw := c.Query("channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
			return
		}
		channelID = &id
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	results, err := h.service.SearchMessages(c.Request.Context(), userID, c.Query("q"), channelID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

func messageAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return uuid.Nil, uuid.Nil, false
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}

	return messageID, userID, true
}
