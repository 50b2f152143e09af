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

type KarmaHandler struct {
	karmaService    service.KarmaService
	referralService service.ReferralService
}

func NewKarmaHandler(karmaService service.KarmaService, referralService service.ReferralService) *KarmaHandler {
	return &KarmaHandler{
		karmaService:    karmaService,
		referralService: referralService,
	}
}

func (h *KarmaHandler) GetMyKarma(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	karma, err := h.karmaService.GetKarma(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": karma})
}

func (h *KarmaHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	timeframe := c.DefaultQuery("timeframe", "all_time")

	entries, err := h.karmaService.GetLeaderboard(c.Request.Context(), limit, timeframe)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *KarmaHandler) MarkHelpful(c *gin.Context) {
	markerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.MarkHelpfulRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	if err := h.karmaService.MarkHelpful(c.Request.Context(), req.CommentID, req.AuthorID, markerID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked as helpful"})
}

func (h *KarmaHandler) GetReferralCode(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	code, err := h.referralService.GetOrCreateCode(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *KarmaHandler) ApplyReferralCode(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	if err := h.referralService.ApplyCode(c.Request.Context(), userID, req.Code); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "referral applied"})
}
