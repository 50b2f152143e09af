package handler

import (
	"net/http"
	"strconv"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/internal/service"
	"builders.to/backend/pkg/response"
	pkgvalidator "builders.to/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LedgerHandler struct {
	service service.LedgerService
}

func NewLedgerHandler(service service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// Credit is admin-only (wired behind RequireAdmin); normal flows credit
// through referral/karma services, not this endpoint.
func (h *LedgerHandler) Credit(c *gin.Context) {
	var req dto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	entry, err := h.service.Credit(c.Request.Context(), req.UserID, req.Amount, req.Type, req.Description, req.Metadata)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (h *LedgerHandler) Debit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pkgvalidator.FormatValidationError(err)})
		return
	}

	entry, err := h.service.Debit(c.Request.Context(), userID, req.Amount, req.Type, req.Description, req.Metadata)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{UserID: userID, Balance: balance})
}

func (h *LedgerHandler) GetHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	cursor := c.Query("cursor")

	var txType *model.TransactionType
	if t := c.Query("type"); t != "" {
		typ := model.TransactionType(t)
		txType = &typ
	}

	history, err := h.service.GetTransactionHistory(c.Request.Context(), userID, limit, cursor, txType)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetUserBalance lets admins inspect any account.
func (h *LedgerHandler) GetUserBalance(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{UserID: targetID, Balance: balance})
}
