package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kudipay/walletd/internal/adapters/http/common"
	"github.com/kudipay/walletd/internal/domain"
)

// TransactionReader loads a transaction log row by idempotency key.
type TransactionReader interface {
	GetByKey(ctx context.Context, key string) (*domain.TransactionLog, error)
}

// TransactionHandler handles GET /api/v1/transaction/:key.
type TransactionHandler struct {
	logs TransactionReader
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(logs TransactionReader) *TransactionHandler {
	return &TransactionHandler{logs: logs}
}

// TransactionResponse is the wire form of a transaction log row.
type TransactionResponse struct {
	ID             string         `json:"id"`
	IdempotencyKey string         `json:"idempotency_key"`
	Type           string         `json:"type"`
	FromWalletID   string         `json:"from_wallet_id"`
	ToWalletID     string         `json:"to_wallet_id"`
	Amount         string         `json:"amount"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	Description    string         `json:"description,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// GetByKey returns the status of a transfer attempt by its idempotency key.
func (h *TransactionHandler) GetByKey(c *gin.Context) {
	key := c.Param("key")
	if !keyPattern.MatchString(key) {
		common.BadRequest(c, "invalid idempotency key")
		return
	}

	rec, err := h.logs.GetByKey(c.Request.Context(), key)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, TransactionResponse{
		ID:             rec.ID.String(),
		IdempotencyKey: rec.IdempotencyKey,
		Type:           string(rec.Type),
		FromWalletID:   rec.FromWalletID.String(),
		ToWalletID:     rec.ToWalletID.String(),
		Amount:         rec.Amount.String(),
		Currency:       rec.Currency,
		Status:         string(rec.Status),
		Description:    rec.Description,
		ErrorMessage:   rec.ErrorMessage,
		Metadata:       rec.Metadata,
		CompletedAt:    rec.CompletedAt,
		CreatedAt:      rec.CreatedAt,
	})
}
