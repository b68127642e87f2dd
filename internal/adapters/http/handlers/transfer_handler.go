package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/adapters/http/common"
	"github.com/kudipay/walletd/internal/adapters/http/middleware"
	"github.com/kudipay/walletd/internal/application/transfer"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
)

// TransferUseCase is the coordinator surface the handler needs.
type TransferUseCase interface {
	Transfer(ctx context.Context, req *transfer.Request) (*transfer.Result, error)
}

// TransferHandler handles POST /api/v1/wallet/transfer.
type TransferHandler struct {
	coordinator TransferUseCase
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(coordinator TransferUseCase) *TransferHandler {
	return &TransferHandler{coordinator: coordinator}
}

// TransferRequestBody is the wire form of a transfer request. Amounts travel
// as strings; the server never sees a binary float.
type TransferRequestBody struct {
	IdempotencyKey string         `json:"idempotency_key" binding:"required,idempotency_key"`
	FromWalletID   string         `json:"from_wallet_id" binding:"required,uuid"`
	ToWalletID     string         `json:"to_wallet_id" binding:"required,uuid"`
	Amount         string         `json:"amount" binding:"required,money_amount"`
	Currency       string         `json:"currency" binding:"omitempty,currency_code"`
	Description    string         `json:"description" binding:"omitempty,max=500"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Transfer executes one idempotent transfer.
func (h *TransferHandler) Transfer(c *gin.Context) {
	var body TransferRequestBody
	if !BindJSON(c, &body) {
		return
	}

	amount, err := money.Parse(body.Amount)
	if err != nil {
		common.BadRequest(c, "invalid amount: "+err.Error())
		return
	}

	fromID, err := uuid.Parse(body.FromWalletID)
	if err != nil {
		common.BadRequest(c, "invalid from_wallet_id: must be a UUID")
		return
	}
	toID, err := uuid.Parse(body.ToWalletID)
	if err != nil {
		common.BadRequest(c, "invalid to_wallet_id: must be a UUID")
		return
	}

	req := &transfer.Request{
		IdempotencyKey: body.IdempotencyKey,
		FromWalletID:   fromID,
		ToWalletID:     toID,
		Amount:         amount,
		Currency:       body.Currency,
		Description:    body.Description,
		Metadata:       body.Metadata,
	}

	result, err := h.coordinator.Transfer(c.Request.Context(), req)
	if err != nil {
		middleware.RecordTransfer(transferOutcome(err), body.Currency)
		common.HandleDomainError(c, err)
		return
	}

	if result.Replayed {
		middleware.RecordTransferReplay()
	}
	middleware.RecordTransfer("completed", body.Currency)
	common.Success(c, http.StatusOK, result)
}

func transferOutcome(err error) string {
	switch {
	case domainerrors.IsConcurrentInProgress(err), domainerrors.IsVersionConflict(err):
		return "conflict"
	case domainerrors.IsInvalidRequest(err),
		domainerrors.IsInsufficientFunds(err),
		domainerrors.IsInactiveWallet(err),
		domainerrors.IsNotFound(err):
		return "rejected"
	default:
		return "error"
	}
}
