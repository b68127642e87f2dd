package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/adapters/http/common"
	"github.com/kudipay/walletd/internal/domain"
)

// WalletReader is the read surface for wallet endpoints.
type WalletReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
}

// LedgerReader lists a wallet's ledger entries.
type LedgerReader interface {
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]*domain.LedgerEntry, error)
}

// WalletHandler handles the wallet read endpoints.
type WalletHandler struct {
	wallets WalletReader
	ledger  LedgerReader
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallets WalletReader, ledger LedgerReader) *WalletHandler {
	return &WalletHandler{wallets: wallets, ledger: ledger}
}

// WalletResponse is the wire form of a wallet.
type WalletResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Type      string    `json:"type"`
	Balance   string    `json:"balance"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID,
		Type:      string(w.Type),
		Balance:   w.Balance.String(),
		Currency:  w.Currency,
		Status:    string(w.Status),
		Version:   w.Version,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// LedgerEntryResponse is the wire form of one ledger entry.
type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	BalanceAfter  string    `json:"balance_after"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Get handles GET /api/v1/wallet/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	id, ok := parseWalletID(c)
	if !ok {
		return
	}

	w, err := h.wallets.Get(c.Request.Context(), id)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, toWalletResponse(w))
}

// Ledger handles GET /api/v1/wallet/:id/ledger.
func (h *WalletHandler) Ledger(c *gin.Context) {
	id, ok := parseWalletID(c)
	if !ok {
		return
	}

	// The wallet must exist even when it has no entries yet.
	if _, err := h.wallets.Get(c.Request.Context(), id); err != nil {
		common.HandleDomainError(c, err)
		return
	}

	entries, err := h.ledger.ListByWallet(c.Request.Context(), id, parseLimit(c, 50))
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			ID:            e.ID.String(),
			TransactionID: e.TransactionID.String(),
			Type:          string(e.Type),
			Amount:        e.Amount.String(),
			Currency:      e.Currency,
			BalanceAfter:  e.BalanceAfter.String(),
			Description:   e.Description,
			CreatedAt:     e.CreatedAt,
		})
	}

	common.Success(c, http.StatusOK, out)
}

func parseWalletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.BadRequest(c, "invalid wallet id: must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 500 {
		return fallback
	}
	return limit
}
