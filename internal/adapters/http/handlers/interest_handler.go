package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/adapters/http/common"
	"github.com/kudipay/walletd/internal/domain"
)

// InterestService is the calculator surface the handler needs.
type InterestService interface {
	CalculateForWallet(ctx context.Context, walletID uuid.UUID, day time.Time) (*domain.InterestCalculation, error)
	History(ctx context.Context, walletID uuid.UUID, limit int) ([]*domain.InterestCalculation, error)
}

// InterestHandler handles the interest endpoints.
type InterestHandler struct {
	service InterestService
}

// NewInterestHandler creates an InterestHandler.
func NewInterestHandler(service InterestService) *InterestHandler {
	return &InterestHandler{service: service}
}

// InterestCalculationResponse is the wire form of one calculation record.
type InterestCalculationResponse struct {
	ID            string    `json:"id"`
	WalletID      string    `json:"wallet_id"`
	Balance       string    `json:"balance"`
	AnnualRate    string    `json:"annual_rate"`
	DailyInterest string    `json:"daily_interest"`
	CalculatedFor time.Time `json:"calculated_for"`
	CreatedAt     time.Time `json:"created_at"`
}

func toInterestResponse(rec *domain.InterestCalculation) InterestCalculationResponse {
	return InterestCalculationResponse{
		ID:            rec.ID.String(),
		WalletID:      rec.WalletID.String(),
		Balance:       rec.Balance.String(),
		AnnualRate:    rec.AnnualRate.String(),
		DailyInterest: rec.DailyInterest.String(),
		CalculatedFor: rec.CalculatedFor,
		CreatedAt:     rec.CreatedAt,
	}
}

// Calculate handles POST /api/v1/wallet/:id/interest: computes and records
// today's interest for the wallet.
func (h *InterestHandler) Calculate(c *gin.Context) {
	id, ok := parseWalletID(c)
	if !ok {
		return
	}

	rec, err := h.service.CalculateForWallet(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, toInterestResponse(rec))
}

// History handles GET /api/v1/wallet/:id/interest.
func (h *InterestHandler) History(c *gin.Context) {
	id, ok := parseWalletID(c)
	if !ok {
		return
	}

	records, err := h.service.History(c.Request.Context(), id, parseLimit(c, 30))
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	out := make([]InterestCalculationResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toInterestResponse(rec))
	}

	common.Success(c, http.StatusOK, out)
}
