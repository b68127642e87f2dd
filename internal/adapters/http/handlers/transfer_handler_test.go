package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudipay/walletd/internal/adapters/http/common"
	"github.com/kudipay/walletd/internal/adapters/http/middleware"
	"github.com/kudipay/walletd/internal/application/transfer"
	"github.com/kudipay/walletd/internal/domain"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
)

type fakeCoordinator struct {
	gotRequest *transfer.Request
	result     *transfer.Result
	err        error
}

func (f *fakeCoordinator) Transfer(ctx context.Context, req *transfer.Request) (*transfer.Result, error) {
	f.gotRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTransferRouter(coordinator *fakeCoordinator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	router := gin.New()
	router.Use(middleware.RequestID())
	router.POST("/api/v1/wallet/transfer", NewTransferHandler(coordinator).Transfer)
	return router
}

func postTransfer(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/transfer", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) common.APIResponse {
	t.Helper()

	var envelope common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func validBody() map[string]any {
	return map[string]any{
		"idempotency_key": "order-2026-0001",
		"from_wallet_id":  uuid.NewString(),
		"to_wallet_id":    uuid.NewString(),
		"amount":          "100.50",
		"currency":        "NGN",
	}
}

func TestTransferEndpoint_Success(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()
	coordinator := &fakeCoordinator{
		result: &transfer.Result{
			Success:       true,
			TransactionID: uuid.New(),
			Status:        domain.TransactionStatusCompleted,
			From:          transfer.Endpoint{WalletID: fromID, NewBalance: money.MustParse("899.50")},
			To:            transfer.Endpoint{WalletID: toID, NewBalance: money.MustParse("600.50")},
			Timestamp:     time.Now().UTC(),
		},
	}
	router := newTransferRouter(coordinator)

	body := validBody()
	body["from_wallet_id"] = fromID.String()
	body["to_wallet_id"] = toID.String()

	rec := postTransfer(t, router, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.RequestID)

	// The handler passed the parsed request through.
	require.NotNil(t, coordinator.gotRequest)
	assert.Equal(t, "order-2026-0001", coordinator.gotRequest.IdempotencyKey)
	assert.Equal(t, fromID, coordinator.gotRequest.FromWalletID)
	assert.Equal(t, "100.50", coordinator.gotRequest.Amount.String())

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	from, ok := data["from"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "899.50", from["new_balance"])
}

func TestTransferEndpoint_BindingRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing idempotency key", func(b map[string]any) { delete(b, "idempotency_key") }},
		{"bad idempotency key charset", func(b map[string]any) { b["idempotency_key"] = "has spaces!" }},
		{"bad wallet id", func(b map[string]any) { b["from_wallet_id"] = "not-a-uuid" }},
		{"bad amount format", func(b map[string]any) { b["amount"] = "1.234" }},
		{"negative amount", func(b map[string]any) { b["amount"] = "-5.00" }},
		{"amount as number", func(b map[string]any) { b["amount"] = 100.50 }},
		{"bad currency", func(b map[string]any) { b["currency"] = "ngn" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coordinator := &fakeCoordinator{}
			router := newTransferRouter(coordinator)

			body := validBody()
			tt.mutate(body)

			rec := postTransfer(t, router, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, coordinator.gotRequest, "coordinator must not be called")

			envelope := decodeEnvelope(t, rec)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, common.ErrCodeInvalidRequest, envelope.Error.Code)
		})
	}
}

func TestTransferEndpoint_DomainErrorMapping(t *testing.T) {
	walletID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"insufficient funds",
			&domainerrors.InsufficientFundsError{WalletID: walletID, Available: "50.00", Required: "100.00"},
			http.StatusBadRequest, common.ErrCodeInsufficientFunds,
		},
		{
			"wallet not found",
			fmt.Errorf("wallet %s: %w", walletID, domainerrors.ErrWalletNotFound),
			http.StatusNotFound, common.ErrCodeNotFound,
		},
		{
			"concurrent in progress",
			domainerrors.ErrConcurrentInProgress,
			http.StatusConflict, common.ErrCodeConcurrentInProgress,
		},
		{
			"version conflict",
			&domainerrors.VersionConflictError{WalletID: walletID, ExpectedVersion: 2},
			http.StatusConflict, common.ErrCodeVersionConflict,
		},
		{
			"inactive wallet",
			&domainerrors.InactiveWalletError{WalletID: walletID, Status: "CLOSED"},
			http.StatusUnprocessableEntity, common.ErrCodeInactiveWallet,
		},
		{
			"internal error",
			domainerrors.NewInternal("update wallet", fmt.Errorf("connection reset")),
			http.StatusInternalServerError, common.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTransferRouter(&fakeCoordinator{err: tt.err})

			rec := postTransfer(t, router, validBody())

			assert.Equal(t, tt.wantStatus, rec.Code)
			envelope := decodeEnvelope(t, rec)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
		})
	}
}

func TestTransferEndpoint_InsufficientFundsDetails(t *testing.T) {
	router := newTransferRouter(&fakeCoordinator{
		err: &domainerrors.InsufficientFundsError{WalletID: uuid.New(), Available: "50.00", Required: "100.00"},
	})

	rec := postTransfer(t, router, validBody())
	envelope := decodeEnvelope(t, rec)

	require.NotNil(t, envelope.Error)
	assert.Equal(t, "50.00", envelope.Error.Details["available"])
	assert.Equal(t, "100.00", envelope.Error.Details["required"])
}

func TestTransferEndpoint_EchoesClientRequestID(t *testing.T) {
	router := newTransferRouter(&fakeCoordinator{err: domainerrors.ErrConcurrentInProgress})

	data, err := json.Marshal(validBody())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/transfer", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "client-req-42")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "client-req-42", rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "client-req-42", decodeEnvelope(t, rec).RequestID)
}
