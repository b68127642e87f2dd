// Package common holds the response envelope shared by handlers and
// middleware. Separate package so handlers and the router do not import
// each other.
package common

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the error payload inside the envelope.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Stable external error codes. Clients branch on these, not on messages.
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInactiveWallet       = "INACTIVE_WALLET"
	ErrCodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	ErrCodeConcurrentInProgress = "CONCURRENT_IN_PROGRESS"
	ErrCodeVersionConflict      = "VERSION_CONFLICT"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// RequestIDContextKey is the gin context key carrying the request id.
const RequestIDContextKey = "request_id"

// GetRequestID returns the request id set by the RequestID middleware.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDContextKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// Success writes a successful envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error writes an error envelope.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// BadRequest writes a 400 with the INVALID_REQUEST code.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeInvalidRequest,
		Message: message,
	})
}

// HandleDomainError maps the domain error taxonomy onto HTTP statuses:
//
//	InvalidRequest      -> 400
//	InsufficientFunds   -> 400 (with figures in details)
//	NotFound            -> 404
//	ConcurrentInProgress-> 409 (retryable)
//	VersionConflict     -> 409 (retryable)
//	InactiveWallet      -> 422
//	everything else     -> 500 (internals never leak to the client)
func HandleDomainError(c *gin.Context, err error) {
	var invalidErr *domainerrors.InvalidRequestError
	if errors.As(err, &invalidErr) {
		Error(c, http.StatusBadRequest, &APIError{
			Code:    ErrCodeInvalidRequest,
			Message: invalidErr.Message,
			Details: map[string]any{"field": invalidErr.Field},
		})
		return
	}

	var insufficientErr *domainerrors.InsufficientFundsError
	if errors.As(err, &insufficientErr) {
		Error(c, http.StatusBadRequest, &APIError{
			Code:    ErrCodeInsufficientFunds,
			Message: "insufficient funds on the source wallet",
			Details: map[string]any{
				"wallet_id": insufficientErr.WalletID.String(),
				"available": insufficientErr.Available,
				"required":  insufficientErr.Required,
			},
		})
		return
	}

	if domainerrors.IsNotFound(err) {
		Error(c, http.StatusNotFound, &APIError{
			Code:    ErrCodeNotFound,
			Message: err.Error(),
		})
		return
	}

	if domainerrors.IsConcurrentInProgress(err) {
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeConcurrentInProgress,
			Message: "a transfer with this idempotency key is already in progress",
			Details: map[string]any{"retryable": true},
		})
		return
	}

	var conflictErr *domainerrors.VersionConflictError
	if errors.As(err, &conflictErr) {
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeVersionConflict,
			Message: "the wallet was modified concurrently, please retry",
			Details: map[string]any{
				"wallet_id": conflictErr.WalletID.String(),
				"retryable": true,
			},
		})
		return
	}

	var inactiveErr *domainerrors.InactiveWalletError
	if errors.As(err, &inactiveErr) {
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeInactiveWallet,
			Message: "wallet cannot take part in transfers",
			Details: map[string]any{
				"wallet_id": inactiveErr.WalletID.String(),
				"status":    inactiveErr.Status,
			},
		})
		return
	}

	Error(c, http.StatusInternalServerError, &APIError{
		Code:    ErrCodeInternal,
		Message: "an unexpected error occurred",
	})
}
