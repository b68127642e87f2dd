package transfer

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
)

func validRequest() *Request {
	return &Request{
		IdempotencyKey: "order-2026-000123",
		FromWalletID:   uuid.New(),
		ToWalletID:     uuid.New(),
		Amount:         money.MustParse("100.00"),
		Currency:       "NGN",
	}
}

func TestRequestValidate(t *testing.T) {
	maxAmount := money.MustParse("1000000000.00")

	tests := []struct {
		name      string
		mutate    func(*Request)
		wantField string
	}{
		{
			name:   "valid request passes",
			mutate: func(r *Request) {},
		},
		{
			name:   "empty currency passes, default applies later",
			mutate: func(r *Request) { r.Currency = "" },
		},
		{
			name:      "empty idempotency key",
			mutate:    func(r *Request) { r.IdempotencyKey = "" },
			wantField: "idempotency_key",
		},
		{
			name:      "idempotency key too long",
			mutate:    func(r *Request) { r.IdempotencyKey = strings.Repeat("a", 256) },
			wantField: "idempotency_key",
		},
		{
			name:      "idempotency key with forbidden characters",
			mutate:    func(r *Request) { r.IdempotencyKey = "order 123!" },
			wantField: "idempotency_key",
		},
		{
			name:      "nil source wallet",
			mutate:    func(r *Request) { r.FromWalletID = uuid.Nil },
			wantField: "from_wallet_id",
		},
		{
			name:      "self transfer",
			mutate:    func(r *Request) { r.ToWalletID = r.FromWalletID },
			wantField: "to_wallet_id",
		},
		{
			name:      "zero amount",
			mutate:    func(r *Request) { r.Amount = money.Zero() },
			wantField: "amount",
		},
		{
			name:      "negative amount",
			mutate:    func(r *Request) { r.Amount = money.MustParse("-1.00") },
			wantField: "amount",
		},
		{
			name:      "amount above maximum",
			mutate:    func(r *Request) { r.Amount = money.MustParse("1000000000.01") },
			wantField: "amount",
		},
		{
			name:      "lowercase currency",
			mutate:    func(r *Request) { r.Currency = "ngn" },
			wantField: "currency",
		},
		{
			name:      "currency wrong length",
			mutate:    func(r *Request) { r.Currency = "NGNX" },
			wantField: "currency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := req.Validate(maxAmount)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var invalidErr *domainerrors.InvalidRequestError
			require.ErrorAs(t, err, &invalidErr)
			assert.Equal(t, tt.wantField, invalidErr.Field)
		})
	}
}

func TestRequestValidate_MaxAmountBoundaryInclusive(t *testing.T) {
	req := validRequest()
	req.Amount = money.MustParse("500.00")

	assert.NoError(t, req.Validate(money.MustParse("500.00")))
}
