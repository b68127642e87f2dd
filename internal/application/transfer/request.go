package transfer

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/kudipay/walletd/internal/domain"
	domainerrors "github.com/kudipay/walletd/internal/domain/errors"
	"github.com/kudipay/walletd/internal/domain/money"
)

// MaxIdempotencyKeyLength bounds caller-chosen keys so they fit the indexed
// column and the cache key space.
const MaxIdempotencyKeyLength = 255

var (
	idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	currencyPattern       = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Request is one transfer attempt. Currency may be empty, in which case the
// configured default applies.
type Request struct {
	IdempotencyKey string
	FromWalletID   uuid.UUID
	ToWalletID     uuid.UUID
	Amount         money.Money
	Currency       string
	Description    string
	Metadata       map[string]any
}

// Validate performs pre-validation: every check here runs before any side
// effect, so a rejected request leaves no trace in the cache or the database.
func (r *Request) Validate(maxAmount money.Money) error {
	if r.IdempotencyKey == "" {
		return domainerrors.NewInvalidRequest("idempotency_key", "must not be empty")
	}
	if len(r.IdempotencyKey) > MaxIdempotencyKeyLength {
		return domainerrors.NewInvalidRequest("idempotency_key", "must be at most 255 characters")
	}
	if !idempotencyKeyPattern.MatchString(r.IdempotencyKey) {
		return domainerrors.NewInvalidRequest("idempotency_key", "must contain only letters, digits, underscore and hyphen")
	}

	if r.FromWalletID == uuid.Nil {
		return domainerrors.NewInvalidRequest("from_wallet_id", "must be a valid wallet id")
	}
	if r.ToWalletID == uuid.Nil {
		return domainerrors.NewInvalidRequest("to_wallet_id", "must be a valid wallet id")
	}
	if r.FromWalletID == r.ToWalletID {
		return domainerrors.NewInvalidRequest("to_wallet_id", "must differ from from_wallet_id")
	}

	if !r.Amount.IsPositive() {
		return domainerrors.NewInvalidRequest("amount", "must be greater than zero")
	}
	if maxAmount.LessThan(r.Amount) {
		return domainerrors.NewInvalidRequest("amount", "exceeds the maximum transfer amount "+maxAmount.String())
	}

	if r.Currency != "" && !currencyPattern.MatchString(r.Currency) {
		return domainerrors.NewInvalidRequest("currency", "must be a 3-letter uppercase code")
	}

	return nil
}

// Endpoint is one side of a completed transfer.
type Endpoint struct {
	WalletID   uuid.UUID   `json:"wallet_id"`
	NewBalance money.Money `json:"new_balance"`
}

// Result is the outcome of a successful transfer. It is serialized into the
// result cache verbatim, so a replay within the TTL returns the historical
// balances, not the current ones.
type Result struct {
	Success       bool                     `json:"success"`
	TransactionID uuid.UUID                `json:"transaction_id"`
	Status        domain.TransactionStatus `json:"status"`
	From          Endpoint                 `json:"from"`
	To            Endpoint                 `json:"to"`
	Timestamp     time.Time                `json:"timestamp"`

	// Replayed marks an idempotent answer served from the cache or the
	// ledger. Never serialized, so replayed payloads stay byte-identical
	// to the original.
	Replayed bool `json:"-"`
}
