// Package handlers adapts HTTP requests to the application layer: bind and
// validate the body, call the service, map the result or the domain error
// back onto the response envelope.
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kudipay/walletd/internal/adapters/http/common"
)

var setupOnce sync.Once

// SetupValidator registers the custom binding validators with gin's
// validator engine. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		// Report field names from json tags so errors match the wire format.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("money_amount", validateMoneyAmount)
		_ = v.RegisterValidation("idempotency_key", validateIdempotencyKey)
		_ = v.RegisterValidation("currency_code", validateCurrencyCode)
	})
}

// moneyPattern accepts positive decimal strings with at most two fractional
// digits. Sign and range are checked by the coordinator.
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

func validateIdempotencyKey(fl validator.FieldLevel) bool {
	return keyPattern.MatchString(fl.Field().String())
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// BindJSON binds the request body; on failure it writes the 400 response and
// returns false.
func BindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		handleBindingError(c, err)
		return false
	}
	return true
}

func handleBindingError(c *gin.Context, err error) {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		first := validationErrors[0]
		common.Error(c, 400, &common.APIError{
			Code:    common.ErrCodeInvalidRequest,
			Message: validationMessage(first),
			Details: map[string]any{"field": first.Field()},
		})
		return
	}
	common.BadRequest(c, "invalid request body: "+err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return "value is too long (maximum: " + fe.Param() + ")"
	case "money_amount":
		return "must be a decimal amount like '100.50'"
	case "idempotency_key":
		return "must be 1-255 characters of letters, digits, underscore or hyphen"
	case "currency_code":
		return "must be a 3-letter uppercase currency code"
	default:
		return "invalid value"
	}
}
