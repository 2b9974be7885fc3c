package order

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError — ошибка проверки входных данных операции. Возвращается
// до обращения к хранилищу и не классифицируется как доменная.
type ValidationError struct {
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// IsValidationError проверяет, что ошибка возникла при валидации входных данных.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func newValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, cause: cause}
}

// CreateOrderInput — входные данные создания заказа.
type CreateOrderInput struct {
	BuyerID         uuid.UUID `validate:"required"`
	ProductID       uuid.UUID `validate:"required"`
	Quantity        int32     `validate:"gt=0"`
	ShippingAddress string    `validate:"required,max=500"`
	ContactPhone    string    `validate:"required,max=32"`
}

// ListOrdersInput — входные данные постраничной выборки заказов.
type ListOrdersInput struct {
	UserID     uuid.UUID `validate:"required"`
	IsSeller   bool
	Status     string `validate:"omitempty,oneof=pending confirmed completed rejected cancelled"`
	PageNumber int    `validate:"gte=1"`
	PageSize   int    `validate:"gte=1,lte=100"`
}
