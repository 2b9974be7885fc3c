package domain

import (
	"errors"
	"fmt"
)

// Kind классифицирует доменные ошибки ядра обработки заказов.
// Классификация выполняется один раз на нижнем слое (statement executor
// или репозиторий) и выше по стеку не переопределяется.
type Kind string

const (
	// KindNotFound — заказ или связь актора с ним не найдены.
	KindNotFound Kind = "not_found"
	// KindIntegrity — нарушение ограничения целостности или недопустимый переход статуса.
	KindIntegrity Kind = "integrity_violation"
	// KindForbidden — актору не хватает роли/отношения для операции.
	KindForbidden Kind = "forbidden"
	// KindGeneric — ошибка ввода-вывода, драйвера или неклассифицированный сбой.
	KindGeneric Kind = "generic"
)

// Error — доменная ошибка с фиксированным видом и человекочитаемым сообщением.
// Исходная причина сохраняется для диагностики через Unwrap.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// New создаёт доменную ошибку без исходной причины.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap создаёт доменную ошибку, сохраняя исходную причину.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf возвращает вид ошибки. Неклассифицированные ошибки считаются KindGeneric,
// nil возвращает пустой Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var domErr *Error
	if errors.As(err, &domErr) {
		return domErr.Kind
	}
	return KindGeneric
}

// IsNotFound проверяет, что ошибка классифицирована как NotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsIntegrityViolation проверяет, что ошибка классифицирована как IntegrityViolation.
func IsIntegrityViolation(err error) bool {
	return KindOf(err) == KindIntegrity
}

// IsForbidden проверяет, что ошибка классифицирована как Forbidden.
func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}

var (
	// Ошибки инвариантов заказа.
	ErrBuyerRequired         = errors.New("buyer_id is required")
	ErrSellerRequired        = errors.New("seller_id is required")
	ErrProductRequired       = errors.New("product_id is required")
	ErrQuantityInvalid       = errors.New("quantity must be greater than zero")
	ErrTotalPriceInvalid     = errors.New("total_price must be positive")
	ErrStatusUnknown         = errors.New("order status is unknown")
	ErrTerminalStampConflict = errors.New("complete_time and cancel_time are mutually exclusive")
	ErrCompleteTimeMismatch  = errors.New("complete_time must be set exactly when status is completed")
	ErrCancelTimeMismatch    = errors.New("cancel_time must be set exactly when status is cancelled")
	ErrCancelReasonMismatch  = errors.New("cancel_reason must be set exactly when status is cancelled")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)
