package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа на маркетплейсе.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ждёт подтверждения продавца.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — продавец подтвердил заказ.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusCompleted — покупатель (или администратор) завершил сделку.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusRejected — продавец отклонил заказ до подтверждения.
	OrderStatusRejected OrderStatus = "rejected"
	// OrderStatusCancelled — заказ отменён покупателем или продавцом.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, входит ли статус в известный набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted,
		OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, является ли статус конечным: из него нет переходов.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// transitions задаёт граф допустимых переходов жизненного цикла.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCompleted, OrderStatusCancelled},
}

// CanTransition проверяет допустимость перехода from → to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order агрегирует состояние заказа между покупателем и продавцом.
type Order struct {
	ID              uuid.UUID
	BuyerID         uuid.UUID
	SellerID        uuid.UUID
	ProductID       uuid.UUID
	Quantity        int32
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	ShippingAddress string
	ContactPhone    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// CompleteTime заполняется только при переходе в completed.
	CompleteTime *time.Time
	// CancelTime и CancelReason заполняются только при переходе в cancelled.
	CancelTime   *time.Time
	CancelReason *string
}

// IsParty сообщает, является ли пользователь стороной сделки.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.BuyerID == uuid.Nil {
		errs = append(errs, ErrBuyerRequired)
	}
	if o.SellerID == uuid.Nil {
		errs = append(errs, ErrSellerRequired)
	}
	if o.ProductID == uuid.Nil {
		errs = append(errs, ErrProductRequired)
	}
	if o.Quantity <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if !o.TotalPrice.IsPositive() {
		errs = append(errs, ErrTotalPriceInvalid)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusUnknown)
	}

	// Отметки терминальных статусов взаимно исключают друг друга.
	if o.CompleteTime != nil && o.CancelTime != nil {
		errs = append(errs, ErrTerminalStampConflict)
	}
	if (o.Status == OrderStatusCompleted) != (o.CompleteTime != nil) {
		errs = append(errs, ErrCompleteTimeMismatch)
	}
	if (o.Status == OrderStatusCancelled) != (o.CancelTime != nil) {
		errs = append(errs, ErrCancelTimeMismatch)
	}
	if (o.Status == OrderStatusCancelled) != (o.CancelReason != nil) {
		errs = append(errs, ErrCancelReasonMismatch)
	}

	return errs
}

// Role описывает глобальную роль пользователя. Отношения «покупатель»
// и «продавец» определяются самим заказом, а не ролью.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)
