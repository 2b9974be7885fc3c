package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store управляет границей unit of work: одно соединение на единицу работы,
// ровно один commit или один rollback, соединение освобождается на любом пути выхода.
type Store interface {
	// WithinTx выполняет fn в рамках одной транзакции. Возврат ошибки из fn
	// откатывает транзакцию; нормальное завершение коммитит её.
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// UnitOfWork даёт доступ к репозиториям, привязанным к одной открытой транзакции.
type UnitOfWork interface {
	Orders() OrderRepository
	Timeline() TimelineRepository
	Outbox() OutboxRepository
}

// CreateOrderParams — параметры создания заказа. Продавец и итоговая цена
// определяются хранимой процедурой по товару.
type CreateOrderParams struct {
	BuyerID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        int32
	ShippingAddress string
	ContactPhone    string
}

// ListOrdersQuery описывает постраничную выборку заказов пользователя.
type ListOrdersQuery struct {
	UserID     uuid.UUID
	IsSeller   bool
	Status     *OrderStatus
	PageNumber int
	PageSize   int
}

// OrderRepository описывает операции жизненного цикла заказа. Каждый переход —
// один вызов хранимой процедуры, которая сама выполняет проверки авторизации
// и статуса; репозиторий декодирует её структурированный результат в доменную ошибку.
type OrderRepository interface {
	// Create создаёт заказ и возвращает его идентификатор.
	Create(ctx context.Context, params CreateOrderParams) (uuid.UUID, error)
	// Confirm переводит pending → confirmed от имени продавца.
	Confirm(ctx context.Context, orderID, sellerID uuid.UUID) error
	// Complete переводит confirmed → completed от имени покупателя или администратора.
	Complete(ctx context.Context, orderID, actorID uuid.UUID) error
	// Reject переводит pending → rejected от имени продавца; причина опциональна.
	Reject(ctx context.Context, orderID, sellerID uuid.UUID, reason *string) error
	// Cancel переводит pending|confirmed → cancelled; причина обязательна.
	Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) error
	// Delete удаляет заказ в терминальном статусе.
	Delete(ctx context.Context, orderID, actorID uuid.UUID) error
	// GetByID возвращает заказ или ошибку KindNotFound.
	GetByID(ctx context.Context, orderID uuid.UUID) (Order, error)
	// ListByUser возвращает заказы пользователя по убыванию даты создания.
	ListByUser(ctx context.Context, query ListOrdersQuery) ([]Order, error)
	// IsAdmin сообщает, имеет ли пользователь административную роль.
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// TimelineRepository читает события жизненного цикла заказа; записывают их
// сами процедуры переходов в той же транзакции.
type TimelineRepository interface {
	List(ctx context.Context, orderID uuid.UUID) ([]TimelineEvent, error)
}

// OutboxRepository сохраняет события для последующей публикации в рамках
// транзакции перехода.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}

// OutboxSource отдаёт накопленные outbox-сообщения воркеру публикации;
// работает вне unit of work.
type OutboxSource interface {
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxPublisher публикует события из transactional outbox; должен быть идемпотентным.
type OutboxPublisher interface {
	Publish(ctx context.Context, msg OutboxMessage) error
}
