package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Service реализует сценарии жизненного цикла заказа. Каждая мутирующая
// операция выполняется в одной единице работы: переход статуса, контрольное
// чтение и постановка события в outbox коммитятся атомарно.
type Service struct {
	store    domain.Store
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
	validate *validator.Validate
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics задаёт метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService создаёт сервис заказов поверх хранилища.
func NewService(store domain.Store, options ...Option) *Service {
	s := &Service{
		store:    store,
		validate: validator.New(),
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "order-service")
	}
	return s
}

func (s *Service) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return newValidationError("invalid input", err)
	}
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}

// observe фиксирует исход и длительность операции.
func (s *Service) observe(op string, started time.Time, err error) {
	s.metrics.RecordTransition(op, resultLabel(err))
	s.metrics.RecordOperationDuration(op, time.Since(started))
}

// enqueueOrderEvent ставит событие жизненного цикла в outbox в той же транзакции.
func (s *Service) enqueueOrderEvent(ctx context.Context, uow domain.UnitOfWork, eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) error {
	event := kafka.NewOrderEvent(
		eventType,
		order.ID.String(),
		order.BuyerID.String(),
		order.SellerID.String(),
		string(order.Status),
		metadata,
	)
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.Wrap(domain.KindGeneric, "marshal order event", err)
	}

	if _, err := uow.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID.String(),
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		return err
	}
	s.metrics.RecordOutboxEnqueued()
	return nil
}

// CreateOrder создаёт заказ: проверяет вход, резервирует товар и ставит
// событие order.created в outbox.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := s.validateInput(in); err != nil {
		return domain.Order{}, err
	}

	logger := s.logger.WithFields(log.Fields{
		"op":         "create",
		"buyer_id":   in.BuyerID,
		"product_id": in.ProductID,
	})
	started := time.Now()

	var order domain.Order
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		orderID, err := uow.Orders().Create(ctx, domain.CreateOrderParams{
			BuyerID:         in.BuyerID,
			ProductID:       in.ProductID,
			Quantity:        in.Quantity,
			ShippingAddress: in.ShippingAddress,
			ContactPhone:    in.ContactPhone,
		})
		if err != nil {
			return err
		}

		order, err = s.refetch(ctx, uow, orderID, "create")
		if err != nil {
			return err
		}
		return s.enqueueOrderEvent(ctx, uow, kafka.EventTypeOrderCreated, order, map[string]interface{}{
			"quantity":    in.Quantity,
			"total_price": order.TotalPrice.String(),
		})
	})
	s.observe("create", started, err)
	if err != nil {
		logger.WithError(err).Warn("order create failed")
		return domain.Order{}, err
	}

	logger.WithField("order_id", order.ID).Info("order created")
	return order, nil
}

// ConfirmOrder подтверждает заказ от имени продавца.
func (s *Service) ConfirmOrder(ctx context.Context, orderID, sellerID uuid.UUID) (domain.Order, error) {
	return s.transition(ctx, "confirm", orderID, kafka.EventTypeOrderConfirmed, nil,
		func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Orders().Confirm(ctx, orderID, sellerID)
		})
}

// CompleteOrder завершает подтверждённый заказ от имени покупателя или администратора.
func (s *Service) CompleteOrder(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	return s.transition(ctx, "complete", orderID, kafka.EventTypeOrderCompleted, nil,
		func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Orders().Complete(ctx, orderID, actorID)
		})
}

// RejectOrder отклоняет ожидающий заказ от имени продавца. Причина опциональна;
// пустая строка равносильна её отсутствию.
func (s *Service) RejectOrder(ctx context.Context, orderID, sellerID uuid.UUID, reason *string) (domain.Order, error) {
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	var metadata map[string]interface{}
	if reason != nil {
		metadata = map[string]interface{}{"reason": *reason}
	}
	return s.transition(ctx, "reject", orderID, kafka.EventTypeOrderRejected, metadata,
		func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Orders().Reject(ctx, orderID, sellerID, reason)
		})
}

// CancelOrder отменяет заказ от имени стороны сделки. Причина обязательна.
func (s *Service) CancelOrder(ctx context.Context, orderID, actorID uuid.UUID, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Order{}, newValidationError("cancel reason is required", nil)
	}

	return s.transition(ctx, "cancel", orderID, kafka.EventTypeOrderCancelled,
		map[string]interface{}{"reason": reason},
		func(ctx context.Context, uow domain.UnitOfWork) error {
			return uow.Orders().Cancel(ctx, orderID, actorID, reason)
		})
}

// DeleteOrder удаляет заказ в терминальном статусе от имени стороны сделки
// или администратора.
func (s *Service) DeleteOrder(ctx context.Context, orderID, actorID uuid.UUID) error {
	logger := s.logger.WithFields(log.Fields{"op": "delete", "order_id": orderID})
	started := time.Now()

	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		// Снимок заказа нужен для события: после удаления читать нечего.
		order, err := uow.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := uow.Orders().Delete(ctx, orderID, actorID); err != nil {
			return err
		}
		return s.enqueueOrderEvent(ctx, uow, kafka.EventTypeOrderDeleted, order, nil)
	})
	s.observe("delete", started, err)
	if err != nil {
		logger.WithError(err).Warn("order delete failed")
		return err
	}

	logger.Info("order deleted")
	return nil
}

// transition выполняет один переход статуса в одной транзакции: проверку
// существования заказа, вызов репозитория, контрольное чтение и постановку
// события в outbox.
func (s *Service) transition(
	ctx context.Context,
	op string,
	orderID uuid.UUID,
	eventType kafka.EventType,
	metadata map[string]interface{},
	apply func(ctx context.Context, uow domain.UnitOfWork) error,
) (domain.Order, error) {
	logger := s.logger.WithFields(log.Fields{"op": op, "order_id": orderID})
	started := time.Now()

	var order domain.Order
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		if _, err := uow.Orders().GetByID(ctx, orderID); err != nil {
			return err
		}
		if err := apply(ctx, uow); err != nil {
			return err
		}
		var err error
		order, err = s.refetch(ctx, uow, orderID, op)
		if err != nil {
			return err
		}
		return s.enqueueOrderEvent(ctx, uow, eventType, order, metadata)
	})
	s.observe(op, started, err)
	if err != nil {
		logger.WithError(err).Warn("order transition failed")
		return domain.Order{}, err
	}

	logger.WithField("status", order.Status).Info("order transition applied")
	return order, nil
}

// refetch читает заказ после успешного перехода. Его отсутствие в этой точке —
// не пользовательская ошибка, а сбой согласованности.
func (s *Service) refetch(ctx context.Context, uow domain.UnitOfWork, orderID uuid.UUID, op string) (domain.Order, error) {
	order, err := uow.Orders().GetByID(ctx, orderID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, domain.Wrap(domain.KindGeneric, fmt.Sprintf("order missing after %s", op), err)
		}
		return domain.Order{}, err
	}
	return order, nil
}

// GetOrderByID возвращает заказ стороне сделки или администратору.
func (s *Service) GetOrderByID(ctx context.Context, orderID, actorID uuid.UUID) (domain.Order, error) {
	var order domain.Order
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		order, err = uow.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		return s.authorizeView(ctx, uow, &order, actorID)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// GetOrderTimeline возвращает события жизненного цикла заказа с той же
// проверкой доступа, что и чтение самого заказа.
func (s *Service) GetOrderTimeline(ctx context.Context, orderID, actorID uuid.UUID) ([]domain.TimelineEvent, error) {
	var events []domain.TimelineEvent
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		order, err := uow.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.authorizeView(ctx, uow, &order, actorID); err != nil {
			return err
		}
		events, err = uow.Timeline().List(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Service) authorizeView(ctx context.Context, uow domain.UnitOfWork, order *domain.Order, actorID uuid.UUID) error {
	if order.IsParty(actorID) {
		return nil
	}
	isAdmin, err := uow.Orders().IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return domain.New(domain.KindForbidden, "actor may not view this order")
	}
	return nil
}

// GetOrdersByUser возвращает страницу заказов пользователя как покупателя
// или продавца, при необходимости фильтруя по статусу.
func (s *Service) GetOrdersByUser(ctx context.Context, in ListOrdersInput) ([]domain.Order, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	query := domain.ListOrdersQuery{
		UserID:     in.UserID,
		IsSeller:   in.IsSeller,
		PageNumber: in.PageNumber,
		PageSize:   in.PageSize,
	}
	if in.Status != "" {
		status := domain.OrderStatus(in.Status)
		query.Status = &status
	}

	var orders []domain.Order
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		orders, err = uow.Orders().ListByUser(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus — диспетчер переходов по целевому статусу. Статус вне
// множества допустимых целей отклоняется до обращения к хранилищу.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, actorID uuid.UUID, newStatus string, reason *string) (domain.Order, error) {
	switch domain.OrderStatus(newStatus) {
	case domain.OrderStatusConfirmed:
		return s.ConfirmOrder(ctx, orderID, actorID)
	case domain.OrderStatusCompleted:
		return s.CompleteOrder(ctx, orderID, actorID)
	case domain.OrderStatusRejected:
		return s.RejectOrder(ctx, orderID, actorID, reason)
	case domain.OrderStatusCancelled:
		var cancelReason string
		if reason != nil {
			cancelReason = *reason
		}
		return s.CancelOrder(ctx, orderID, actorID, cancelReason)
	default:
		return domain.Order{}, newValidationError(fmt.Sprintf("unsupported target status %q", newStatus), nil)
	}
}
