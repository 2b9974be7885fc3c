package postgres

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// orderRepository вызывает хранимые процедуры жизненного цикла заказа.
// Каждый переход — один round trip; авторизацию и проверку статуса выполняет
// сама процедура под блокировкой строки и возвращает структурированный
// результат (failure_code, order_id), который декодируется здесь ровно один раз.
type orderRepository struct {
	q      Querier
	logger *log.Entry
}

// Коды отказов, возвращаемые процедурами жизненного цикла.
const (
	failBuyerNotFound     = "BUYER_NOT_FOUND"
	failProductNotFound   = "PRODUCT_NOT_FOUND"
	failInsufficientStock = "INSUFFICIENT_STOCK"
	failOrderNotFound     = "ORDER_NOT_FOUND"
	failNotOrderSeller    = "NOT_ORDER_SELLER"
	failNotOrderParty     = "NOT_ORDER_PARTY"
	failActorForbidden    = "ACTOR_FORBIDDEN"
	failIllegalStatus     = "ILLEGAL_STATUS"
	failOrderNotTerminal  = "ORDER_NOT_TERMINAL"
)

// failureKinds — единственная таблица соответствия кодов отказов процедур
// видам доменных ошибок.
var failureKinds = map[string]domain.Kind{
	failBuyerNotFound:     domain.KindNotFound,
	failProductNotFound:   domain.KindNotFound,
	failInsufficientStock: domain.KindIntegrity,
	failOrderNotFound:     domain.KindNotFound,
	failNotOrderSeller:    domain.KindForbidden,
	failNotOrderParty:     domain.KindForbidden,
	failActorForbidden:    domain.KindForbidden,
	failIllegalStatus:     domain.KindIntegrity,
	failOrderNotTerminal:  domain.KindIntegrity,
}

// decodeFailure читает failure_code из результата процедуры. NULL означает успех.
func decodeFailure(op string, rec Record) error {
	code, err := recordStringPtr(rec, "failure_code")
	if err != nil {
		return domain.Wrap(domain.KindGeneric, op, err)
	}
	if code == nil {
		return nil
	}
	kind, ok := failureKinds[*code]
	if !ok {
		return domain.New(domain.KindGeneric, op+": unknown failure code "+*code)
	}
	return domain.New(kind, op+": "+*code)
}

func (r *orderRepository) Create(ctx context.Context, params domain.CreateOrderParams) (uuid.UUID, error) {
	logger := r.logger.WithFields(log.Fields{
		"op":         "create",
		"buyer_id":   params.BuyerID,
		"product_id": params.ProductID,
	})
	logger.Debug("order repository call started")

	rec, err := queryOne(ctx, r.q, `
		SELECT failure_code, order_id
		FROM sp_create_order($1, $2, $3, $4, $5)
	`,
		params.BuyerID, params.ProductID, params.Quantity,
		params.ShippingAddress, params.ContactPhone,
	)
	if err != nil {
		logger.WithError(err).Error("order repository call failed")
		return uuid.Nil, err
	}
	if rec == nil {
		return uuid.Nil, domain.New(domain.KindGeneric, "sp_create_order returned no result row")
	}
	if err := decodeFailure("create order", rec); err != nil {
		logger.WithError(err).Warn("order create rejected")
		return uuid.Nil, err
	}

	orderID, err := recordUUID(rec, "order_id")
	if err != nil {
		return uuid.Nil, domain.Wrap(domain.KindGeneric, "decode created order id", err)
	}

	logger.WithField("order_id", orderID).Debug("order repository call finished")
	return orderID, nil
}

func (r *orderRepository) Confirm(ctx context.Context, orderID, sellerID uuid.UUID) error {
	return r.transition(ctx, "confirm", `
		SELECT failure_code FROM sp_confirm_order($1, $2)
	`, orderID, sellerID)
}

func (r *orderRepository) Complete(ctx context.Context, orderID, actorID uuid.UUID) error {
	return r.transition(ctx, "complete", `
		SELECT failure_code FROM sp_complete_order($1, $2)
	`, orderID, actorID)
}

func (r *orderRepository) Reject(ctx context.Context, orderID, sellerID uuid.UUID, reason *string) error {
	// Форма вызова фиксированная: опциональная причина всегда передаётся
	// одним nullable-параметром.
	return r.transition(ctx, "reject", `
		SELECT failure_code FROM sp_reject_order($1, $2, $3)
	`, orderID, sellerID, reason)
}

func (r *orderRepository) Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) error {
	return r.transition(ctx, "cancel", `
		SELECT failure_code FROM sp_cancel_order($1, $2, $3)
	`, orderID, actorID, reason)
}

func (r *orderRepository) Delete(ctx context.Context, orderID, actorID uuid.UUID) error {
	return r.transition(ctx, "delete", `
		SELECT failure_code FROM sp_delete_order($1, $2)
	`, orderID, actorID)
}

// transition выполняет один вызов процедуры перехода и декодирует её результат.
func (r *orderRepository) transition(ctx context.Context, op, query string, params ...any) error {
	logger := r.logger.WithFields(log.Fields{"op": op, "order_id": params[0]})
	logger.Debug("order repository call started")

	rec, err := queryOne(ctx, r.q, query, params...)
	if err != nil {
		logger.WithError(err).Error("order repository call failed")
		return err
	}
	if rec == nil {
		return domain.New(domain.KindGeneric, op+" returned no result row")
	}
	if err := decodeFailure(op+" order", rec); err != nil {
		logger.WithError(err).Warn("order transition rejected")
		return err
	}

	logger.Debug("order repository call finished")
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	rec, err := queryOne(ctx, r.q, `SELECT * FROM sp_get_order_by_id($1)`, orderID)
	if err != nil {
		r.logger.WithError(err).WithField("order_id", orderID).Error("order lookup failed")
		return domain.Order{}, err
	}
	if rec == nil {
		return domain.Order{}, domain.New(domain.KindNotFound, "order not found")
	}
	return mapOrder(rec)
}

func (r *orderRepository) ListByUser(ctx context.Context, query domain.ListOrdersQuery) ([]domain.Order, error) {
	var status *string
	if query.Status != nil {
		s := string(*query.Status)
		status = &s
	}

	records, err := queryMany(ctx, r.q, `
		SELECT * FROM sp_get_orders_by_user($1, $2, $3, $4, $5)
	`,
		query.UserID, query.IsSeller, status, query.PageNumber, query.PageSize,
	)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", query.UserID).Error("order list failed")
		return nil, err
	}

	orders := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		order, err := mapOrder(rec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *orderRepository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	rec, err := queryOne(ctx, r.q, `SELECT role FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	role, err := recordString(rec, "role")
	if err != nil {
		return false, domain.Wrap(domain.KindGeneric, "decode user role", err)
	}
	return domain.Role(role) == domain.RoleAdmin, nil
}

// mapOrder собирает доменный заказ из нормализованной записи.
func mapOrder(rec Record) (domain.Order, error) {
	var (
		order domain.Order
		err   error
	)

	if order.ID, err = recordUUID(rec, "id"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.BuyerID, err = recordUUID(rec, "buyer_id"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.SellerID, err = recordUUID(rec, "seller_id"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.ProductID, err = recordUUID(rec, "product_id"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.Quantity, err = recordInt32(rec, "quantity"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.TotalPrice, err = recordDecimal(rec, "total_price"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}

	status, err := recordString(rec, "status")
	if err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	order.Status = domain.OrderStatus(status)

	if order.ShippingAddress, err = recordString(rec, "shipping_address"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.ContactPhone, err = recordString(rec, "contact_phone"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.CreatedAt, err = recordTime(rec, "created_at"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.UpdatedAt, err = recordTime(rec, "updated_at"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.CompleteTime, err = recordTimePtr(rec, "complete_time"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.CancelTime, err = recordTimePtr(rec, "cancel_time"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}
	if order.CancelReason, err = recordStringPtr(rec, "cancel_reason"); err != nil {
		return domain.Order{}, domain.Wrap(domain.KindGeneric, "decode order", err)
	}

	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
