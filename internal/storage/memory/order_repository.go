package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// orderRepository повторяет семантику хранимых процедур жизненного цикла:
// те же проверки авторизации, статусов и остатков, те же виды ошибок.
type orderRepository struct {
	st *state
}

func (r *orderRepository) Create(ctx context.Context, params domain.CreateOrderParams) (uuid.UUID, error) {
	if _, ok := r.st.users[params.BuyerID]; !ok {
		return uuid.Nil, domain.New(domain.KindNotFound, "buyer not found")
	}
	product, ok := r.st.products[params.ProductID]
	if !ok || !product.OnSale {
		return uuid.Nil, domain.New(domain.KindNotFound, "product not found or not on sale")
	}
	if product.Stock < params.Quantity {
		return uuid.Nil, domain.New(domain.KindIntegrity, "insufficient stock")
	}

	product.Stock -= params.Quantity
	r.st.products[params.ProductID] = product

	now := time.Now().UTC()
	order := domain.Order{
		ID:              uuid.New(),
		BuyerID:         params.BuyerID,
		SellerID:        product.SellerID,
		ProductID:       params.ProductID,
		Quantity:        params.Quantity,
		TotalPrice:      product.Price.Mul(decimal.NewFromInt32(params.Quantity)),
		Status:          domain.OrderStatusPending,
		ShippingAddress: params.ShippingAddress,
		ContactPhone:    params.ContactPhone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.st.orders[order.ID] = order
	r.appendTimeline(order.ID, params.BuyerID, "order.created", "")

	return order.ID, nil
}

func (r *orderRepository) Confirm(ctx context.Context, orderID, sellerID uuid.UUID) error {
	order, ok := r.st.orders[orderID]
	if !ok {
		return domain.New(domain.KindNotFound, "order not found")
	}
	if order.SellerID != sellerID {
		return domain.New(domain.KindForbidden, "actor is not the order seller")
	}
	if order.Status != domain.OrderStatusPending {
		return domain.New(domain.KindIntegrity, "order is not pending")
	}

	order.Status = domain.OrderStatusConfirmed
	order.UpdatedAt = time.Now().UTC()
	r.st.orders[orderID] = order
	r.appendTimeline(orderID, sellerID, "order.confirmed", "")
	return nil
}

func (r *orderRepository) Complete(ctx context.Context, orderID, actorID uuid.UUID) error {
	order, ok := r.st.orders[orderID]
	if !ok {
		return domain.New(domain.KindNotFound, "order not found")
	}
	if order.BuyerID != actorID && r.st.users[actorID] != domain.RoleAdmin {
		return domain.New(domain.KindForbidden, "actor may not complete this order")
	}
	if order.Status != domain.OrderStatusConfirmed {
		return domain.New(domain.KindIntegrity, "order is not confirmed")
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCompleted
	order.CompleteTime = &now
	order.UpdatedAt = now
	r.st.orders[orderID] = order
	r.appendTimeline(orderID, actorID, "order.completed", "")
	return nil
}

func (r *orderRepository) Reject(ctx context.Context, orderID, sellerID uuid.UUID, reason *string) error {
	order, ok := r.st.orders[orderID]
	if !ok {
		return domain.New(domain.KindNotFound, "order not found")
	}
	if order.SellerID != sellerID {
		return domain.New(domain.KindForbidden, "actor is not the order seller")
	}
	if order.Status != domain.OrderStatusPending {
		return domain.New(domain.KindIntegrity, "order is not pending")
	}

	order.Status = domain.OrderStatusRejected
	order.UpdatedAt = time.Now().UTC()
	r.st.orders[orderID] = order
	r.restock(order.ProductID, order.Quantity)

	detail := ""
	if reason != nil {
		detail = *reason
	}
	r.appendTimeline(orderID, sellerID, "order.rejected", detail)
	return nil
}

func (r *orderRepository) Cancel(ctx context.Context, orderID, actorID uuid.UUID, reason string) error {
	order, ok := r.st.orders[orderID]
	if !ok {
		return domain.New(domain.KindNotFound, "order not found")
	}
	if order.BuyerID != actorID && order.SellerID != actorID {
		return domain.New(domain.KindForbidden, "actor is not a party to the order")
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusConfirmed {
		return domain.New(domain.KindIntegrity, "order may not be cancelled in its current status")
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCancelled
	order.CancelTime = &now
	order.CancelReason = &reason
	order.UpdatedAt = now
	r.st.orders[orderID] = order
	r.restock(order.ProductID, order.Quantity)
	r.appendTimeline(orderID, actorID, "order.cancelled", reason)
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, orderID, actorID uuid.UUID) error {
	order, ok := r.st.orders[orderID]
	if !ok {
		return domain.New(domain.KindNotFound, "order not found")
	}
	if !order.IsParty(actorID) && r.st.users[actorID] != domain.RoleAdmin {
		return domain.New(domain.KindForbidden, "actor is not a party to the order")
	}
	if !order.Status.Terminal() {
		return domain.New(domain.KindIntegrity, "order is not in a terminal status")
	}

	delete(r.st.orders, orderID)
	delete(r.st.timeline, orderID)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	order, ok := r.st.orders[orderID]
	if !ok {
		return domain.Order{}, domain.New(domain.KindNotFound, "order not found")
	}
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, query domain.ListOrdersQuery) ([]domain.Order, error) {
	result := make([]domain.Order, 0)
	for _, order := range r.st.orders {
		if query.IsSeller {
			if order.SellerID != query.UserID {
				continue
			}
		} else if order.BuyerID != query.UserID {
			continue
		}
		if query.Status != nil && order.Status != *query.Status {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})

	page := query.PageNumber
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		return []domain.Order{}, nil
	}
	offset := (page - 1) * size
	if offset >= len(result) {
		return []domain.Order{}, nil
	}
	end := offset + size
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *orderRepository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.st.users[userID] == domain.RoleAdmin, nil
}

func (r *orderRepository) restock(productID uuid.UUID, quantity int32) {
	if product, ok := r.st.products[productID]; ok {
		product.Stock += quantity
		r.st.products[productID] = product
	}
}

func (r *orderRepository) appendTimeline(orderID, actorID uuid.UUID, eventType, detail string) {
	r.st.timeline[orderID] = append(r.st.timeline[orderID], domain.TimelineEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		ActorID:   actorID,
		EventType: eventType,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

var _ domain.OrderRepository = (*orderRepository)(nil)
