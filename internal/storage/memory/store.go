package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Product — карточка товара для in-memory хранилища. Используется при
// посеве данных в локальной разработке и тестах.
type Product struct {
	ID       uuid.UUID
	SellerID uuid.UUID
	Title    string
	Price    decimal.Decimal
	Stock    int32
	OnSale   bool
}

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg       domain.OutboxMessage
	status    string
	createdAt time.Time
}

// state — всё видимое состояние хранилища. Репозитории единицы работы
// мутируют его напрямую; откат восстанавливает снимок целиком.
type state struct {
	users    map[uuid.UUID]domain.Role
	products map[uuid.UUID]Product
	orders   map[uuid.UUID]domain.Order
	timeline map[uuid.UUID][]domain.TimelineEvent
	outbox   []outboxRecord
}

func (st *state) clone() state {
	users := make(map[uuid.UUID]domain.Role, len(st.users))
	for k, v := range st.users {
		users[k] = v
	}
	products := make(map[uuid.UUID]Product, len(st.products))
	for k, v := range st.products {
		products[k] = v
	}
	orders := make(map[uuid.UUID]domain.Order, len(st.orders))
	for k, v := range st.orders {
		orders[k] = v
	}
	timeline := make(map[uuid.UUID][]domain.TimelineEvent, len(st.timeline))
	for k, v := range st.timeline {
		events := make([]domain.TimelineEvent, len(v))
		copy(events, v)
		timeline[k] = events
	}
	outbox := make([]outboxRecord, len(st.outbox))
	copy(outbox, st.outbox)

	return state{
		users:    users,
		products: products,
		orders:   orders,
		timeline: timeline,
		outbox:   outbox,
	}
}

// Store — in-memory реализация хранилища для локальной разработки и тестов.
// Единицы работы сериализуются одним мьютексом; откат реализован через
// восстановление снимка состояния.
type Store struct {
	mu sync.Mutex
	st state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		st: state{
			users:    make(map[uuid.UUID]domain.Role),
			products: make(map[uuid.UUID]Product),
			orders:   make(map[uuid.UUID]domain.Order),
			timeline: make(map[uuid.UUID][]domain.TimelineEvent),
		},
	}
}

// SeedUser регистрирует пользователя с заданной ролью.
func (s *Store) SeedUser(id uuid.UUID, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[id] = role
}

// SeedProduct добавляет товар в каталог.
func (s *Store) SeedProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// ProductStock возвращает текущий остаток товара.
func (s *Store) ProductStock(id uuid.UUID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.products[id].Stock
}

// WithinTx выполняет fn под общим мьютексом; ошибка или panic из fn
// восстанавливают состояние на момент входа.
func (s *Store) WithinTx(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return domain.Wrap(domain.KindGeneric, "begin unit of work", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	completed := false
	defer func() {
		if !completed {
			s.st = snapshot
		}
	}()

	uow := &unitOfWork{st: &s.st}
	if err := fn(uow); err != nil {
		s.st = snapshot
		completed = true
		return err
	}

	completed = true
	return nil
}

type unitOfWork struct {
	st *state
}

func (u *unitOfWork) Orders() domain.OrderRepository {
	return &orderRepository{st: u.st}
}

func (u *unitOfWork) Timeline() domain.TimelineRepository {
	return &timelineRepository{st: u.st}
}

func (u *unitOfWork) Outbox() domain.OutboxRepository {
	return &outboxRepository{st: u.st}
}

var _ domain.Store = (*Store)(nil)
