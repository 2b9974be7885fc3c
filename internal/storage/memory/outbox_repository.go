package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// outboxRepository пишет события в общий срез состояния в рамках единицы работы.
type outboxRepository struct {
	st *state
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	r.st.outbox = append(r.st.outbox, outboxRecord{
		msg:       msg,
		status:    "pending",
		createdAt: time.Now().UTC(),
	})
	return msg, nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)

// PullPending возвращает до limit сообщений со статусом `pending`
// в порядке постановки.
func (s *Store) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	result := make([]domain.OutboxMessage, 0, limit)
	for _, rec := range s.st.outbox {
		if rec.status != "pending" {
			continue
		}
		result = append(result, rec.msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Stats возвращает количество и возраст накопленных сообщений.
func (s *Store) Stats(ctx context.Context) (domain.OutboxStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats domain.OutboxStats
	oldest := make([]time.Time, 0)
	for _, rec := range s.st.outbox {
		if rec.status != "pending" {
			continue
		}
		stats.PendingCount++
		oldest = append(oldest, rec.createdAt)
	}
	if len(oldest) > 0 {
		sort.Slice(oldest, func(i, j int) bool { return oldest[i].Before(oldest[j]) })
		stats.OldestPendingAt = oldest[0]
	}
	return stats, nil
}

// MarkSent фиксирует успешную публикацию сообщения.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	return s.markStatus(id, "sent")
}

// MarkFailed фиксирует ошибку публикации.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	return s.markStatus(id, "failed")
}

func (s *Store) markStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.st.outbox {
		if s.st.outbox[i].msg.ID == id {
			s.st.outbox[i].status = status
			return nil
		}
	}
	return domain.ErrOutboxPublish
}

var _ domain.OutboxSource = (*Store)(nil)
