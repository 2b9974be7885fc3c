package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// outboxRepository пишет события в transactional outbox в рамках транзакции
// перехода: сообщение становится видимым воркеру только после commit.
type outboxRepository struct {
	q Querier
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := execute(ctx, r.q, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
	`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now,
	)
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return msg, nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)

// OutboxQueue отдаёт накопленные сообщения воркеру публикации. Работает
// поверх пула напрямую: чтение и смена статуса не требуют unit of work.
type OutboxQueue struct {
	db *sql.DB
}

// NewOutboxQueue создаёт источник outbox-сообщений для воркера.
func NewOutboxQueue(store *Store) *OutboxQueue {
	return &OutboxQueue{db: store.DB()}
}

func (q *OutboxQueue) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	records, err := queryMany(ctx, q.db, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	result := make([]domain.OutboxMessage, 0, len(records))
	for _, rec := range records {
		var msg domain.OutboxMessage
		if msg.ID, err = recordString(rec, "id"); err != nil {
			return nil, domain.Wrap(domain.KindGeneric, "decode outbox message", err)
		}
		if msg.AggregateType, err = recordString(rec, "aggregate_type"); err != nil {
			return nil, domain.Wrap(domain.KindGeneric, "decode outbox message", err)
		}
		if msg.AggregateID, err = recordString(rec, "aggregate_id"); err != nil {
			return nil, domain.Wrap(domain.KindGeneric, "decode outbox message", err)
		}
		if msg.EventType, err = recordString(rec, "event_type"); err != nil {
			return nil, domain.Wrap(domain.KindGeneric, "decode outbox message", err)
		}
		payload, err := recordString(rec, "payload")
		if err != nil {
			return nil, domain.Wrap(domain.KindGeneric, "decode outbox message", err)
		}
		msg.Payload = []byte(payload)
		result = append(result, msg)
	}
	return result, nil
}

func (q *OutboxQueue) Stats(ctx context.Context) (domain.OutboxStats, error) {
	rec, err := queryOne(ctx, q.db, `
		SELECT COUNT(*) AS pending_count, MIN(created_at) AS oldest_pending_at
		FROM outbox_messages
		WHERE status = 'pending'
	`)
	if err != nil {
		return domain.OutboxStats{}, err
	}
	if rec == nil {
		return domain.OutboxStats{}, nil
	}

	var stats domain.OutboxStats
	count, err := recordInt32(rec, "pending_count")
	if err != nil {
		return domain.OutboxStats{}, domain.Wrap(domain.KindGeneric, "decode outbox stats", err)
	}
	stats.PendingCount = int(count)

	oldest, err := recordTimePtr(rec, "oldest_pending_at")
	if err != nil {
		return domain.OutboxStats{}, domain.Wrap(domain.KindGeneric, "decode outbox stats", err)
	}
	if oldest != nil {
		stats.OldestPendingAt = oldest.UTC()
	}
	return stats, nil
}

func (q *OutboxQueue) MarkSent(ctx context.Context, id string) error {
	return q.markStatus(ctx, id, "sent")
}

func (q *OutboxQueue) MarkFailed(ctx context.Context, id string) error {
	return q.markStatus(ctx, id, "failed")
}

func (q *OutboxQueue) markStatus(ctx context.Context, id, status string) error {
	affected, err := execute(ctx, q.db, `
		UPDATE outbox_messages
		SET status = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrOutboxPublish
	}
	return nil
}

var _ domain.OutboxSource = (*OutboxQueue)(nil)
