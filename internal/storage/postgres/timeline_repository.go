package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// timelineRepository читает аудит переходов заказа. Записи добавляют сами
// процедуры переходов в той же транзакции, поэтому здесь только чтение.
type timelineRepository struct {
	q Querier
}

func (r *timelineRepository) List(ctx context.Context, orderID uuid.UUID) ([]domain.TimelineEvent, error) {
	records, err := queryMany(ctx, r.q, `
		SELECT id, order_id, actor_id, event_type, detail, created_at
		FROM order_timeline
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}

	events := make([]domain.TimelineEvent, 0, len(records))
	for _, rec := range records {
		event, err := mapTimelineEvent(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func mapTimelineEvent(rec Record) (domain.TimelineEvent, error) {
	var (
		event domain.TimelineEvent
		err   error
	)

	if event.ID, err = recordUUID(rec, "id"); err != nil {
		return domain.TimelineEvent{}, domain.Wrap(domain.KindGeneric, "decode timeline event", err)
	}
	if event.OrderID, err = recordUUID(rec, "order_id"); err != nil {
		return domain.TimelineEvent{}, domain.Wrap(domain.KindGeneric, "decode timeline event", err)
	}
	if event.ActorID, err = recordUUID(rec, "actor_id"); err != nil {
		return domain.TimelineEvent{}, domain.Wrap(domain.KindGeneric, "decode timeline event", err)
	}
	if event.EventType, err = recordString(rec, "event_type"); err != nil {
		return domain.TimelineEvent{}, domain.Wrap(domain.KindGeneric, "decode timeline event", err)
	}
	if event.Detail, err = recordString(rec, "detail"); err != nil {
		return domain.TimelineEvent{}, domain.Wrap(domain.KindGeneric, "decode timeline event", err)
	}
	if event.CreatedAt, err = recordTime(rec, "created_at"); err != nil {
		return domain.TimelineEvent{}, domain.Wrap(domain.KindGeneric, "decode timeline event", err)
	}

	return event, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
