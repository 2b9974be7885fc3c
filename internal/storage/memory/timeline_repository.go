package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type timelineRepository struct {
	st *state
}

// List возвращает события заказа в порядке их наступления.
func (r *timelineRepository) List(ctx context.Context, orderID uuid.UUID) ([]domain.TimelineEvent, error) {
	events := r.st.timeline[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
