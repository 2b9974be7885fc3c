package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimelineEvent — запись аудита жизненного цикла заказа.
type TimelineEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	EventType string
	// Detail хранит причину перехода, если она была указана.
	Detail    string
	CreatedAt time.Time
}
