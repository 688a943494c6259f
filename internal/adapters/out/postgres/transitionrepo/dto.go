// Package transitionrepo persists the journal of status transitions the
// hub applied and broadcast.
package transitionrepo

import (
	"time"

	"trackinghub/internal/core/domain/model/order"
)

// TransitionDTO is one journal row.
type TransitionDTO struct {
	ID           int64     `gorm:"primaryKey"`
	OrderID      int64     `gorm:"not null;index"`
	FromStatus   string    `gorm:"type:varchar(32);not null"`
	ToStatus     string    `gorm:"type:varchar(32);not null"`
	ActorAgentID *int64    `gorm:"index"`
	ObservedAt   time.Time `gorm:"not null"`
	RecordedAt   time.Time `gorm:"not null"`
}

// TableName specifies the database table name for journal rows.
func (TransitionDTO) TableName() string {
	return "order_transitions"
}

func fromDomain(ev order.StatusEvent, recordedAt time.Time) TransitionDTO {
	var actor *int64
	if ev.ActorAgentID != nil {
		id := ev.ActorAgentID.Int64()
		actor = &id
	}

	return TransitionDTO{
		OrderID:      ev.OrderID.Int64(),
		FromStatus:   ev.From.String(),
		ToStatus:     ev.To.String(),
		ActorAgentID: actor,
		ObservedAt:   ev.ObservedAt.UTC(),
		RecordedAt:   recordedAt.UTC(),
	}
}
