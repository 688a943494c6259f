package transitionrepo

import (
	"context"
	"time"

	"trackinghub/internal/core/domain/model/order"

	"gorm.io/gorm"
)

// GormTransitionRepository implements ports.TransitionRepository using GORM.
type GormTransitionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormTransitionRepository creates a new GORM transition repository.
func NewGormTransitionRepository(db *gorm.DB) *GormTransitionRepository {
	return &GormTransitionRepository{db: db, now: time.Now}
}

// Add appends an applied transition to the journal.
func (r *GormTransitionRepository) Add(ctx context.Context, ev order.StatusEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	dto := fromDomain(ev, r.now())
	return r.db.WithContext(ctx).Create(&dto).Error
}
