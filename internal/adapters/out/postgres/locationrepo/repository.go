package locationrepo

import (
	"context"
	"errors"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLocationRepository implements ports.LocationRepository using GORM.
type GormLocationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormLocationRepository creates a new GORM location repository.
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db, now: time.Now}
}

// Save upserts the sample when it is strictly newer than the cached row.
// A replaced row becomes unflushed again.
func (r *GormLocationRepository) Save(ctx context.Context, sample agent.LocationSample) (bool, error) {
	if err := sample.Validate(); err != nil {
		return false, err
	}

	dto := fromDomain(sample)
	dto.UpdatedAt = dbTime(r.now())

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"lat", "lng", "observed_at", "flushed_at", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "agent_locations.observed_at < excluded.observed_at"},
		}},
	}).Create(&dto)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// Get retrieves the cached location of an agent.
func (r *GormLocationRepository) Get(ctx context.Context, agentID kernel.ID) (agent.LocationSample, error) {
	var dto LocationDTO
	err := r.db.WithContext(ctx).Where("agent_id = ?", agentID.Int64()).First(&dto).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return agent.LocationSample{}, errs.NewObjectNotFoundError("agentId", agentID)
	}
	if err != nil {
		return agent.LocationSample{}, err
	}

	return toDomain(dto)
}

// GetUnflushed retrieves up to limit rows not yet written back, oldest first.
func (r *GormLocationRepository) GetUnflushed(ctx context.Context, limit int) ([]agent.LocationSample, error) {
	var dtos []LocationDTO
	err := r.db.WithContext(ctx).
		Where("flushed_at IS NULL").
		Order("observed_at").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	samples := make([]agent.LocationSample, 0, len(dtos))
	for _, dto := range dtos {
		sample, convErr := toDomain(dto)
		if convErr != nil {
			return nil, convErr
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// MarkFlushed stamps the row as written back, unless a newer sample
// replaced it in the meantime.
func (r *GormLocationRepository) MarkFlushed(ctx context.Context, sample agent.LocationSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&LocationDTO{}).
		Where("agent_id = ? AND observed_at = ?", sample.AgentID().Int64(), dbTime(sample.ObservedAt())).
		Update("flushed_at", dbTime(r.now())).Error
}
