// Package locationrepo persists the last known location of each agent.
// One row per agent is overwritten, never appended, and only by a strictly
// newer sample.
package locationrepo

import (
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
)

// LocationDTO is the database row of an agent's cached location.
type LocationDTO struct {
	AgentID    int64     `gorm:"primaryKey;autoIncrement:false"`
	Lat        float64   `gorm:"not null"`
	Lng        float64   `gorm:"not null"`
	ObservedAt time.Time `gorm:"not null;index"`
	FlushedAt  *time.Time
	UpdatedAt  time.Time
}

// TableName specifies the database table name for cached locations.
func (LocationDTO) TableName() string {
	return "agent_locations"
}

// dbTime truncates to the precision postgres stores, so equality checks
// against stored timestamps hold.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func fromDomain(sample agent.LocationSample) LocationDTO {
	return LocationDTO{
		AgentID:    sample.AgentID().Int64(),
		Lat:        sample.Lat(),
		Lng:        sample.Lng(),
		ObservedAt: dbTime(sample.ObservedAt()),
	}
}

func toDomain(dto LocationDTO) (agent.LocationSample, error) {
	return agent.NewLocationSample(kernel.ID(dto.AgentID), dto.Lat, dto.Lng, dto.ObservedAt)
}
