package queries

import (
	"context"
	"database/sql"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"

	"gorm.io/gorm"
)

// GetAgentLocationQueryHandler reads the location cache.
type GetAgentLocationQueryHandler struct {
	db *gorm.DB
}

// NewGetAgentLocationQueryHandler creates a handler reading through db.
func NewGetAgentLocationQueryHandler(db *gorm.DB) GetAgentLocationQueryHandler {
	return GetAgentLocationQueryHandler{db: db}
}

// Handle returns the cached location, or an error wrapping
// errs.ErrObjectNotFound when the agent has none.
func (h GetAgentLocationQueryHandler) Handle(
	ctx context.Context,
	query GetAgentLocationQuery,
) (GetAgentLocationQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetAgentLocationQueryResponse{}, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			agent_id,
			lat,
			lng,
			observed_at,
			flushed_at
		FROM agent_locations
		WHERE agent_id = ?
	`, query.AgentID().Int64()).Rows()
	if err != nil {
		return GetAgentLocationQueryResponse{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return GetAgentLocationQueryResponse{}, err
		}
		return GetAgentLocationQueryResponse{}, errs.NewObjectNotFoundError("agentId", query.AgentID())
	}

	var (
		response  GetAgentLocationQueryResponse
		agentID   int64
		flushedAt sql.NullTime
	)
	if err = rows.Scan(&agentID, &response.Lat, &response.Lng, &response.ObservedAt, &flushedAt); err != nil {
		return GetAgentLocationQueryResponse{}, err
	}

	response.AgentID = kernel.ID(agentID)
	response.ObservedAt = response.ObservedAt.UTC()
	if flushedAt.Valid {
		t := flushedAt.Time.UTC()
		response.FlushedAt = &t
	}

	return response, nil
}
