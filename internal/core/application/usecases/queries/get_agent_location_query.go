// Package queries contains read operations over the local tracking store.
// Queries bypass the repositories and read optimized rows with raw SQL.
package queries

import (
	"errors"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/guard"
)

var ErrGetAgentLocationQueryIsNotConstructed = errors.New(
	"GetAgentLocationQuery must be created via NewGetAgentLocationQuery constructor",
)

// GetAgentLocationQuery retrieves the cached last known location of an agent.
//
// Example:
//
//	query, err := NewGetAgentLocationQuery(7)
//	if err != nil {
//	    return err
//	}
//	location, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // no sample received since the cache was created
//	}
type GetAgentLocationQuery struct {
	agentID kernel.ID

	guard guard.ConstructorGuard
}

// NewGetAgentLocationQuery creates a query for the given agent.
func NewGetAgentLocationQuery(agentID kernel.ID) (GetAgentLocationQuery, error) {
	if err := agentID.Validate(); err != nil {
		return GetAgentLocationQuery{}, err
	}

	return GetAgentLocationQuery{
		agentID: agentID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetAgentLocationQuery) Validate() error {
	return q.guard.Validate(ErrGetAgentLocationQueryIsNotConstructed)
}

// AgentID returns the agent whose location is requested.
func (q GetAgentLocationQuery) AgentID() kernel.ID {
	return q.agentID
}

// GetAgentLocationQueryResponse is the read model of a cached location.
// FlushedAt is nil while the location has not been written back to the
// REST backend.
type GetAgentLocationQueryResponse struct {
	AgentID    kernel.ID  `json:"agentId"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	ObservedAt time.Time  `json:"observedAt"`
	FlushedAt  *time.Time `json:"flushedAt,omitempty"`
}
