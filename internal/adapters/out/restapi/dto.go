package restapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/pkg/errs"
)

// The backend speaks snake_case JSON and may send coordinates as strings.

type locationDTO struct {
	Lat       json.Number `json:"lat"`
	Lng       json.Number `json:"lng"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

type agentDTO struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Phone       string       `json:"phone"`
	IsAvailable bool         `json:"is_available"`
	Location    *locationDTO `json:"location,omitempty"`
}

type orderDTO struct {
	ID              int64      `json:"id"`
	DeliveryStatus  string     `json:"delivery_status"`
	DeliveryAgentID *int64     `json:"delivery_agent_id,omitempty"`
	PickupAddress   string     `json:"pickup_address"`
	DropoffAddress  string     `json:"dropoff_address"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type placeDTO struct {
	Address string `json:"address"`
}

type trackingDTO struct {
	Status  string    `json:"status"`
	Pickup  *placeDTO `json:"pickup,omitempty"`
	Dropoff *placeDTO `json:"dropoff,omitempty"`
	Agent   *agentDTO `json:"agent,omitempty"`
}

type orderTrackingResponse struct {
	Order    *orderDTO    `json:"order"`
	Tracking *trackingDTO `json:"tracking"`
}

type agentStatusResponse struct {
	Agent *agentDTO `json:"agent"`
}

type profileDTO struct {
	ID              int64  `json:"id"`
	Role            string `json:"role"`
	DeliveryAgentID *int64 `json:"delivery_agent_id,omitempty"`
}

type profileResponse struct {
	User *profileDTO `json:"user"`
}

type orderStatusRequest struct {
	DeliveryStatus string `json:"delivery_status"`
}

type agentLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (d *locationDTO) toDomain() (*agent.Location, error) {
	if d == nil || d.Lat == "" || d.Lng == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(string(d.Lat), 64)
	if err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("lat", err)
	}
	lng, err := strconv.ParseFloat(string(d.Lng), 64)
	if err != nil {
		return nil, errs.NewValueIsInvalidErrorWithCause("lng", err)
	}

	coords, err := kernel.NewCoordinates(lat, lng)
	if err != nil {
		return nil, err
	}

	loc := &agent.Location{Coordinates: coords}
	if d.UpdatedAt != nil {
		loc.ObservedAt = d.UpdatedAt.UTC()
	}
	return loc, nil
}

func (d *agentDTO) toDomain() (*agent.Agent, error) {
	if d == nil {
		return nil, nil
	}

	loc, err := d.Location.toDomain()
	if err != nil {
		return nil, err
	}
	return agent.NewAgent(kernel.ID(d.ID), d.Name, d.Phone, d.IsAvailable, loc)
}

func (r orderTrackingResponse) toDomain() (ports.OrderTracking, error) {
	if r.Order == nil {
		return ports.OrderTracking{}, errs.NewValueIsRequiredError("order")
	}

	statusName := r.Order.DeliveryStatus
	if statusName == "" && r.Tracking != nil {
		statusName = r.Tracking.Status
	}
	if statusName == "" {
		statusName = order.Processing.String()
	}
	status, err := order.ParseStatus(statusName)
	if err != nil {
		return ports.OrderTracking{}, err
	}

	var trackedAgent *agent.Agent
	if r.Tracking != nil {
		if trackedAgent, err = r.Tracking.Agent.toDomain(); err != nil {
			return ports.OrderTracking{}, err
		}
	}

	var agentID *kernel.ID
	switch {
	case r.Order.DeliveryAgentID != nil:
		id := kernel.ID(*r.Order.DeliveryAgentID)
		agentID = &id
	case trackedAgent != nil:
		id := trackedAgent.ID()
		agentID = &id
	}
	if agentID != nil && trackedAgent != nil && trackedAgent.ID() != *agentID {
		return ports.OrderTracking{}, errs.NewValueIsInvalidErrorWithCause("agent",
			fmt.Errorf("tracking agent %s differs from assigned agent %s", trackedAgent.ID(), *agentID))
	}

	pickup, dropoff := r.Order.PickupAddress, r.Order.DropoffAddress
	if r.Tracking != nil {
		if pickup == "" && r.Tracking.Pickup != nil {
			pickup = r.Tracking.Pickup.Address
		}
		if dropoff == "" && r.Tracking.Dropoff != nil {
			dropoff = r.Tracking.Dropoff.Address
		}
	}

	var updatedAt time.Time
	if r.Order.UpdatedAt != nil {
		updatedAt = r.Order.UpdatedAt.UTC()
	}

	o, err := order.RestoreOrder(kernel.ID(r.Order.ID), status, pickup, dropoff, agentID, updatedAt)
	if err != nil {
		return ports.OrderTracking{}, err
	}

	return ports.OrderTracking{Order: o, Agent: trackedAgent}, nil
}

func (p *profileDTO) toCredential(token string) (ports.Credential, error) {
	if p == nil {
		return ports.Credential{}, errs.NewValueIsRequiredError("user")
	}

	userID, err := kernel.NewID(p.ID)
	if err != nil {
		return ports.Credential{}, err
	}

	cred := ports.Credential{Token: token, UserID: userID, Role: ports.Role(p.Role)}
	if cred.Role == ports.RoleAgent {
		if p.DeliveryAgentID == nil {
			return ports.Credential{}, errs.NewValueIsRequiredError("delivery_agent_id")
		}
		agentID, idErr := kernel.NewID(*p.DeliveryAgentID)
		if idErr != nil {
			return ports.Credential{}, idErr
		}
		cred.AgentID = &agentID
	}
	return cred, nil
}
