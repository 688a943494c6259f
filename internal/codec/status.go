package codec

import (
	"encoding/json"
	"time"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/pkg/errs"
)

// StatusRequest is the inbound statusUpdate payload an agent sends.
type StatusRequest struct {
	OrderID  kernel.ID
	ToStatus order.Status
}

type statusRequestWire struct {
	OrderID  *flexInt `json:"orderId"`
	ToStatus string   `json:"toStatus"`
}

type statusUpdateWire struct {
	OrderID      int64     `json:"orderId"`
	Status       string    `json:"status"`
	FromStatus   string    `json:"fromStatus"`
	ActorAgentID *int64    `json:"actorAgentId,omitempty"`
	ObservedAt   time.Time `json:"observedAt"`
}

// DecodeStatusRequest parses an agent's statusUpdate request.
func DecodeStatusRequest(raw []byte) (StatusRequest, error) {
	var in statusRequestWire
	if err := json.Unmarshal(raw, &in); err != nil {
		return StatusRequest{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", err)
	}
	if in.OrderID == nil {
		return StatusRequest{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", errs.NewValueIsRequiredError("orderId"))
	}

	orderID, err := kernel.NewID(int64(*in.OrderID))
	if err != nil {
		return StatusRequest{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", err)
	}
	to, err := order.ParseStatus(in.ToStatus)
	if err != nil {
		return StatusRequest{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", err)
	}

	return StatusRequest{OrderID: orderID, ToStatus: to}, nil
}

// EncodeStatusRequest renders an agent's statusUpdate request.
func EncodeStatusRequest(req StatusRequest) ([]byte, error) {
	return json.Marshal(map[string]any{
		"orderId":  req.OrderID.Int64(),
		"toStatus": req.ToStatus.String(),
	})
}

// EncodeStatusUpdate renders an applied transition as the outbound
// statusUpdate payload.
func EncodeStatusUpdate(ev order.StatusEvent) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	out := statusUpdateWire{
		OrderID:    ev.OrderID.Int64(),
		Status:     ev.To.String(),
		FromStatus: ev.From.String(),
		ObservedAt: ev.ObservedAt,
	}
	if ev.ActorAgentID != nil {
		actor := ev.ActorAgentID.Int64()
		out.ActorAgentID = &actor
	}
	return json.Marshal(out)
}

// DecodeStatusUpdate parses an outbound statusUpdate payload on the
// subscriber side.
func DecodeStatusUpdate(raw []byte) (order.StatusEvent, error) {
	var in statusUpdateWire
	if err := json.Unmarshal(raw, &in); err != nil {
		return order.StatusEvent{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", err)
	}

	from, fromErr := order.ParseStatus(in.FromStatus)
	if fromErr != nil {
		return order.StatusEvent{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", fromErr)
	}
	to, toErr := order.ParseStatus(in.Status)
	if toErr != nil {
		return order.StatusEvent{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", toErr)
	}

	var actor *kernel.ID
	if in.ActorAgentID != nil {
		id := kernel.ID(*in.ActorAgentID)
		actor = &id
	}

	ev, err := order.NewStatusEvent(kernel.ID(in.OrderID), from, to, actor, in.ObservedAt)
	if err != nil {
		return order.StatusEvent{}, errs.NewInvalidPayloadErrorWithCause("statusUpdate", err)
	}
	return ev, nil
}
