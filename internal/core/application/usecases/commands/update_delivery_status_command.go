package commands

import (
	"errors"

	"trackinghub/internal/core/ports"
	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/pkg/guard"
)

var ErrUpdateDeliveryStatusCommandIsNotConstructed = errors.New(
	"UpdateDeliveryStatusCommand must be created via NewUpdateDeliveryStatusCommand constructor",
)

// UpdateDeliveryStatusCommand is an agent's request to move an order along
// the delivery flow ("Start delivery", "Mark delivered"). It carries the raw
// statusUpdate payload and the credential of the requesting connection.
type UpdateDeliveryStatusCommand struct { //nolint:recvcheck //using for validation
	actor   ports.Credential
	payload []byte

	guard guard.ConstructorGuard
}

// NewUpdateDeliveryStatusCommand validates that the actor carries a token
// and the payload is not empty.
func NewUpdateDeliveryStatusCommand(actor ports.Credential, payload []byte) (UpdateDeliveryStatusCommand, error) {
	cmd := UpdateDeliveryStatusCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setActor(actor),
		cmd.setPayload(payload),
	); err != nil {
		return UpdateDeliveryStatusCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateDeliveryStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateDeliveryStatusCommandIsNotConstructed)
}

// Actor returns the credential of the requesting agent.
func (c UpdateDeliveryStatusCommand) Actor() ports.Credential {
	return c.actor
}

// Payload returns a copy of the raw statusUpdate payload.
func (c UpdateDeliveryStatusCommand) Payload() []byte {
	return append([]byte(nil), c.payload...)
}

func (c *UpdateDeliveryStatusCommand) setActor(actor ports.Credential) error {
	if actor.Token == "" {
		return errs.NewValueIsRequiredError("actor")
	}

	c.actor = actor
	return nil
}

func (c *UpdateDeliveryStatusCommand) setPayload(payload []byte) error {
	if len(payload) == 0 {
		return errs.NewValueIsRequiredError("payload")
	}

	c.payload = append([]byte(nil), payload...)
	return nil
}
