package commands

import (
	"errors"

	"trackinghub/internal/core/ports"
	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/pkg/guard"
)

var ErrRecordLocationCommandIsNotConstructed = errors.New(
	"RecordLocationCommand must be created via NewRecordLocationCommand constructor",
)

// RecordLocationCommand carries a raw locationUpdate payload together with
// the credential of the connection it arrived on. The payload is decoded by
// the handler so malformed samples are counted and dropped in one place.
//
// Example:
//
//	cmd, err := NewRecordLocationCommand(cred, []byte(`{"agentId":7,"lat":-1.28,"lng":36.81}`))
//	if err != nil {
//	    return err
//	}
//	if err := handler.Handle(ctx, cmd); errors.Is(err, errs.ErrInvalidPayload) {
//	    // sample dropped, nothing was broadcast
//	}
type RecordLocationCommand struct { //nolint:recvcheck //using for validation
	actor   ports.Credential
	payload []byte

	guard guard.ConstructorGuard
}

// NewRecordLocationCommand validates that the actor carries a token and the
// payload is not empty.
func NewRecordLocationCommand(actor ports.Credential, payload []byte) (RecordLocationCommand, error) {
	cmd := RecordLocationCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setActor(actor),
		cmd.setPayload(payload),
	); err != nil {
		return RecordLocationCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c RecordLocationCommand) Validate() error {
	return c.guard.Validate(ErrRecordLocationCommandIsNotConstructed)
}

// Actor returns the credential of the sender.
func (c RecordLocationCommand) Actor() ports.Credential {
	return c.actor
}

// Payload returns a copy of the raw locationUpdate payload.
func (c RecordLocationCommand) Payload() []byte {
	return append([]byte(nil), c.payload...)
}

func (c *RecordLocationCommand) setActor(actor ports.Credential) error {
	if actor.Token == "" {
		return errs.NewValueIsRequiredError("actor")
	}

	c.actor = actor
	return nil
}

func (c *RecordLocationCommand) setPayload(payload []byte) error {
	if len(payload) == 0 {
		return errs.NewValueIsRequiredError("payload")
	}

	c.payload = append([]byte(nil), payload...)
	return nil
}
