package commands

import (
	"errors"
	"fmt"

	"trackinghub/internal/pkg/errs"
	"trackinghub/internal/pkg/guard"
)

// DefaultFlushBatchSize bounds how many cached locations one flush writes back.
const DefaultFlushBatchSize = 100

var ErrFlushLocationsCommandIsNotConstructed = errors.New(
	"FlushLocationsCommand must be created via NewFlushLocationsCommand constructor",
)

// FlushLocationsCommand writes the newest cached location of each agent
// back to the REST backend.
type FlushLocationsCommand struct { //nolint:recvcheck //using for validation
	batchSize int

	guard guard.ConstructorGuard
}

// NewFlushLocationsCommand creates a flush of at most batchSize locations.
func NewFlushLocationsCommand(batchSize int) (FlushLocationsCommand, error) {
	cmd := FlushLocationsCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := cmd.setBatchSize(batchSize); err != nil {
		return FlushLocationsCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c FlushLocationsCommand) Validate() error {
	return c.guard.Validate(ErrFlushLocationsCommandIsNotConstructed)
}

// BatchSize returns the maximum number of locations written back.
func (c FlushLocationsCommand) BatchSize() int {
	return c.batchSize
}

func (c *FlushLocationsCommand) setBatchSize(batchSize int) error {
	if batchSize <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("batchSize", fmt.Errorf("%d is not greater than 0", batchSize))
	}

	c.batchSize = batchSize
	return nil
}
