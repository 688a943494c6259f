package kernel

import (
	"fmt"
	"strconv"

	"trackinghub/internal/pkg/errs"
)

// ID is the numeric identity of an order or an agent. IDs are issued by the
// REST backend and are always positive.
type ID int64

// NewID validates and wraps a raw identifier.
//
// Returns a ValueIsInvalidError when value is not positive.
func NewID(value int64) (ID, error) {
	id := ID(value)
	if err := id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}

// ParseID parses a decimal identifier such as a path parameter.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.NewValueIsInvalidErrorWithCause("id", err)
	}
	return NewID(v)
}

// Validate returns an error for zero and negative identifiers.
func (id ID) Validate() error {
	if id <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("id", fmt.Errorf("%d is not greater than 0", int64(id)))
	}
	return nil
}

// Int64 returns the raw identifier.
func (id ID) Int64() int64 {
	return int64(id)
}

// String returns the decimal representation.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
