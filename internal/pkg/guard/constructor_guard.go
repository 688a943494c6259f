// Package guard provides the constructor guard embedded by value objects,
// commands and queries so that zero values are rejected at use time.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when the caller passes
// no error of its own.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks a struct as built by its constructor. Embed it as
// a field, set it with NewConstructorGuard in the constructor and call
// Validate from the owner's Validate method.
//
// Example:
//
//	type TopicFilter struct {
//	    topic kernel.Topic
//	    guard guard.ConstructorGuard
//	}
//
//	func (f TopicFilter) Validate() error {
//	    return f.guard.Validate(ErrTopicFilterIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard that reports its owner as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is
// nil) if the owner is a zero value, and nil otherwise.
func (g ConstructorGuard) Validate(validationError error) error {
	if g.isConstructed {
		return nil
	}
	if validationError == nil {
		return ErrDefaultConstructorGuard
	}
	return validationError
}
