// Package kernel provides the primitives shared by the tracking domain model.
//
// The package includes:
//   - ID: the numeric identity of orders and agents as issued by the REST backend
//   - Topic: a routing key of the form "order:<id>" or "agent:<id>"
//   - Coordinates: a validated latitude/longitude pair
//   - UUID: the identity of a live push-channel connection
//
// Values are immutable and safe for concurrent use. Zero values are invalid
// and fail Validate, so domain objects can reject values that bypassed
// their constructors.
package kernel
