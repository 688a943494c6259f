// Package agent provides the delivery agent entity and the location samples
// its device emits.
//
// Key business rules:
//   - samples carry finite coordinates within [-90,90] x [-180,180]
//   - the last known location is overwritten, never appended
//   - a sample replaces the last known location only when it is strictly
//     newer by observation time, whatever order samples arrive in
package agent
