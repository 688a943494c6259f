// Package order provides the delivery status machine and the tracking
// projection of an order.
//
// The package includes:
//   - Status: the delivery states and their legal successors
//   - StatusEvent: an ephemeral record of a status change
//   - Apply / ApplyAgentRequest: the status machine decision functions
//   - Order: the aggregate a subscriber's view holds for one order
//
// Key business rules:
//   - processing -> assigned -> out_for_delivery -> delivered
//   - any non-terminal status may move to cancelled or returned
//   - delivered, cancelled and returned are terminal
//   - agents request only assigned -> out_for_delivery and out_for_delivery -> delivered
//   - an event applies only when its From matches the current status
package order
