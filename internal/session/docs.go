// Package session supervises one client's push channel: dial,
// authenticate, snapshot, subscribe, and reconnect with exponential
// backoff when the transport drops.
//
// Lifecycle:
//
//	Disconnected ──> Connecting ──> Authenticated ──> Subscribed
//	      ^               │               │               │
//	      └───────────────┴───── drop ────┴───────────────┘
//
// A rejected credential ends Run with an error wrapping errs.ErrUnauthorized;
// it is never retried. Any other failure is retried until the backoff's
// elapsed-time budget runs out, after which Run returns an error wrapping
// errs.ErrTransportDropped.
//
// A topic the server refuses is reported to listeners implementing
// RejectionListener and is not subscribed again, across reconnects, while
// any listener still needs it.
package session
