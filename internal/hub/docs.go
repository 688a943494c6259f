// Package hub routes location and status events from publishers to the
// connections subscribed to a topic.
//
// Key rules:
//   - Publish never blocks on a slow subscriber. Each connection owns a
//     bounded mailbox and overflow drops the event for that connection only.
//   - Events of one topic reach each connection in publish order.
//   - A subscriber sees only events published after Subscribe returns.
//   - No event of a topic is handed to a connection after Unsubscribe,
//     UnsubscribeAll or Unregister returns for it.
//
// Locks are taken in the order Hub.mu, topic.mu, connection.stateMu.
// connection.deliverMu is held only around Sink.Deliver and is never held
// while acquiring Hub.mu or a topic lock, so a Sink must not call back into
// the Hub.
package hub
