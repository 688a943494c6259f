// Package tracking keeps a subscriber's view of one order consistent with
// the REST snapshot while push events arrive out of order, twice or not at
// all.
//
// A Reconciler is seeded from a snapshot, then merges status events through
// the status machine and location samples by last-writer-wins on their
// observation time. A status event whose fromStatus no longer matches the
// view is discarded and the snapshot is fetched again, once, however many
// such events arrive concurrently.
package tracking
