// Package schedule implements the scheduled-delivery engine.
//
// # Overview
//
// Deliveries are durable rows owned by the storage package. This package
// layers three things on top:
//
//   - Service: the command-facing facade (create / list / cancel) with input
//     validation and the repeat/absolute time arithmetic.
//   - Dispatcher: the polling loop that claims due rows, resolves each row's
//     destination sink, invokes the handler for its kind, and reports the
//     outcome back to the store.
//   - Registry: the kind -> Handler mapping. "text" is built in; other kinds
//     (e.g. "image_search") are registered by the host at startup.
//
// # Delivery guarantees
//
// A row is never dispatched before its run_at, but may be dispatched later
// (poll granularity, batch limits). Claiming is atomic in the store, so a row
// is handled by at most one dispatcher at a time. A handler failure is
// terminal for that row, even for repeating rows, and never aborts the rest
// of the batch. Rows stuck in "sending" after a crash are not reclaimed.
package schedule
