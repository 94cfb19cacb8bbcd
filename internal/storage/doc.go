// Package storage provides the bot's SQLite persistence layer.
//
// It owns three concerns:
//   - Scheduled deliveries (the durable job queue, including the atomic
//     pending->sending claim used by the dispatcher)
//   - The image index (uploaded files plus their searchable text)
//   - Dedup state (content-hash keys with an expiry)
//
// A single *DB handle is opened once at startup and passed by reference into
// every consumer. All state transitions on scheduled rows go through this
// package; callers never mutate rows directly.
package storage
