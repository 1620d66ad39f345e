// Package store provides durable storage for askflow on SQLite.
//
// The store is the single source of truth for projects, memberships,
// questions, answers, forms, media ownership, and notifications. It is
// deliberately dumb: every business rule lives in the engine, and the
// store only guarantees that multi-row writes are atomic.
//
// Atomicity is delegated to SQLite transactions via InTx. The connection
// pool is limited to a single writer (SQLite allows only one anyway), so
// concurrent interactive requests and the deadline sweep serialize
// through the database rather than through in-process locks.
//
// Timestamps are stored as unix seconds; optional deadlines as nullable
// integers. All IDs are caller-supplied string UUIDs.
package store
