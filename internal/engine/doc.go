// Package engine implements the askflow question/answer workflow core.
//
// The engine is the only component that mutates workflow state. Every
// operation takes an explicit principal (never ambient request state),
// resolves project access first, validates all business preconditions,
// and only then writes - so a validation failure never needs a
// compensating action.
//
// ARCHITECTURE:
//
// Transactional mutations:
// Each mutating operation wraps its writes in exactly one store
// transaction. Notifications are inserted inside the same transaction as
// the mutation that triggers them, so a notification is never observable
// without its cause having committed.
//
// Precondition re-reads:
// Authorization and structural checks run on pre-transaction reads (they
// are pure), but data preconditions that gate a write - question status,
// answer count - are re-read inside the transaction. A second writer
// racing on the same question serializes through SQLite and sees
// committed state, never the stale snapshot its caller read.
//
// The deadline sweep is a separate schedulable pass. It processes each
// overdue question in its own transaction, flipping deadline_notified
// together with the notification inserts, which is what makes re-running
// a crashed sweep safe.
//
// All operations return tagged *Error values; callers map Kind to their
// transport's status codes.
package engine
