// Package store provides SQLite-backed durable storage for candidate
// sessions.
//
// The store keeps:
//   - Deliveries: an assessment plus its settings (read-only to the engine)
//   - Candidate sessions: one row per candidate/delivery pairing, never deleted
//   - Candidate events: the append-only event log, the source of truth
//   - Candidate responses: one row per response identifier of an attempt
//   - Assessment results: results computed when an item closes or a session ends
//
// # Ordering
//
// Every event query orders by created_at ASC, id ASC. AppendEvent never
// writes a created_at earlier than the session's previous event, and ids
// are assigned in insertion order, so this is a total order in which the
// last event is the authoritative current state.
//
// # Tamper evidence
//
// Each event carries a digest chained from the previous event of the same
// session (see ir.EventDigest). VerifyChain recomputes the chain.
// UPDATE and DELETE on candidate_events abort via triggers.
//
// # Units of work
//
// Atomically runs a callback in one transaction so an engine operation's
// event, response and session writes commit together.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
