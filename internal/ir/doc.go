// Package ir provides the canonical types of the delivery engine.
//
// This package contains type definitions and their canonical encodings only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - scores and durations are int64
//   - Relations between sessions, events and test plan nodes are ids and keys,
//     never pointers (events reference targets by id, test plans are arenas)
//   - Event and state snapshots are stored as canonical JSON so digests are
//     stable across processes
//   - All JSON tags use snake_case
package ir
