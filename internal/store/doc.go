// Package store provides SQLite-backed storage for whereabouts.
//
// One database file holds:
//   - Location preferences: a user's declared home (location.PreferenceStore)
//   - Visits: coarse visit history, newest first (location.VisitStore)
//   - Telemetry events: append-only event log (telemetry.Sink)
//   - Bundle cache: persisted bundles per (user, session) (cache.Cache)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Timestamps are stored as unix milliseconds. Listing queries order by
// timestamp and then by seq so results are stable across runs.
package store
