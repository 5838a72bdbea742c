// Package engine exposes the public whereabouts operations: computing and
// reading a user's context bundle, filtering candidate actions against it,
// and applying manual overrides.
//
// ARCHITECTURE:
//
// Request Flow:
// 1. The caller's (user, session) pair becomes a cache.Key
// 2. A live cached bundle is returned unless a refresh is forced
// 3. Otherwise bundle.Builder resolves location, mobility and environment
// 4. The sealed bundle is cached and a telemetry event is emitted
//
// Computation is request-scoped and needs no locks. Concurrent computes for
// the same key may both miss and both write; recomputation from identical
// inputs is idempotent so the loser costs one extra build. Overrides are a
// read-modify-write of the cached bundle and are serialized per Engine.
//
// Degradation:
// Store and cache read failures are logged and treated as "no data". Only
// failures that would lose or corrupt a result surface as INTERNAL errors,
// and those are reported to telemetry as context_error.
//
// Telemetry emission is fire-and-forget: a failing sink is logged and never
// fails the operation.
package engine
