// Package canon provides the canonical serialization used for content hashes.
//
// Bundle hashes must be identical across processes, restarts and
// reimplementations, so they are never computed over encoding/json output.
// Instead values are built from a closed set of types (String, Int, Bool,
// Array, Object) and serialized as RFC 8785 canonical JSON:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalized, no HTML escaping
//   - no floats and no null (absent optional fields are omitted)
//
// canon imports nothing internal.
package canon
