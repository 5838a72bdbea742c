// Package model defines the records exchanged between the context resolvers,
// the bundle builder, the action filter and the public engine operations.
//
// Enumerations are string types so they serialize as their wire names. Fields
// that may be unknown are pointers; a nil pointer is "unknown", never "".
//
// Location precision stops at the city. No type in this package carries
// coordinates.
package model
