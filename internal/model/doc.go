// Package model defines the askflow domain types.
//
// These are plain data structures shared by the store, the engine, and the
// harness. All identity is string UUIDs generated by the engine; the store
// never invents IDs. Enumerations (Role, Status, FieldType,
// NotificationType) are closed string sets validated at the boundary -
// an unknown value is rejected before it reaches storage.
package model
