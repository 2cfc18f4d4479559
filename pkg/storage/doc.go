// Package storage defines the byte-level storage contract used by the file
// server once a virtual path has been authorized and resolved.
//
// Implementations live in subpackages:
//   - local: the host filesystem (the only backend today)
//
// The Store interface operates on absolute paths produced by the access
// engine and maps filesystem failures onto the fserrors taxonomy so that
// protocol layers can translate them without inspecting OS errors.
package storage
