// Package ir holds the data model shared by every stage of the sqlab
// compiler: notebook cells on the way in, the token-indexed records on the
// way out, and the canonical JSON used to fingerprint them.
//
// This package imports nothing internal. All other internal packages
// import ir.
//
// Conventions:
//   - JSON tags use snake_case
//   - Records are addressed by token strings, never by position
//   - Canonical JSON has no floats and no nulls
package ir
