// Package keys defines the vocabulary shared across the reconciliation
// pipeline: remote key records, the optional credit limit, reset cadences,
// and the key-name identity codec.
//
// Everything here is a plain value type. Matching, diffing, and persistence
// live in the engine and store packages; file formats live in roster,
// limits, and export.
package keys
