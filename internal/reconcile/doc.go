// Package reconcile aligns structured payloads with their governing schema.
//
// Stored payloads are not guaranteed to match the current schema of the
// entity they belong to: the store enforces conformance on write only, so
// historical data may carry nodes the schema no longer declares (phantoms)
// or a different number of instances of a repeatable group.
//
// # Operations
//
//   - AlignArity: pad or trim the instances of one repeatable group.
//   - Detect: list phantom nodes. Read-only.
//   - Strip: remove phantom nodes. Only ever called explicitly.
//   - Check: report payloads that cannot satisfy the schema (DriftError).
//   - Merge: overlay a source payload onto a target payload, keeping the
//     target's instance shape where one exists.
//   - Conform: re-derive a payload under a schema it was not written for.
//
// All operations return new trees; inputs are never modified.
package reconcile
