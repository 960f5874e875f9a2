// Package engine replicates an asset hierarchy from one AssetStore into
// another.
//
// ARCHITECTURE:
//
// A Syncer owns the two stores and the per-type Reconciler registry. Every
// top-level call (Walk or Sync) builds a fresh SyncContext that carries the
// policy, the walk options, the target lookup cache and the report; nothing
// survives the call.
//
// Walk Flow:
// 1. The walker visits the source hierarchy pre-order, depth-first, in the
//    order the source store lists children
// 2. Each entity is handed to the Reconciler registered for its type
// 3. The reconciler ensures the parent exists, binds declared dependencies
//    to target ids, rewrites payload references, reconciles the payload
//    against the target schema and compares with the target's current
//    content
// 4. A create or update is issued only when content differs
// 5. The outcome is appended to the report with the next logical seq
//
// Dependencies that are missing in the target are synchronised on demand
// before their dependent, so a dependency's report entry always precedes
// its dependent's.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Report entries are stamped from Clock.Next(). Wall-clock time is never
// used for ordering.
//
// Single Caller:
// One SyncContext is driven by one goroutine. Remote calls are issued one
// at a time; context cancellation is checked before each of them.
//
// Failure Policy:
// Strict aborts the whole call on the first error. Lenient records
// identity, dependency and drift failures as Failed entries and moves on;
// transport failures abort under either policy.
package engine
