// Package asset provides the data model for content entities ("assets")
// held by a content store instance.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import asset; asset imports nothing internal.
//
// Key design constraints:
//   - (Type, Path, Site) is the only identity stable across store instances.
//     It is modelled by Ref, and ParseRef is the single place that parses it.
//   - Entity.ID is instance-local and never portable.
//   - Entities are snapshots: helpers return copies, nothing mutates in place.
//   - Content equality is decided by Fingerprint (RFC 8785 canonical JSON,
//     NFC-normalised, SHA-256 with domain separation).
package asset
