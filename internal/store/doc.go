// Package store provides SQLite-backed durable storage for the key
// tracking database.
//
// The remote provisioning service remains the source of truth for live key
// state. This store keeps what the remote service cannot:
//   - Students: roster identity at time of first sync (created_at preserved)
//   - Keys: last observed state of each remote key
//   - Usage: append-only usage snapshots, one per key per sync
//   - Changelog: append-only record of every mutation applied remotely
//
// # Write Discipline
//
//   - SyncState runs in a single transaction; a crash mid-sync leaves the
//     previous state intact
//   - AppendChangelog commits per entry, so a halted batch keeps the
//     history of everything applied before the failure
//   - Upserts use ON CONFLICT DO UPDATE, never INSERT OR REPLACE, to
//     preserve created_at and keep foreign keys satisfied
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema versioning uses PRAGMA user_version. Create stamps new databases;
// Open refuses files at any other version rather than migrating in place.
package store
