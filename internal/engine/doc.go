// Package engine implements the reconciliation pipeline: matching remote
// keys to roster identities, diffing actual state against declared
// targets, and applying the resulting deltas.
//
// ARCHITECTURE:
//
// Fetch-Diff-Apply Pipeline:
// 1. MatchKeys joins the remote listing to the roster by the student
//    identifier embedded in each key name, partitioning keys into
//    matched and orphaned. Pure function of its inputs.
// 2. ComputeChanges compares each matched key's actual (limit, disabled)
//    state against its declared target and emits an ordered change list.
//    A target that was never set falls back to the actual value, so a
//    fresh target file diffs to nothing.
// 3. Applier pushes changes to the remote service one at a time, in
//    order, recording a changelog entry after each success and halting
//    on the first failure. Applied work is never rolled back.
//
// Provisioning follows the same single-item, halt-on-first-failure
// contract: PlanProvision decides who needs a key, Applier.Provision
// creates them and logs each one.
//
// CRITICAL PATTERNS:
//
// Remote Listing Is Truth
// The remote listing is the sole source of truth for key existence.
// The engine never consults the local database to decide what exists
// remotely; it only mirrors observed state into it after mutations.
//
// Sequential Remote Calls
// All remote calls run one at a time on the calling goroutine. The
// Pacer inserts a fixed delay between consecutive calls as a rate
// courtesy; it is not a concurrency primitive. Re-running a command is
// the only retry mechanism, which is safe because a re-run diffs
// against fresh actual state and re-applies only what still differs.
package engine
