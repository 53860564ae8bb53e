// Package harness runs end-to-end reconciliation scenarios: a scripted
// remote account, a roster, and a target file, driven through the real
// match, plan, and apply paths against an in-memory audit database.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario demonstrates"
//	day: 2026-03-01
//	roster:
//	  - first_name: Chaeyeon
//	    last_name: Kim
//	    email: chaeyeon.kim@example.com
//	    mq_id: "60853425"
//	    budget: 3
//	    reset: weekly
//	remote:
//	  - hash: hash-a
//	    name: 20260227_Dasol Kim_60853379
//	    label: sk-or-v1-aaa
//	    limit: 25
//	    usage: 1.5
//	    reset: weekly
//	targets:
//	  - email: dasol.kim@example.com
//	    limit: 5
//	    disabled: true
//	ops: [check, provision, update]
//	assertions:
//	  - type: changelog_contains
//	    action: provisioned
//	    key_name: 20260301_Chaeyeon Kim_60853425
//
// Ops run in order against the same store and fake remote, so a scenario
// covers whole operator sessions, not single commands. A halted batch is
// recorded in the transcript and the scenario keeps going; that is how
// the halt-and-preserve behavior itself gets exercised.
//
// # Assertion Types
//
//   - changelog_contains: an entry with the given action (and key name)
//     exists
//   - changelog_order: actions appear in this order in the changelog
//   - changelog_count: the action appears exactly count times
//   - remote_state: the named key's final limit and disabled state
//
// # Determinism
//
// Scenarios run with a frozen clock pinned to the scenario day, no
// pacing delay, and a fake remote that mints sequential hashes and
// secrets. The same scenario always produces a byte-identical
// transcript, which is what the golden files compare against.
package harness
