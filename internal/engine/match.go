package engine

import (
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
)

// Match is a remote key joined to the roster student it belongs to.
type Match struct {
	Key     keys.RemoteKey
	Email   string
	Student roster.Student
}

// Orphan is a remote key whose name resolves to no roster student.
// Parsed carries the decoded name parts for diagnostics: an orphan with a
// non-empty Parsed.MQID belongs to someone who has left the roster, while
// an empty one was never named by this tool's convention.
type Orphan struct {
	Key    keys.RemoteKey
	Parsed keys.ParsedName
}

// MatchKeys partitions the remote listing into keys matched to roster
// students and orphans, preserving listing order in both partitions.
//
// Matching is by the student identifier decoded from the key name, never
// by display name: a key whose name lacks an identifier is orphaned even
// when an identically-named student exists. Every input key lands in
// exactly one partition.
func MatchKeys(remote []keys.RemoteKey, ros roster.Roster) (matched []Match, orphaned []Orphan) {
	lookup := make(map[string]roster.Student, len(ros))
	for _, st := range ros {
		if st.MQID == "" {
			continue
		}
		lookup[st.MQID] = st
	}

	for _, key := range remote {
		parsed := keys.ParseName(key.Name)

		st, ok := lookup[parsed.MQID]
		if parsed.MQID == "" || !ok {
			orphaned = append(orphaned, Orphan{Key: key, Parsed: parsed})
			continue
		}
		matched = append(matched, Match{Key: key, Email: st.Email, Student: st})
	}

	return matched, orphaned
}
