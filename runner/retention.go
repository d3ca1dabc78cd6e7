package runner

import "strings"

// RetentionPolicy whitelists the scratch entries that survive a turn
// boundary. Everything not matched is cleared when the turn completes, so
// turn-scoped working state (parallel search batches, intermediate
// drafts) never bleeds into the next turn.
//
// Keys match exactly. Prefixes match whole dotted segments: "Research"
// keeps "Research.KBSearch.result" but not "ResearchNotes".
type RetentionPolicy struct {
	Keys     []string
	Prefixes []string
}

// Keep reports whether the given scratch key survives the turn.
func (p RetentionPolicy) Keep(key string) bool {
	for _, k := range p.Keys {
		if key == k {
			return true
		}
	}

	for _, prefix := range p.Prefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}

	return false
}

// Empty reports whether the policy retains nothing.
func (p RetentionPolicy) Empty() bool {
	return len(p.Keys) == 0 && len(p.Prefixes) == 0
}
