package retrieval

import "github.com/GaraRoyal/memoryvault/vault"

// FilterByKnowledge applies the POV knowledge gate: with a POV
// character set, secret memories pass only when the POV character is in
// their known_by set. Non-secret memories always pass, and an empty POV
// disables the filter.
func FilterByKnowledge(memories []*vault.Memory, pov string) []*vault.Memory {
	if pov == "" {
		return memories
	}
	kept := make([]*vault.Memory, 0, len(memories))
	for _, m := range memories {
		if m.KnownTo(pov) {
			kept = append(kept, m)
		}
	}
	return kept
}
