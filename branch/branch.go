// Package branch reconciles stored memory state against a rebased chat
// history. Switching to a branch shortens the authoritative message
// count, which strands memories referencing messages that no longer
// exist; pruning removes them and cleans the dangling references they
// left in character and relationship state. The package also owns the
// auto-hide visibility policy that keeps long chats within prompt size.
package branch

import (
	"log"
	"math"

	"github.com/GaraRoyal/memoryvault/core"
	"github.com/GaraRoyal/memoryvault/vault"
)

// Config controls branch reconciliation.
type Config struct {
	// PruneEnabled gates branch-aware pruning entirely.
	PruneEnabled bool `yaml:"prune_enabled"`

	// AutoHideThreshold is how many recent messages stay visible.
	AutoHideThreshold int `yaml:"auto_hide_threshold"`

	// UnhideDelaySeconds defers the visibility reset after a branch
	// switch so the host's chat load settles first.
	UnhideDelaySeconds int `yaml:"unhide_delay_seconds"`
}

// DefaultConfig returns reconciliation defaults.
func DefaultConfig() Config {
	return Config{
		PruneEnabled:       true,
		AutoHideThreshold:  50,
		UnhideDelaySeconds: 2,
	}
}

// PruneResult reports what a pruning pass removed.
type PruneResult struct {
	// PrunedIDs are the removed memory ids.
	PrunedIDs []string

	// KnownEventsCleaned counts dangling known_events references removed
	// from character state.
	KnownEventsCleaned int

	// HistoryCleaned counts dangling relationship history entries removed.
	HistoryCleaned int
}

// Pruned returns the number of memories removed.
func (r PruneResult) Pruned() int { return len(r.PrunedIDs) }

// Prune removes memories stranded by a branch switch: any memory whose
// minimum referenced message index is at or beyond chatLength belongs to
// a branch that no longer exists. References to removed memories are
// cleaned from character known_events and relationship history; the
// characters and relationships themselves are never deleted. Running
// Prune twice with the same chatLength removes nothing the second time.
func Prune(v *vault.Vault, chatLength int, enabled bool) PruneResult {
	var res PruneResult
	if !enabled {
		return res
	}

	kept := v.Memories[:0]
	for _, m := range v.Memories {
		if min := m.MinMessageID(); min >= 0 && min >= chatLength {
			res.PrunedIDs = append(res.PrunedIDs, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	if len(res.PrunedIDs) == 0 {
		v.Memories = kept
		return res
	}
	v.Memories = kept

	for _, id := range res.PrunedIDs {
		for _, c := range v.Characters {
			if c.Knows(id) {
				c.RemoveKnownEvent(id)
				res.KnownEventsCleaned++
			}
		}
		for _, r := range v.Relationships {
			before := len(r.History)
			r.RemoveHistoryFor(id)
			res.HistoryCleaned += before - len(r.History)
		}
	}

	// The resume point cannot sit beyond the branch's actual length.
	if v.ExtractedUpTo > chatLength {
		v.ExtractedUpTo = chatLength
	}

	log.Printf("[BRANCH] Pruned %d stale memories (chat length %d)", len(res.PrunedIDs), chatLength)
	return res
}

// Unhide clears the auto-hidden flag on every message that the
// auto-hide policy set it on. Genuine system messages, which carry no
// speaker identity, are left untouched.
func Unhide(messages []core.Message) int {
	cleared := 0
	for i := range messages {
		if messages[i].AutoHidden() {
			messages[i].IsSystem = false
			cleared++
		}
	}
	return cleared
}

// AutoHide hides old, already-extracted messages beyond the visibility
// threshold. Messages are hidden oldest-first in same-parity pairs so
// user/assistant turn alignment survives, and never before extraction
// has captured them into at least one memory. Returns the number of
// messages hidden.
func AutoHide(messages []core.Message, v *vault.Vault, threshold int) int {
	if threshold <= 0 {
		threshold = DefaultConfig().AutoHideThreshold
	}

	visible := 0
	for i := range messages {
		if !messages[i].IsSystem {
			visible++
		}
	}
	if visible <= threshold {
		return 0
	}
	toHide := int(math.Floor(float64(visible-threshold)/2)) * 2
	if toHide <= 0 {
		return 0
	}

	extracted := v.ExtractedMessageSet()
	hidden := 0
	for i := range messages {
		if hidden >= toHide {
			break
		}
		m := &messages[i]
		if m.IsSystem || !extracted[m.Index] {
			continue
		}
		m.IsSystem = true
		hidden++
	}
	if hidden > 0 {
		log.Printf("[BRANCH] Auto-hid %d extracted messages (%d visible, threshold %d)", hidden, visible, threshold)
	}
	return hidden
}

// ReconcileVisibility resets visibility for a newly active branch:
// clear every auto-hidden flag, then re-apply the threshold policy
// against the branch's own history.
func ReconcileVisibility(messages []core.Message, v *vault.Vault, threshold int) (cleared, hidden int) {
	cleared = Unhide(messages)
	hidden = AutoHide(messages, v, threshold)
	return cleared, hidden
}
