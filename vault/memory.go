// Package vault implements the per-conversation persisted memory state:
// extracted memories, character emotional state, pairwise relationships,
// and the auxiliary world-state entities (secrets, locations, promises,
// goals, skills).
//
// The vault is a plain JSON-serializable object attached to the host's
// conversation persistence and round-tripped verbatim. All invariants
// (importance clamp, dimension clamps, canonical relationship keys,
// bounded histories) are enforced at mutation time, and re-checked on
// load by Validate.
package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/GaraRoyal/memoryvault/core"
)

// SequenceStride spaces memory sequence numbers so that up to this many
// events per batch starting message cannot collide.
const SequenceStride = 1000

// Memory is a discrete extracted narrative event.
type Memory struct {
	ID                 string                             `json:"id"`
	Summary            string                             `json:"summary"`
	EventType          core.EventType                     `json:"event_type"`
	CharactersInvolved []string                           `json:"characters_involved,omitempty"`
	Witnesses          []string                           `json:"witnesses,omitempty"`
	Location           string                             `json:"location,omitempty"`
	IsSecret           bool                               `json:"is_secret,omitempty"`
	KnownBy            []string                           `json:"known_by,omitempty"`
	Importance         int                                `json:"importance"`
	EmotionalTone      []string                           `json:"emotional_tone,omitempty"`
	EmotionalValence   float64                            `json:"emotional_valence"`
	EmotionalImpact    map[string]string                  `json:"emotional_impact,omitempty"`
	RelationshipImpact map[string]core.RelationshipImpact `json:"relationship_impact,omitempty"`
	Embedding          []float32                          `json:"embedding,omitempty"`
	Pinned             bool                               `json:"pinned,omitempty"`
	MessageIDs         []int                              `json:"message_ids"`
	Sequence           int                                `json:"sequence"`
	CreatedAt          time.Time                          `json:"created_at"`
	BatchID            string                             `json:"batch_id,omitempty"`
}

// MinMessageID returns the smallest referenced message index, or -1 for
// a memory with no message references.
func (m *Memory) MinMessageID() int {
	if len(m.MessageIDs) == 0 {
		return -1
	}
	min := m.MessageIDs[0]
	for _, id := range m.MessageIDs[1:] {
		if id < min {
			min = id
		}
	}
	return min
}

// MaxMessageID returns the largest referenced message index, or -1 for
// a memory with no message references.
func (m *Memory) MaxMessageID() int {
	if len(m.MessageIDs) == 0 {
		return -1
	}
	max := m.MessageIDs[0]
	for _, id := range m.MessageIDs[1:] {
		if id > max {
			max = id
		}
	}
	return max
}

// KnownTo reports whether the named character knows this memory. Secret
// memories are known only to their known_by set; everything else is
// common knowledge.
func (m *Memory) KnownTo(name string) bool {
	if !m.IsSecret {
		return true
	}
	for _, k := range m.KnownBy {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// SearchText returns the text the keyword scorer matches against:
// summary, involved characters, and location.
func (m *Memory) SearchText() string {
	var b strings.Builder
	b.WriteString(m.Summary)
	for _, c := range m.CharactersInvolved {
		b.WriteByte(' ')
		b.WriteString(c)
	}
	if m.Location != "" {
		b.WriteByte(' ')
		b.WriteString(m.Location)
	}
	return b.String()
}

// Format renders the memory for prompt injection.
func (m *Memory) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", m.EventType, m.Summary)
	if m.Location != "" {
		fmt.Fprintf(&b, " (at %s)", m.Location)
	}
	if m.IsSecret {
		fmt.Fprintf(&b, " [secret, known to: %s]", strings.Join(m.KnownBy, ", "))
	}
	return b.String()
}

// ClampImportance forces importance into [1,5] regardless of what the
// extraction produced.
func (m *Memory) ClampImportance() {
	if m.Importance < 1 {
		m.Importance = 1
	}
	if m.Importance > 5 {
		m.Importance = 5
	}
}

// normalizeKnownBy enforces the known_by invariant: non-nil iff secret.
func (m *Memory) normalizeKnownBy() {
	if !m.IsSecret {
		m.KnownBy = nil
		return
	}
	if m.KnownBy == nil {
		m.KnownBy = []string{}
	}
}
