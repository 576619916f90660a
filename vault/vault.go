package vault

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GaraRoyal/memoryvault/core"
)

// Vault is the persisted per-conversation memory state. It serializes
// to a single JSON object keyed by named sections and is attached to
// the host's conversation persistence, round-tripped verbatim.
//
// A vault is owned by exactly one conversation; nothing here is shared
// across conversations.
type Vault struct {
	ConversationID string                     `json:"conversation_id"`
	Memories       []*Memory                  `json:"memories"`
	Characters     map[string]*CharacterState `json:"characters"`
	Relationships  map[string]*Relationship   `json:"relationships"`
	Secrets        map[string]*Secret         `json:"secrets,omitempty"`
	Locations      map[string]*Location       `json:"locations,omitempty"`
	Promises       []*Promise                 `json:"promises,omitempty"`
	Goals          []*Goal                    `json:"goals,omitempty"`
	Skills         map[string]*Skill          `json:"skills,omitempty"`

	// ExtractedUpTo is the highest message index already covered by
	// extraction, the resume point for backlog processing.
	ExtractedUpTo int `json:"extracted_up_to"`
}

// New creates an empty vault for a conversation.
func New(conversationID string) *Vault {
	return &Vault{
		ConversationID: conversationID,
		Memories:       []*Memory{},
		Characters:     map[string]*CharacterState{},
		Relationships:  map[string]*Relationship{},
		Secrets:        map[string]*Secret{},
		Locations:      map[string]*Location{},
		Skills:         map[string]*Skill{},
	}
}

// Validate checks a loaded vault for structural damage and re-applies
// the clamp invariants. A non-nil error means the vault is unusable and
// memory features should be disabled for the conversation.
func (v *Vault) Validate() error {
	if v == nil {
		return fmt.Errorf("vault is nil")
	}
	if v.Memories == nil {
		return fmt.Errorf("vault missing memories section")
	}
	seen := make(map[string]bool, len(v.Memories))
	for i, m := range v.Memories {
		if m == nil || m.ID == "" {
			return fmt.Errorf("memory #%d has no id", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate memory id %s", m.ID)
		}
		seen[m.ID] = true
		m.ClampImportance()
		m.normalizeKnownBy()
	}
	if v.Characters == nil {
		v.Characters = map[string]*CharacterState{}
	}
	if v.Relationships == nil {
		v.Relationships = map[string]*Relationship{}
	}
	for _, r := range v.Relationships {
		r.Clamp()
	}
	if v.Secrets == nil {
		v.Secrets = map[string]*Secret{}
	}
	if v.Locations == nil {
		v.Locations = map[string]*Location{}
	}
	if v.Skills == nil {
		v.Skills = map[string]*Skill{}
	}
	return nil
}

// Memory returns the memory with the given id, or nil.
func (v *Vault) Memory(id string) *Memory {
	for _, m := range v.Memories {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// AddMemory appends a memory and keeps the collection ordered by
// sequence.
func (v *Vault) AddMemory(m *Memory) {
	m.ClampImportance()
	m.normalizeKnownBy()
	v.Memories = append(v.Memories, m)
	v.SortMemories()
	if max := m.MaxMessageID(); max >= v.ExtractedUpTo {
		v.ExtractedUpTo = max + 1
	}
}

// SortMemories orders memories chronologically by sequence.
func (v *Vault) SortMemories() {
	sort.SliceStable(v.Memories, func(i, j int) bool {
		return v.Memories[i].Sequence < v.Memories[j].Sequence
	})
}

// DeleteMemory removes a memory by id (explicit user action). Auxiliary
// entities referencing it are orphaned intentionally. Returns false if
// no such memory exists.
func (v *Vault) DeleteMemory(id string) bool {
	for i, m := range v.Memories {
		if m.ID == id {
			v.Memories = append(v.Memories[:i], v.Memories[i+1:]...)
			return true
		}
	}
	return false
}

// EditMemory applies a user edit to summary, importance, or event type.
// Empty/zero fields are left unchanged; importance is re-clamped.
func (v *Vault) EditMemory(id, summary string, importance int, eventType core.EventType) bool {
	m := v.Memory(id)
	if m == nil {
		return false
	}
	if summary != "" {
		m.Summary = summary
	}
	if importance != 0 {
		m.Importance = importance
		m.ClampImportance()
	}
	if eventType != "" {
		m.EventType = eventType
	}
	return true
}

// TogglePin flips the pinned flag on a memory. Returns the new state
// and false if the memory does not exist.
func (v *Vault) TogglePin(id string) (bool, bool) {
	m := v.Memory(id)
	if m == nil {
		return false, false
	}
	m.Pinned = !m.Pinned
	return m.Pinned, true
}

// Character returns the state for a name, creating it lazily.
func (v *Vault) Character(name string) *CharacterState {
	name = strings.TrimSpace(name)
	if c, ok := v.Characters[name]; ok {
		return c
	}
	c := &CharacterState{Name: name, LastUpdated: time.Now()}
	v.Characters[name] = c
	return c
}

// Relationship returns the relationship for an unordered pair, creating
// it with defaults lazily.
func (v *Vault) Relationship(a, b string) *Relationship {
	key := PairKey(a, b)
	if r, ok := v.Relationships[key]; ok {
		return r
	}
	r := NewRelationship(key)
	v.Relationships[key] = r
	return r
}

// LocationByName returns the location for a raw name, creating it with
// a normalized key if unseen. Returns nil for names that normalize to
// nothing.
func (v *Vault) LocationByName(raw string) *Location {
	name := NormalizeLocationName(raw)
	if name == "" {
		return nil
	}
	if l, ok := v.Locations[name]; ok {
		return l
	}
	l := &Location{
		ID:        uuid.New().String(),
		Name:      name,
		Display:   strings.TrimSpace(raw),
		FirstSeen: time.Now(),
	}
	v.Locations[name] = l
	return l
}

// Skill returns the skill for a case-insensitive name, or nil.
func (v *Vault) Skill(name string) *Skill {
	return v.Skills[SkillKey(name)]
}

// HasGoal reports whether the character already has a goal with the
// same text, case-insensitively.
func (v *Vault) HasGoal(character, goal string) bool {
	for _, g := range v.Goals {
		if strings.EqualFold(g.Character, character) && strings.EqualFold(g.Goal, goal) {
			return true
		}
	}
	return false
}

// ExtractedMessageSet returns the set of message indexes referenced by
// at least one memory. Auto-hide consults this before hiding anything.
func (v *Vault) ExtractedMessageSet() map[int]bool {
	set := make(map[int]bool)
	for _, m := range v.Memories {
		for _, id := range m.MessageIDs {
			set[id] = true
		}
	}
	return set
}

// Stats summarizes section sizes for notifications and the CLI.
type Stats struct {
	Memories      int `json:"memories"`
	Pinned        int `json:"pinned"`
	Characters    int `json:"characters"`
	Relationships int `json:"relationships"`
	Secrets       int `json:"secrets"`
	Locations     int `json:"locations"`
	Promises      int `json:"promises"`
	Goals         int `json:"goals"`
	Skills        int `json:"skills"`
}

// Stats returns current section counts.
func (v *Vault) Stats() Stats {
	s := Stats{
		Memories:      len(v.Memories),
		Characters:    len(v.Characters),
		Relationships: len(v.Relationships),
		Secrets:       len(v.Secrets),
		Locations:     len(v.Locations),
		Promises:      len(v.Promises),
		Goals:         len(v.Goals),
		Skills:        len(v.Skills),
	}
	for _, m := range v.Memories {
		if m.Pinned {
			s.Pinned++
		}
	}
	return s
}
