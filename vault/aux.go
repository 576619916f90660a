package vault

import (
	"strings"
	"time"
)

// Auxiliary entities spun off by the reducer. Cross-references to
// memories are non-owning id links: deleting a memory never cascades,
// orphaned entities stay findable for manual cleanup.

// SecretStatus is the secret lifecycle.
type SecretStatus string

const (
	SecretActive   SecretStatus = "active"
	SecretRevealed SecretStatus = "revealed"
)

// Secret tracks a piece of hidden knowledge and who holds it. One
// secret can be referenced by multiple memories.
type Secret struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	KnownBy   []string     `json:"known_by,omitempty"`
	MemoryIDs []string     `json:"memory_ids,omitempty"`
	Status    SecretStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Location is a named place referenced by one or more memories. The key
// is the normalized name.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Display   string    `json:"display,omitempty"`
	MemoryIDs []string  `json:"memory_ids,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
}

// PromiseStatus is the promise lifecycle.
type PromiseStatus string

const (
	PromisePending PromiseStatus = "pending"
	PromiseKept    PromiseStatus = "kept"
	PromiseBroken  PromiseStatus = "broken"
)

// Promise records a commitment from one character to another.
type Promise struct {
	ID             string        `json:"id"`
	From           string        `json:"from"`
	To             string        `json:"to"`
	Content        string        `json:"content"`
	Status         PromiseStatus `json:"status"`
	SourceMemoryID string        `json:"source_memory_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// GoalStatus is the goal lifecycle.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

// Goal records something a character is working toward.
type Goal struct {
	ID             string     `json:"id"`
	Character      string     `json:"character"`
	Goal           string     `json:"goal"`
	Status         GoalStatus `json:"status"`
	SourceMemoryID string     `json:"source_memory_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Proficiency is the skill progression ladder.
type Proficiency string

const (
	ProficiencyNovice    Proficiency = "novice"
	ProficiencyCompetent Proficiency = "competent"
	ProficiencyExpert    Proficiency = "expert"
)

// Use-count thresholds for proficiency promotion.
const (
	competentUses = 5
	expertUses    = 15
)

// Skill records a demonstrated ability, keyed by case-insensitive name.
type Skill struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Character        string      `json:"character,omitempty"`
	Proficiency      Proficiency `json:"proficiency"`
	UseCount         int         `json:"use_count"`
	RelatedMemoryIDs []string    `json:"related_memory_ids,omitempty"`
	FirstUsed        time.Time   `json:"first_used"`
}

// RecordUse increments the use count, links the source memory, and
// promotes proficiency at the use-count thresholds.
func (s *Skill) RecordUse(memoryID string) {
	s.UseCount++
	if memoryID != "" {
		s.RelatedMemoryIDs = append(s.RelatedMemoryIDs, memoryID)
	}
	switch {
	case s.UseCount >= expertUses:
		s.Proficiency = ProficiencyExpert
	case s.UseCount >= competentUses:
		s.Proficiency = ProficiencyCompetent
	}
}

// SkillKey canonicalizes a skill name for map lookup.
func SkillKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeLocationName reduces a location name to lowercase trimmed
// alphanumeric-plus-underscore form; spaces become underscores,
// everything else is dropped.
func NormalizeLocationName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('_')
		}
	}
	return b.String()
}
